package filter

import (
	"github.com/charliek/eventlook/internal/domain"
)

// Criteria is a plain description of filter settings, as given on the
// command line, in the config file or in an API query
type Criteria struct {
	Message  string         `yaml:"message" json:"message,omitempty"`
	Levels   []domain.Level `yaml:"levels" json:"levels,omitempty"`
	Provider string         `yaml:"provider" json:"provider,omitempty"`
	IDs      string         `yaml:"ids" json:"ids,omitempty"`
}

// CriteriaFromParams extracts the filter settings of a read
func CriteriaFromParams(p domain.ReadParams) Criteria {
	return Criteria{
		Message:  p.Message,
		Levels:   p.Levels,
		Provider: p.Provider,
		IDs:      p.IDs,
	}
}

// IsEmpty returns true if the criteria exclude nothing
func (c Criteria) IsEmpty() bool {
	return ParseQuery(c.Message).Empty() && len(c.Levels) == 0 && c.Provider == "" && c.IDs == ""
}

// Filters builds standalone stages for the criteria
func (c Criteria) Filters() ([]Filter, error) {
	message := NewMessageFilter()
	level := NewLevelFilter()
	provider := NewProviderFilter()
	id := NewIDFilter()
	if err := c.ApplyTo(message, level, provider, id); err != nil {
		return nil, err
	}
	return []Filter{message, level, provider, id}, nil
}

// ApplyTo sets the criteria on existing stages. Nothing is changed if the
// criteria are invalid.
func (c Criteria) ApplyTo(message *MessageFilter, level *LevelFilter, provider *ProviderFilter, id *IDFilter) error {
	if err := NewMessageFilter().SetText(c.Message); err != nil {
		return err
	}
	if _, _, err := ParseIDs(c.IDs); err != nil {
		return err
	}

	_ = message.SetText(c.Message)
	level.SetLevels(c.Levels...)
	provider.Select(c.Provider)
	_ = id.SetText(c.IDs)
	return nil
}
