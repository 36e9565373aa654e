package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/charliek/eventlook/internal/config"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/filter"
)

// filterOptions holds the filter flags shared by every reading command
type filterOptions struct {
	message  string
	levels   []string
	provider string
	ids      string
}

func addFilterFlags(cmd *cobra.Command, o *filterOptions) {
	cmd.Flags().StringVarP(&o.message, "filter", "f", "", `Message filter, e.g. 'disk "access denied" | timeout'`)
	cmd.Flags().StringSliceVarP(&o.levels, "level", "l", nil, "Levels to keep (critical,error,warning,information,verbose)")
	cmd.Flags().StringVarP(&o.provider, "provider", "p", "", "Provider to keep")
	cmd.Flags().StringVar(&o.ids, "id", "", `Event ids, e.g. "4624, -4625"`)
}

// criteria converts and validates the filter flags
func (o *filterOptions) criteria() (filter.Criteria, error) {
	c := filter.Criteria{
		Message:  o.message,
		Provider: o.provider,
		IDs:      o.ids,
	}
	for _, name := range o.levels {
		level, ok := domain.ParseLevel(strings.TrimSpace(name))
		if !ok {
			return filter.Criteria{}, fmt.Errorf("%w: unknown level %q", domain.ErrInvalidPattern, name)
		}
		c.Levels = append(c.Levels, level)
	}
	if _, err := c.Filters(); err != nil {
		return filter.Criteria{}, err
	}
	return c, nil
}

// withDefaults fills criteria the flags leave empty from the config filters
func withDefaults(c, defaults filter.Criteria) filter.Criteria {
	if c.Message == "" {
		c.Message = defaults.Message
	}
	if len(c.Levels) == 0 {
		c.Levels = defaults.Levels
	}
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	if c.IDs == "" {
		c.IDs = defaults.IDs
	}
	return c
}

// readOptions holds the flags of historical reads
type readOptions struct {
	filterOptions

	file        bool
	since       time.Duration
	from        string
	to          string
	oldestFirst bool
	newestFirst bool
}

func addReadFlags(cmd *cobra.Command, o *readOptions) {
	cmd.Flags().BoolVar(&o.file, "file", false, "Treat the source as an archive file path")
	cmd.Flags().DurationVar(&o.since, "since", 0, "Read events newer than this, e.g. 2h (default: read.range for channels)")
	cmd.Flags().StringVar(&o.from, "from", "", "Exclusive lower bound (RFC3339)")
	cmd.Flags().StringVar(&o.to, "to", "", "Inclusive upper bound (RFC3339)")
	cmd.Flags().BoolVar(&o.oldestFirst, "oldest-first", false, "Read in chronological order")
	cmd.Flags().BoolVar(&o.newestFirst, "newest-first", false, "Read in reverse chronological order")
	cmd.MarkFlagsMutuallyExclusive("oldest-first", "newest-first")
	cmd.MarkFlagsMutuallyExclusive("since", "from")
	addFilterFlags(cmd, &o.filterOptions)
}

// params builds a validated read of path. Channel reads without a range
// cover the configured read range; archive reads are unbounded.
func (o *readOptions) params(path string, cfg *config.Config, now time.Time) (domain.ReadParams, error) {
	source := domain.NewChannelSource(path)
	if o.file {
		source = domain.NewFileSource(path)
	}

	p := domain.ReadParams{
		Source:      source,
		NewestFirst: cfg.NewestFirst(),
	}
	switch {
	case o.oldestFirst:
		p.NewestFirst = false
	case o.newestFirst:
		p.NewestFirst = true
	}

	var err error
	if o.from != "" {
		if p.From, err = parseTime("from", o.from); err != nil {
			return domain.ReadParams{}, err
		}
	}
	if o.to != "" {
		if p.To, err = parseTime("to", o.to); err != nil {
			return domain.ReadParams{}, err
		}
	}
	switch {
	case o.since < 0:
		return domain.ReadParams{}, fmt.Errorf("%w: negative --since", domain.ErrInvalidTimeRange)
	case o.since > 0:
		p.From, p.To = domain.RangeSince(now, o.since)
	case p.From.IsZero() && p.To.IsZero() && source.IsChannel():
		p.From, p.To = domain.RangeSince(now, cfg.ReadRange())
	}
	if err := p.Validate(); err != nil {
		return domain.ReadParams{}, err
	}

	criteria, err := o.criteria()
	if err != nil {
		return domain.ReadParams{}, err
	}
	criteria = withDefaults(criteria, cfg.Filters)
	p.Message = criteria.Message
	p.Levels = criteria.Levels
	p.Provider = criteria.Provider
	p.IDs = criteria.IDs
	return p, nil
}

func parseTime(name, v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid --%s %q (want RFC3339)", domain.ErrInvalidTimeRange, name, v)
	}
	return t.UTC(), nil
}
