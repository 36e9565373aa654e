package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/filter"
)

// ReadDefaults fills in parameters a request leaves out
type ReadDefaults struct {
	Range       time.Duration
	NewestFirst bool
	MaxEvents   int
}

// DefaultReadDefaults returns the built-in read defaults
func DefaultReadDefaults() ReadDefaults {
	return ReadDefaults{
		Range:       constants.DefaultReadRange,
		NewestFirst: true,
		MaxEvents:   constants.DefaultMaxEvents,
	}
}

// parseSource extracts source and type
func parseSource(r *http.Request) (domain.LogSource, error) {
	q := r.URL.Query()
	path := strings.TrimSpace(q.Get("source"))
	if path == "" {
		path = strings.TrimSpace(q.Get("path"))
	}
	if path == "" {
		return domain.LogSource{}, fmt.Errorf("%w: source is required", domain.ErrInvalidSource)
	}
	pathType, err := domain.ParsePathType(q.Get("type"))
	if err != nil {
		return domain.LogSource{}, err
	}
	return domain.LogSource{Path: path, PathType: pathType}, nil
}

// parseReadParams extracts a read from the query string:
//
//	source, type, from, to (RFC3339), since (duration), newest (bool),
//	q, level (comma separated), provider, id
//
// Channel reads without from or since cover the default range. Archive reads
// without a range cover the whole file.
func parseReadParams(r *http.Request, defaults ReadDefaults, now time.Time) (domain.ReadParams, error) {
	source, err := parseSource(r)
	if err != nil {
		return domain.ReadParams{}, err
	}
	q := r.URL.Query()
	params := domain.ReadParams{
		Source:      source,
		NewestFirst: defaults.NewestFirst,
		Message:     q.Get("q"),
		Provider:    q.Get("provider"),
		IDs:         q.Get("id"),
	}

	if v := q.Get("to"); v != "" {
		if params.To, err = parseTime("to", v); err != nil {
			return domain.ReadParams{}, err
		}
	}
	if v := q.Get("from"); v != "" {
		if params.From, err = parseTime("from", v); err != nil {
			return domain.ReadParams{}, err
		}
	}
	if v := q.Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return domain.ReadParams{}, fmt.Errorf("%w: invalid since %q", domain.ErrInvalidTimeRange, v)
		}
		params.From, params.To = domain.RangeSince(now, d)
	} else if params.From.IsZero() && params.To.IsZero() && source.IsChannel() {
		params.From, params.To = domain.RangeSince(now, defaults.Range)
	}

	if v := q.Get("newest"); v != "" {
		newest, err := strconv.ParseBool(v)
		if err != nil {
			return domain.ReadParams{}, fmt.Errorf("%w: invalid newest %q", domain.ErrInvalidSource, v)
		}
		params.NewestFirst = newest
	}

	if err := params.Validate(); err != nil {
		return domain.ReadParams{}, err
	}

	criteria, err := parseCriteria(r)
	if err != nil {
		return domain.ReadParams{}, err
	}
	params.Levels = criteria.Levels
	return params, nil
}

func parseTime(name, v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidTimeRange, name, v)
	}
	return t.UTC(), nil
}

// parseCriteria extracts stream filter criteria
func parseCriteria(r *http.Request) (filter.Criteria, error) {
	q := r.URL.Query()
	c := filter.Criteria{
		Message:  q.Get("q"),
		Provider: q.Get("provider"),
		IDs:      q.Get("id"),
	}
	if v := q.Get("level"); v != "" {
		for _, name := range strings.Split(v, ",") {
			level, ok := domain.ParseLevel(name)
			if !ok {
				return filter.Criteria{}, fmt.Errorf("%w: unknown level %q", domain.ErrInvalidPattern, name)
			}
			c.Levels = append(c.Levels, level)
		}
	}
	if _, err := c.Filters(); err != nil {
		return filter.Criteria{}, err
	}
	return c, nil
}

// parseLimit reads an integer parameter capped at max. Invalid values use def.
func parseLimit(r *http.Request, name string, def, max int) int {
	limit := def
	if v := r.URL.Query().Get(name); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}
