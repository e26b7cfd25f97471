package filter

import (
	"time"

	"golang.org/x/xerrors"
)

// Options is the configuration of the filter pipeline of one feed.
// Every configured filter must pass.
type Options struct {
	// Platform is an exact CPE or product string the record must be tagged with
	Platform string `yaml:"platform,omitempty"`
	// CriteriaContains lists phrases that must each appear in some criteria comment
	CriteriaContains []string `yaml:"criteria_contains,omitempty"`
	Prefix           string   `yaml:"prefix,omitempty"`
	DateWindow       *Window  `yaml:"date_window,omitempty"`
	MinDate          string   `yaml:"min_date,omitempty"`
	// DateRoles restricts the date filters to these roles; empty means any date.
	DateRoles []string `yaml:"date_roles,omitempty"`
}

// Window is an inclusive date range. An empty End leaves the range open.
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end,omitempty"`
}

// Bounds returns the parsed window.
func (w Window) Bounds() (start, end time.Time, err error) {
	start, ok := ParseDate(w.Start)
	if !ok {
		return time.Time{}, time.Time{}, xerrors.Errorf("invalid start date %q", w.Start)
	}
	if w.End == "" {
		return start, time.Time{}, nil
	}
	end, ok = ParseDate(w.End)
	if !ok {
		return time.Time{}, time.Time{}, xerrors.Errorf("invalid end date %q", w.End)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, xerrors.Errorf("end date %s is before start date %s", w.End, w.Start)
	}
	return start, end, nil
}

// Build returns the conjunction of the configured filters.
func (o Options) Build() (Predicate, error) {
	var predicates []Predicate
	if o.Prefix != "" {
		predicates = append(predicates, Prefix(o.Prefix))
	}
	if o.Platform != "" {
		predicates = append(predicates, Platform(o.Platform))
	}
	if len(o.CriteriaContains) > 0 {
		predicates = append(predicates, CriteriaContains(o.CriteriaContains...))
	}
	if o.DateWindow != nil {
		start, end, err := o.DateWindow.Bounds()
		if err != nil {
			return nil, xerrors.Errorf("date window: %w", err)
		}
		predicates = append(predicates, DateRange(start, end, o.DateRoles...))
	}
	if o.MinDate != "" {
		minDate, ok := ParseDate(o.MinDate)
		if !ok {
			return nil, xerrors.Errorf("invalid minimum date %q", o.MinDate)
		}
		predicates = append(predicates, MinDate(minDate, o.DateRoles...))
	}
	return All(predicates...), nil
}
