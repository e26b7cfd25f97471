package msrc

import (
	"time"

	"golang.org/x/xerrors"
)

// Options is the YAML form of a query against the vendor API
type Options struct {
	ProductFamilyIDs []string `yaml:"product_family_ids,omitempty"`
	ProductIDs       []string `yaml:"product_ids,omitempty"`
	// Start and End bound the release date, YYYY-MM-DD. An empty End means now.
	Start     string `yaml:"start"`
	End       string `yaml:"end,omitempty"`
	PageSize  int    `yaml:"page_size,omitempty"`
	IDField   string `yaml:"id_field,omitempty"`
	DateField string `yaml:"date_field,omitempty"`
}

func (o Options) Fields() (idField, dateField string) {
	idField, dateField = o.IDField, o.DateField
	if idField == "" {
		idField = DefaultIDField
	}
	if dateField == "" {
		dateField = DefaultDateField
	}
	return idField, dateField
}

// Query resolves the options against now.
func (o Options) Query(now time.Time) (Query, error) {
	q := Query{
		ProductFamilyIDs: o.ProductFamilyIDs,
		ProductIDs:       o.ProductIDs,
		PageSize:         o.PageSize,
		End:              now.UTC(),
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	} else if q.PageSize < 0 {
		return Query{}, xerrors.Errorf("page size must be positive: %d", o.PageSize)
	}

	if o.Start != "" {
		start, err := time.Parse(dateFormat, o.Start)
		if err != nil {
			return Query{}, xerrors.Errorf("invalid start date %q: %w", o.Start, err)
		}
		q.Start = start
	}
	if o.End != "" {
		end, err := time.Parse(dateFormat, o.End)
		if err != nil {
			return Query{}, xerrors.Errorf("invalid end date %q: %w", o.End, err)
		}
		// the whole end day is part of the window
		q.End = end.Add(24*time.Hour - time.Millisecond)
	}
	if !q.Start.IsZero() && q.End.Before(q.Start) {
		return Query{}, xerrors.Errorf("end date %s is before start date %s",
			q.End.Format(dateFormat), q.Start.Format(dateFormat))
	}
	return q, nil
}
