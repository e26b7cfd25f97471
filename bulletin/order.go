package bulletin

import (
	"time"

	"golang.org/x/exp/slices"

	"github.com/aquasecurity/vuln-bulletin/filter"
)

// Order returns the identifiers of s newest first, then by identifier in
// descending order. Undated identifiers and unparsable dates sort as the oldest,
// so an undated set comes out in plain descending order.
func Order(s *Set) []string {
	type item struct {
		id   string
		date time.Time
	}
	items := make([]item, 0, s.Len())
	for id, date := range s.dates {
		d, _ := filter.ParseDate(date)
		items = append(items, item{id: id, date: d})
	}

	slices.SortFunc(items, func(a, b item) int {
		if c := b.date.Compare(a.date); c != 0 {
			return c
		}
		switch {
		case a.id > b.id:
			return -1
		case a.id < b.id:
			return 1
		}
		return 0
	})

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.id)
	}
	return ids
}
