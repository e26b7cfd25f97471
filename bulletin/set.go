package bulletin

import (
	"strings"

	"github.com/samber/lo"

	"github.com/aquasecurity/vuln-bulletin/types"
)

// Set is a set of vulnerability identifiers with an optional representative
// date per identifier. Identifiers are compared as is, case included.
type Set struct {
	dates map[string]string
}

func NewSet(ids ...string) *Set {
	s := &Set{dates: map[string]string{}}
	for _, id := range ids {
		s.Add(id, "")
	}
	return s
}

// Add inserts id. Adding an identifier again replaces its date with the last one given.
func (s *Set) Add(id, date string) {
	s.dates[id] = date
}

// AddRecord inserts the identifier of rec, dated with its first date of the given roles.
func (s *Set) AddRecord(rec types.Advisory, roles []string) {
	s.Add(rec.ID, rec.Date(roles...))
}

func (s *Set) Len() int {
	return len(s.dates)
}

func (s *Set) Has(id string) bool {
	_, ok := s.dates[id]
	return ok
}

// Date returns the representative date of id, empty when undated or absent.
func (s *Set) Date(id string) string {
	return s.dates[id]
}

// IDs returns the identifiers in no particular order.
func (s *Set) IDs() []string {
	return lo.Keys(s.dates)
}

// Intersect returns the identifiers present in both sets. The result is undated.
func (s *Set) Intersect(other *Set) *Set {
	res := NewSet()
	for id := range s.dates {
		if other.Has(id) {
			res.Add(id, "")
		}
	}
	return res
}

// Union returns the identifiers of both sets. A date of other takes precedence.
func (s *Set) Union(other *Set) *Set {
	res := NewSet()
	for id, date := range s.dates {
		res.Add(id, date)
	}
	for id, date := range other.dates {
		if date == "" {
			date = res.Date(id)
		}
		res.Add(id, date)
	}
	return res
}

// CaseCollisions returns the groups of identifiers that only differ by case.
// Such identifiers are kept apart by the set and may be the same vulnerability.
func CaseCollisions(ids []string) [][]string {
	groups := lo.GroupBy(ids, strings.ToUpper)
	var collisions [][]string
	for _, key := range Order(NewSet(lo.Keys(groups)...)) {
		if group := lo.Uniq(groups[key]); len(group) > 1 {
			collisions = append(collisions, Order(NewSet(group...)))
		}
	}
	return collisions
}
