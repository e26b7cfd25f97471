package filter

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/aquasecurity/vuln-bulletin/types"
)

// DateFormat is the only accepted layout of advisory dates
const DateFormat = "2006-01-02"

// Predicate decides whether an advisory record is kept
type Predicate func(types.Advisory) bool

// ParseDate parses a YYYY-MM-DD date. ok is false for empty or malformed values.
func ParseDate(s string) (t time.Time, ok bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// All passes when every predicate passes. No predicates means everything passes.
func All(predicates ...Predicate) Predicate {
	return func(adv types.Advisory) bool {
		for _, p := range predicates {
			if !p(adv) {
				return false
			}
		}
		return true
	}
}

// DateRange passes when at least one date of the given roles is within [start, end].
// A zero end means no upper bound. Without roles every date of the record is checked.
func DateRange(start, end time.Time, roles ...string) Predicate {
	return anyDate(roles, func(d time.Time) bool {
		if d.Before(start) {
			return false
		}
		return end.IsZero() || !d.After(end)
	})
}

// MinDate passes when at least one date of the given roles is on or after minDate.
func MinDate(minDate time.Time, roles ...string) Predicate {
	return DateRange(minDate, time.Time{}, roles...)
}

func anyDate(roles []string, match func(time.Time) bool) Predicate {
	return func(adv types.Advisory) bool {
		for _, date := range adv.Dates {
			if len(roles) > 0 && !lo.Contains(roles, date.Role) {
				continue
			}
			d, ok := ParseDate(date.Value)
			if ok && match(d) {
				return true
			}
		}
		return false
	}
}

// Platform passes when one of the platform tags equals target after trimming spaces.
// The comparison is case-sensitive.
func Platform(target string) Predicate {
	target = strings.TrimSpace(target)
	return func(adv types.Advisory) bool {
		return lo.ContainsBy(adv.PlatformTags, func(tag string) bool {
			return strings.TrimSpace(tag) == target
		})
	}
}

// CriteriaContains passes when every needle is found, ignoring case, in at least one
// criteria fragment. Different needles may match different fragments.
func CriteriaContains(needles ...string) Predicate {
	lowered := lo.Map(needles, func(n string, _ int) string {
		return strings.ToLower(n)
	})
	return func(adv types.Advisory) bool {
		fragments := lo.Map(adv.Criteria, func(f string, _ int) string {
			return strings.ToLower(f)
		})
		for _, needle := range lowered {
			found := lo.ContainsBy(fragments, func(f string) bool {
				return strings.Contains(f, needle)
			})
			if !found {
				return false
			}
		}
		return true
	}
}

// Prefix passes when the identifier starts with prefix.
func Prefix(prefix string) Predicate {
	return func(adv types.Advisory) bool {
		return strings.HasPrefix(adv.ID, prefix)
	}
}
