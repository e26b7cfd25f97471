package types

// Date roles attached to an advisory record
const (
	RoleIssued   = "issued"
	RoleUpdated  = "updated"
	RolePublic   = "public"
	RoleReleased = "released"
)

// Date is a raw date value and the role it plays for a record, e.g. the issued
// date of the advisory the identifier was referenced from.
type Date struct {
	Role  string `json:"role" yaml:"role"`
	Value string `json:"value,omitempty" yaml:"value"`
}

// Advisory is a single vulnerability identifier candidate extracted from a feed
// together with the context the filters need. It is never modified after the
// parser returns it.
type Advisory struct {
	ID           string   `json:"id"`
	Dates        []Date   `json:"dates,omitempty"`
	PlatformTags []string `json:"platformTags,omitempty"`

	// Criteria holds the free-text fix status fragments (criteria comments).
	Criteria []string `json:"criteria,omitempty"`
}

// Date returns the first non-empty value for the given roles, checked in order.
func (a Advisory) Date(roles ...string) string {
	for _, role := range roles {
		for _, d := range a.Dates {
			if d.Role == role && d.Value != "" {
				return d.Value
			}
		}
	}
	return ""
}
