package msrc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/tidwall/gjson"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/types"
)

const (
	// DefaultBaseURL is the affected product endpoint of the Security Update Guide API
	DefaultBaseURL  = "https://api.msrc.microsoft.com/sug/v2.0/ru-RU/affectedProduct"
	DefaultPageSize = 500

	DefaultIDField   = "cveNumber"
	DefaultDateField = "releaseDate"

	dateFormat  = "2006-01-02"
	queryFormat = "2006-01-02T15:04:05.000Z"
)

// Query selects the affected product entries of a release window
type Query struct {
	ProductFamilyIDs []string
	ProductIDs       []string
	Start            time.Time
	End              time.Time
	PageSize         int
}

// Filter returns the OData $filter expression of the query.
func (q Query) Filter() string {
	var clauses []string
	if len(q.ProductFamilyIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("productFamilyId in (%s)", quoteList(q.ProductFamilyIDs)))
	}
	if len(q.ProductIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("productId in (%s)", quoteList(q.ProductIDs)))
	}
	if !q.Start.IsZero() {
		clauses = append(clauses, fmt.Sprintf("(releaseDate ge %s)", q.Start.UTC().Format(queryFormat)))
	}
	if !q.End.IsZero() {
		clauses = append(clauses, fmt.Sprintf("(releaseDate le %s)", q.End.UTC().Format(queryFormat)))
	}
	return strings.Join(clauses, " and ")
}

func quoteList(ss []string) string {
	quoted := make([]string, 0, len(ss))
	for _, s := range ss {
		quoted = append(quoted, "'"+s+"'")
	}
	return strings.Join(quoted, ",")
}

// URL returns the address of the page starting at skip. Entries are ordered by
// release date, newest first. The query is form-encoded, which is also how the
// HTTP client re-encodes it on the wire.
func URL(base string, q Query, skip int) string {
	params := url.Values{}
	params.Set("$orderBy", "releaseDate desc")
	params.Set("$top", strconv.Itoa(q.PageSize))
	params.Set("$skip", strconv.Itoa(skip))
	if filter := q.Filter(); filter != "" {
		params.Set("$filter", filter)
	}
	return base + "?" + params.Encode()
}

// ParsePage extracts one record per entry of the "value" array. n is the number of
// entries on the page, including the ones skipped for lacking an identifier, and
// is what pagination must be driven by. A missing or null "value" is an empty page.
func ParsePage(b []byte, idField, dateField string) ([]types.Advisory, int, error) {
	if !gjson.ValidBytes(b) {
		return nil, 0, &types.PayloadError{Err: xerrors.New("failed to decode JSON page")}
	}
	value := gjson.GetBytes(b, "value")
	if !value.Exists() || value.Type == gjson.Null {
		return nil, 0, nil
	}
	if !value.IsArray() {
		return nil, 0, &types.PayloadError{Err: xerrors.Errorf("unexpected type of value: %s", value.Type)}
	}

	entries := value.Array()
	var records []types.Advisory
	for _, entry := range entries {
		id := strings.TrimSpace(entry.Get(idField).String())
		if id == "" {
			continue
		}
		rec := types.Advisory{ID: id}
		if d := normalizeDate(entry.Get(dateField).String()); d != "" {
			rec.Dates = []types.Date{{Role: types.RoleReleased, Value: d}}
		}
		records = append(records, rec)
	}
	return records, len(entries), nil
}

// normalizeDate returns s as YYYY-MM-DD, or an empty string if s is not a date.
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return ""
	}
	return t.UTC().Format(dateFormat)
}

// PageFunc retrieves the raw page at url
type PageFunc func(ctx context.Context, url string) ([]byte, error)

// Walk requests every page of q and returns the records of all of them.
// onPage, if set, is called after each page with its offset and entry count.
func Walk(ctx context.Context, base string, q Query, idField, dateField string, fetch PageFunc,
	onPage func(skip, n int)) ([]types.Advisory, error) {
	if q.PageSize <= 0 {
		return nil, xerrors.Errorf("page size must be positive: %d", q.PageSize)
	}

	var records []types.Advisory
	pager := NewPager(q.PageSize)
	for pager.HasMore() {
		skip := pager.Offset()
		b, err := fetch(ctx, URL(base, q, skip))
		if err != nil {
			return nil, xerrors.Errorf("failed to fetch the page at %d: %w", skip, err)
		}
		page, n, err := ParsePage(b, idField, dateField)
		if err != nil {
			return nil, xerrors.Errorf("failed to parse the page at %d: %w", skip, err)
		}
		records = append(records, page...)
		if onPage != nil {
			onPage(skip, n)
		}
		pager.Advance(n)
	}
	return records, nil
}
