package oval

import (
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/types"
)

// Source is where the identifiers of a definition are read from
type Source string

const (
	// SourceReference reads <reference source="CVE" ref_id="..."/> of the metadata
	SourceReference Source = "reference"
	// SourceInline reads <cve public="...">...</cve> of the advisory
	SourceInline Source = "inline"

	cveSource = "CVE"
)

var DefaultSources = []Source{SourceReference, SourceInline}

// Decode reads every definition element of an OVAL document.
// The document is streamed, only definitions are kept in memory.
func Decode(r io.Reader) ([]Definition, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel

	var (
		defs    []Definition
		hasRoot bool
	)
	for {
		t, err := d.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &types.ParseError{Err: xerrors.Errorf("failed to decode OVAL XML: %w", err)}
		}

		se, ok := t.(xml.StartElement)
		if !ok {
			continue
		}
		hasRoot = true
		if se.Name.Local != "definition" || (se.Name.Space != "" && se.Name.Space != Namespace) {
			continue
		}

		var def Definition
		if err = d.DecodeElement(&def, &se); err != nil {
			return nil, &types.ParseError{Err: xerrors.Errorf("failed to decode OVAL definition: %w", err)}
		}
		defs = append(defs, def)
	}

	if !hasRoot {
		return nil, &types.ParseError{Err: xerrors.New("OVAL document has no root element")}
	}
	return defs, nil
}

// Records returns the advisory records of a definition. A definition without
// metadata yields nothing.
func Records(def Definition, sources ...Source) []types.Advisory {
	if def.Metadata == nil {
		return nil
	}
	if len(sources) == 0 {
		sources = DefaultSources
	}

	adv := def.Metadata.Advisory
	var platforms []string
	if adv != nil {
		for _, cpe := range adv.AffectedCpeList.Cpe {
			platforms = append(platforms, strings.TrimSpace(cpe))
		}
	}
	criteria := def.Criteria.Comments()

	var records []types.Advisory
	for _, source := range sources {
		switch source {
		case SourceReference:
			for _, ref := range def.Metadata.References {
				id := strings.TrimSpace(ref.RefID)
				if ref.Source != cveSource || id == "" {
					continue
				}
				records = append(records, types.Advisory{
					ID:           id,
					Dates:        advisoryDates(adv),
					PlatformTags: platforms,
					Criteria:     criteria,
				})
			}
		case SourceInline:
			if adv == nil {
				continue
			}
			for _, cve := range adv.Cves {
				id := strings.TrimSpace(cve.CveID)
				if id == "" {
					continue
				}
				var dates []types.Date
				if cve.Public != "" {
					dates = []types.Date{{Role: types.RolePublic, Value: cve.Public}}
				}
				records = append(records, types.Advisory{
					ID:           id,
					Dates:        dates,
					PlatformTags: platforms,
					Criteria:     criteria,
				})
			}
		}
	}
	return records
}

func advisoryDates(adv *Advisory) []types.Date {
	if adv == nil {
		return nil
	}
	var dates []types.Date
	if adv.Issued.Date != "" {
		dates = append(dates, types.Date{Role: types.RoleIssued, Value: adv.Issued.Date})
	}
	if adv.Updated.Date != "" {
		dates = append(dates, types.Date{Role: types.RoleUpdated, Value: adv.Updated.Date})
	}
	return dates
}

// ValidSource reports whether s names a known identifier source
func ValidSource(s Source) bool {
	return s == SourceReference || s == SourceInline
}
