package oval_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/oval"
	"github.com/aquasecurity/vuln-bulletin/types"
)

func TestDecode(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		input   string
		wantIDs []string
		wantErr string
	}{
		{
			name: "happy path",
			file: "definitions.xml",
			wantIDs: []string{
				"oval:org.altlinux.errata:def:20231001",
				"oval:org.altlinux.errata:def:20231002",
				"oval:org.altlinux.errata:def:20221003",
			},
		},
		{
			name:    "non UTF-8 declaration",
			file:    "windows-1251.xml",
			wantIDs: []string{"oval:charset:def:1"},
		},
		{
			name:  "no definitions",
			input: `<oval_definitions xmlns="http://oval.mitre.org/XMLSchema/oval-definitions-5"><definitions/></oval_definitions>`,
		},
		{
			name:    "broken XML",
			file:    "broken.xml",
			wantErr: "failed to decode OVAL definition: XML syntax error on line 8: element <cpe> closed by </cp>",
		},
		{
			name:    "unterminated document",
			input:   `<oval_definitions><definitions>`,
			wantErr: "failed to decode OVAL XML: XML syntax error",
		},
		{
			name:    "empty document",
			input:   "",
			wantErr: "OVAL document has no root element",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := tc.input
			if tc.file != "" {
				b, err := os.ReadFile(filepath.Join("testdata", tc.file))
				require.NoError(t, err)
				input = string(b)
			}

			defs, err := oval.Decode(strings.NewReader(input))
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)

				var parseErr *types.ParseError
				assert.True(t, xerrors.As(err, &parseErr))
				return
			}
			require.NoError(t, err)

			var gotIDs []string
			for _, def := range defs {
				gotIDs = append(gotIDs, def.ID)
			}
			assert.Equal(t, tc.wantIDs, gotIDs)
		})
	}
}

func TestRecords(t *testing.T) {
	f, err := os.Open("testdata/definitions.xml")
	require.NoError(t, err)
	defer f.Close()

	defs, err := oval.Decode(f)
	require.NoError(t, err)
	require.Len(t, defs, 3)

	platforms := []string{"cpe:/o:alt:workstation:10", "cpe:/o:alt:server:10"}
	criteria := []string{
		"ALT Linux must be installed",
		"openssl1.1 checks",
		"openssl1.1 is earlier than 0:1.1.1u-alt1",
	}
	referenced := types.Advisory{
		ID: "CVE-2023-9999",
		Dates: []types.Date{
			{Role: types.RoleIssued, Value: "2023-06-01"},
			{Role: types.RoleUpdated, Value: "2023-06-02"},
		},
		PlatformTags: platforms,
		Criteria:     criteria,
	}
	inline := types.Advisory{
		ID:           "CVE-2023-9998",
		Dates:        []types.Date{{Role: types.RolePublic, Value: "2023-05-30"}},
		PlatformTags: platforms,
		Criteria:     criteria,
	}

	testCases := []struct {
		name    string
		def     oval.Definition
		sources []oval.Source
		want    []types.Advisory
	}{
		{
			name: "references and inline CVEs",
			def:  defs[0],
			want: []types.Advisory{referenced, inline},
		},
		{
			name:    "inline CVEs only",
			def:     defs[0],
			sources: []oval.Source{oval.SourceInline},
			want:    []types.Advisory{inline},
		},
		{
			name:    "references only",
			def:     defs[0],
			sources: []oval.Source{oval.SourceReference},
			want:    []types.Advisory{referenced},
		},
		{
			name: "no metadata",
			def:  defs[1],
		},
		{
			name: "no advisory",
			def:  defs[2],
			want: []types.Advisory{{ID: "CVE-2022-0001"}},
		},
		{
			name:    "no advisory, inline CVEs only",
			def:     defs[2],
			sources: []oval.Source{oval.SourceInline},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := oval.Records(tc.def, tc.sources...)
			if diff := pretty.Compare(got, tc.want); diff != "" {
				t.Errorf("[%s]\n diff: %s", tc.name, diff)
			}
		})
	}
}

func TestCriteria_Comments(t *testing.T) {
	c := oval.Criteria{
		Operator: "OR",
		Criterions: []oval.Criterion{
			{Comment: "Ubuntu 22.04.4 LTS (jammy) is installed."},
			{Comment: ""},
		},
		ExtendDefinitions: []oval.ExtendDefinition{
			{Comment: "Ubuntu 22.04 is installed"},
		},
		Criterias: []oval.Criteria{
			{
				Criterias: []oval.Criteria{
					{Criterions: []oval.Criterion{{Comment: "libssl3 package in jammy, has been fixed (note: '3.0.2-0ubuntu1.12')."}}},
				},
			},
		},
	}
	want := []string{
		"Ubuntu 22.04.4 LTS (jammy) is installed.",
		"Ubuntu 22.04 is installed",
		"libssl3 package in jammy, has been fixed (note: '3.0.2-0ubuntu1.12').",
	}
	assert.Equal(t, want, c.Comments())
}
