package oval

// Namespace is the OVAL 5 definitions namespace
const Namespace = "http://oval.mitre.org/XMLSchema/oval-definitions-5"

type Definition struct {
	ID       string    `xml:"id,attr" json:",omitempty"`
	Version  string    `xml:"version,attr" json:",omitempty"`
	Class    string    `xml:"class,attr" json:",omitempty"`
	Metadata *Metadata `xml:"metadata" json:",omitempty"`
	Criteria Criteria  `xml:"criteria" json:",omitempty"`
}

type Metadata struct {
	Title        string      `xml:"title" json:",omitempty"`
	AffectedList []Affected  `xml:"affected" json:",omitempty"`
	References   []Reference `xml:"reference" json:",omitempty"`
	Description  string      `xml:"description" json:",omitempty"`
	Advisory     *Advisory   `xml:"advisory" json:",omitempty"`
}

type Affected struct {
	Family    string   `xml:"family,attr" json:",omitempty"`
	Platforms []string `xml:"platform" json:",omitempty"`
	Products  []string `xml:"product" json:",omitempty"`
}

type Reference struct {
	RefID  string `xml:"ref_id,attr" json:",omitempty"`
	RefURL string `xml:"ref_url,attr" json:",omitempty"`
	Source string `xml:"source,attr" json:",omitempty"`
}

type Advisory struct {
	From            string          `xml:"from,attr" json:",omitempty"`
	Severity        string          `xml:"severity" json:",omitempty"`
	Issued          Date            `xml:"issued" json:",omitempty"`
	Updated         Date            `xml:"updated" json:",omitempty"`
	Cves            []CVE           `xml:"cve" json:",omitempty"`
	Bugzilla        []Bugzilla      `xml:"bugzilla" json:",omitempty"`
	AffectedCpeList AffectedCpeList `xml:"affected_cpe_list" json:",omitempty"`
}

type Date struct {
	Date string `xml:"date,attr" json:",omitempty"`
}

type CVE struct {
	Cvss3  string `xml:"cvss3,attr" json:",omitempty"`
	Cwe    string `xml:"cwe,attr" json:",omitempty"`
	Href   string `xml:"href,attr" json:",omitempty"`
	Impact string `xml:"impact,attr" json:",omitempty"`
	Public string `xml:"public,attr" json:",omitempty"`
	CveID  string `xml:",chardata" json:",omitempty"`
}

type Bugzilla struct {
	ID   string `xml:"id,attr" json:",omitempty"`
	Href string `xml:"href,attr" json:",omitempty"`
	Data string `xml:",chardata" json:",omitempty"`
}

type AffectedCpeList struct {
	Cpe []string `xml:"cpe" json:",omitempty"`
}

type Criteria struct {
	Operator          string             `xml:"operator,attr" json:",omitempty"`
	Comment           string             `xml:"comment,attr" json:",omitempty"`
	Criterions        []Criterion        `xml:"criterion" json:",omitempty"`
	Criterias         []Criteria         `xml:"criteria" json:",omitempty"`
	ExtendDefinitions []ExtendDefinition `xml:"extend_definition" json:",omitempty"`
}

type Criterion struct {
	TestRef string `xml:"test_ref,attr" json:",omitempty"`
	Comment string `xml:"comment,attr" json:",omitempty"`
}

type ExtendDefinition struct {
	DefinitionRef string `xml:"definition_ref,attr" json:",omitempty"`
	Comment       string `xml:"comment,attr" json:",omitempty"`
}

// Comments returns the non-empty comments of the criteria tree, nested nodes included.
func (c Criteria) Comments() []string {
	var comments []string
	if c.Comment != "" {
		comments = append(comments, c.Comment)
	}
	for _, criterion := range c.Criterions {
		if criterion.Comment != "" {
			comments = append(comments, criterion.Comment)
		}
	}
	for _, ext := range c.ExtendDefinitions {
		if ext.Comment != "" {
			comments = append(comments, ext.Comment)
		}
	}
	for _, nested := range c.Criterias {
		comments = append(comments, nested.Comments()...)
	}
	return comments
}
