package feed

import (
	"time"

	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-bulletin/filter"
	"github.com/aquasecurity/vuln-bulletin/msrc"
	"github.com/aquasecurity/vuln-bulletin/oval"
	"github.com/aquasecurity/vuln-bulletin/utils"
)

// Parser is the document schema of a feed
type Parser string

const (
	ParserOVAL Parser = "oval"
	ParserMSRC Parser = "msrc"
)

// Duration is a time.Duration written as "30s" or "1m30s" in YAML
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return xerrors.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Descriptor is everything needed to turn one remote feed into advisory records.
type Descriptor struct {
	Name     string            `yaml:"name"`
	URL      string            `yaml:"url"`
	Encoding utils.Encoding    `yaml:"encoding,omitempty"`
	Parser   Parser            `yaml:"parser"`
	Headers  map[string]string `yaml:"headers,omitempty"`

	// Sources selects where OVAL identifiers are read from; empty means both.
	Sources []oval.Source `yaml:"sources,omitempty"`
	MSRC    *msrc.Options `yaml:"msrc,omitempty"`

	Filter filter.Options `yaml:"filter,omitempty"`
	// SortDate lists the date roles whose first value is kept as the
	// representative date of an identifier. Empty leaves identifiers undated.
	SortDate []string `yaml:"sort_date,omitempty"`

	MaxRetries int      `yaml:"max_retries"`
	Timeout    Duration `yaml:"timeout"`
	RetryDelay Duration `yaml:"retry_delay,omitempty"`
}

func (d Descriptor) FetchOptions() utils.FetchOptions {
	return utils.FetchOptions{
		MaxRetries: d.MaxRetries,
		Timeout:    time.Duration(d.Timeout),
		Delay:      time.Duration(d.RetryDelay),
		Headers:    d.Headers,
	}
}

// Validate reports the first configuration error of the descriptor.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return xerrors.New("feed name is required")
	}
	if d.URL == "" {
		return xerrors.Errorf("%s: url is required", d.Name)
	}
	if !d.Encoding.Valid() {
		return xerrors.Errorf("%s: unknown encoding: %s", d.Name, d.Encoding)
	}
	if d.MaxRetries < 1 {
		return xerrors.Errorf("%s: max_retries must be at least 1", d.Name)
	}
	if d.Timeout <= 0 {
		return xerrors.Errorf("%s: timeout must be positive", d.Name)
	}
	if d.RetryDelay < 0 {
		return xerrors.Errorf("%s: retry_delay must not be negative", d.Name)
	}

	switch d.Parser {
	case ParserOVAL:
		for _, s := range d.Sources {
			if !oval.ValidSource(s) {
				return xerrors.Errorf("%s: unknown OVAL source: %s", d.Name, s)
			}
		}
	case ParserMSRC:
		if d.MSRC == nil {
			return xerrors.Errorf("%s: msrc options are required", d.Name)
		}
		if _, err := d.MSRC.Query(time.Now()); err != nil {
			return xerrors.Errorf("%s: %w", d.Name, err)
		}
	default:
		return xerrors.Errorf("%s: unknown parser: %q", d.Name, d.Parser)
	}

	if _, err := d.Filter.Build(); err != nil {
		return xerrors.Errorf("%s: invalid filter: %w", d.Name, err)
	}
	return nil
}
