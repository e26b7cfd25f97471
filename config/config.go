package config

import (
	_ "embed"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/aquasecurity/vuln-bulletin/bulletin"
)

//go:embed default.yaml
var defaultConfig []byte

type Config struct {
	// OutputDir is prepended to relative bulletin outputs
	OutputDir string              `yaml:"output_dir,omitempty"`
	Bulletins []bulletin.Bulletin `yaml:"bulletins"`
}

// Default returns the built-in bulletins.
func Default() (Config, error) {
	return Parse(defaultConfig)
}

// Load reads the configuration at path.
func Load(fs afero.Fs, path string) (Config, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to read %s: %w", path, err)
	}
	c, err := Parse(b)
	if err != nil {
		return Config{}, xerrors.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML configuration. Unknown keys are rejected.
func Parse(b []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return Config{}, xerrors.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, xerrors.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func (c Config) Validate() error {
	if len(c.Bulletins) == 0 {
		return xerrors.New("no bulletins")
	}
	names := map[string]struct{}{}
	outputs := map[string]string{}
	for _, b := range c.Bulletins {
		if err := b.Validate(); err != nil {
			return err
		}
		if _, ok := names[b.Name]; ok {
			return xerrors.Errorf("duplicate bulletin: %s", b.Name)
		}
		names[b.Name] = struct{}{}

		out := filepath.Clean(b.Output)
		if other, ok := outputs[out]; ok {
			return xerrors.Errorf("%s and %s write the same output: %s", other, b.Name, b.Output)
		}
		outputs[out] = b.Name
	}
	return nil
}

// Select returns the named bulletins in the given order, or every bulletin
// when no name is given.
func (c Config) Select(names ...string) ([]bulletin.Bulletin, error) {
	if len(names) == 0 {
		return c.Bulletins, nil
	}
	byName := map[string]bulletin.Bulletin{}
	for _, b := range c.Bulletins {
		byName[b.Name] = b
	}

	var selected []bulletin.Bulletin
	for _, name := range names {
		b, ok := byName[name]
		if !ok {
			return nil, xerrors.Errorf("unknown bulletin: %s", name)
		}
		selected = append(selected, b)
	}
	return selected, nil
}

// OutputPath returns where the bulletin is written.
func (c Config) OutputPath(b bulletin.Bulletin) string {
	if c.OutputDir == "" || filepath.IsAbs(b.Output) {
		return b.Output
	}
	return filepath.Join(c.OutputDir, b.Output)
}
