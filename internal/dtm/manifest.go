package dtm

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the human-readable twin of a DTM's non-Context fields
// (spec.md §4.8 items 2-5), written alongside the binary artifacts so a
// developer can inspect what a module requires and exports without a
// DTM-aware tool.
type Manifest struct {
	Name            string            `yaml:"name"`
	RequiredModules []string          `yaml:"required_modules,omitempty"`
	OnceTags        []string          `yaml:"once_tags,omitempty"`
	CTO             bool              `yaml:"cto"`
	Typemap         map[string]string `yaml:"typemap,omitempty"`
}

// WriteManifest emits path as YAML describing d (the name is supplied
// separately since DTM itself does not carry the module's own name —
// that lives on the Unit that produced it).
func WriteManifest(path, name string, d *DTM) error {
	m := Manifest{
		Name:            name,
		RequiredModules: d.RequiredModules,
		OnceTags:        d.OnceTags,
		CTO:             d.CTO,
		Typemap:         d.Typemap,
	}
	out, err := yaml.Marshal(&m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// ReadManifest loads a sidecar written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
