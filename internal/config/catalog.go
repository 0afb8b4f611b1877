package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the static target catalog: per probe kind, an ordered
// list of process names. Immutable during a run; the scheduler draws a
// fresh shuffled copy each cycle.
//
// File format:
//
//	sigterm: [routerd, workerd]
//	sigkill: [cached]
//	freeze:  [runner]
type Catalog struct {
	Sigterm []string `yaml:"sigterm"`
	Sigkill []string `yaml:"sigkill"`
	Freeze  []string `yaml:"freeze"`
}

// LoadCatalog reads a catalog YAML file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML. Unknown keys are rejected so a
// typo like "freze" fails loudly instead of silently disabling a phase.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.check(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Empty reports whether no phase has any target.
func (c Catalog) Empty() bool {
	return len(c.Sigterm) == 0 && len(c.Sigkill) == 0 && len(c.Freeze) == 0
}

// check rejects blank and duplicate names within a list.
func (c Catalog) check() error {
	for _, list := range []struct {
		kind    string
		targets []string
	}{
		{"sigterm", c.Sigterm},
		{"sigkill", c.Sigkill},
		{"freeze", c.Freeze},
	} {
		seen := make(map[string]bool, len(list.targets))
		for _, name := range list.targets {
			if name == "" {
				return fmt.Errorf("catalog: empty target name in %s list", list.kind)
			}
			if seen[name] {
				return fmt.Errorf("catalog: duplicate target %q in %s list", name, list.kind)
			}
			seen[name] = true
		}
	}
	return nil
}
