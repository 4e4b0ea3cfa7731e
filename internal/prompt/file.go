// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"
	"os"

	"github.com/jeranaias/promptforge/internal/util"
	"gopkg.in/yaml.v3"
)

// Overrides is the YAML shape of a template override file:
//
//	templates:
//	  midjourney:
//	    creative: "{{.Input}} --v 7 --stylize 900"
//	fallback: "Write about {{.Input}}"
type Overrides struct {
	Templates map[string]map[string]string `yaml:"templates"`
	Fallback  string                       `yaml:"fallback,omitempty"`
}

// ReadOverrides parses an override file.
func ReadOverrides(path string) (Overrides, error) {
	var o Overrides
	data, err := os.ReadFile(path)
	if err != nil {
		return o, fmt.Errorf("failed to read templates file: %w", err)
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, fmt.Errorf("failed to parse templates file: %w", err)
	}
	return o, nil
}

// LoadFile applies the overrides in path on top of the built-in table.
func (c *Catalog) LoadFile(path string) error {
	o, err := ReadOverrides(path)
	if err != nil {
		return err
	}
	return c.Apply(o, path)
}

// LoadCatalogFile returns a catalog with the overrides in path applied.
func LoadCatalogFile(path string) (*Catalog, error) {
	c := NewCatalog()
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// WriteOverrides writes the built-in table as an override file, a starting
// point for customization.
func WriteOverrides(path string) error {
	data, err := yaml.Marshal(Overrides{Templates: builtinTemplates, Fallback: FallbackTemplate})
	if err != nil {
		return fmt.Errorf("failed to encode templates: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write templates file: %w", err)
	}
	return nil
}
