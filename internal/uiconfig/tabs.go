// Package uiconfig loads the static feed chrome shown above the player.
// Tabs are decorative: they carry labels only and never change what plays.
package uiconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tab is one entry of the top navigation strip
type Tab struct {
	ID     string `yaml:"id" json:"id"`
	Label  string `yaml:"label" json:"label"`
	Active bool   `yaml:"active,omitempty" json:"active"`
}

// Chrome is the full static UI configuration
type Chrome struct {
	Tabs []Tab `yaml:"tabs" json:"tabs"`
}

// Default mirrors the tabs of the original mobile layout.
func Default() *Chrome {
	return &Chrome{Tabs: []Tab{
		{ID: "popular", Label: "Popular", Active: true},
		{ID: "new", Label: "New"},
		{ID: "ranking", Label: "Ranking"},
		{ID: "categories", Label: "Categories"},
		{ID: "asian", Label: "Asian"},
	}}
}

// Load reads path, or returns Default when path is empty.
func Load(path string) (*Chrome, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ui config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document; unknown fields are rejected.
func Parse(data []byte) (*Chrome, error) {
	var chrome Chrome
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&chrome); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse ui config: %w", err)
	}
	if err := chrome.Validate(); err != nil {
		return nil, err
	}
	return &chrome, nil
}

// Validate requires unique, non-empty ids and labels and at most one active tab.
func (c *Chrome) Validate() error {
	if len(c.Tabs) == 0 {
		return errors.New("ui config: at least one tab is required")
	}
	seen := make(map[string]bool, len(c.Tabs))
	active := 0
	for i, tab := range c.Tabs {
		id := strings.TrimSpace(tab.ID)
		if id == "" || strings.TrimSpace(tab.Label) == "" {
			return fmt.Errorf("ui config: tab %d needs an id and a label", i)
		}
		if seen[id] {
			return fmt.Errorf("ui config: duplicate tab id %q", id)
		}
		seen[id] = true
		if tab.Active {
			active++
		}
	}
	if active > 1 {
		return errors.New("ui config: only one tab can be active")
	}
	return nil
}
