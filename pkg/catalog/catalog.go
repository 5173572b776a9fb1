// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog holds the declarative panel catalog and the pure
// reconciliation logic over it: which data sources are effectively
// enabled, which panel and index-pattern files each one needs, and which
// search-index aliases it must be reachable through.
//
// Everything in this package is read-only after construction. The catalog
// document is loaded once at startup and never mutated; resolution and
// expansion are set arithmetic and cannot fail.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_menu.yaml
var defaultMenuYAML []byte

// MenuItem is one dashboard reference inside a catalog entry.
type MenuItem struct {
	Name  string `yaml:"name"`
	Panel string `yaml:"panel"`
}

// Entry describes one data source in the catalog: its display name, the
// panel files behind its menu items and the index-pattern files its
// dashboards query through.
type Entry struct {
	Name          string     `yaml:"name"`
	Source        string     `yaml:"source"`
	Icon          string     `yaml:"icon"`
	IndexPatterns []string   `yaml:"index-patterns"`
	Menu          []MenuItem `yaml:"menu"`
}

// Feature-gated aggregate sources, appended to the catalog at startup
// when the corresponding flag is set. They behave like any other entry
// once appended.
const (
	CommunitySource = "community"
	KafkaSource     = "kafka"
)

const (
	kafkaPanel        = "panels/json/kip.json"
	kafkaIndexPattern = "panels/json/kafka-index-pattern.json"

	onionPanelOverall  = "panels/json/onion_overall.json"
	onionPanelProjects = "panels/json/onion_projects.json"
	onionPanelOrgs     = "panels/json/onion_organizations.json"
	onionIndexPattern  = "panels/json/all_onion-index-pattern.json"
)

func communityEntry() Entry {
	return Entry{
		Name:          "Community",
		Source:        CommunitySource,
		Icon:          "default.png",
		IndexPatterns: []string{onionIndexPattern},
		Menu: []MenuItem{
			{Name: "Overall", Panel: onionPanelOverall},
			{Name: "Projects", Panel: onionPanelProjects},
			{Name: "Organizations", Panel: onionPanelOrgs},
		},
	}
}

func kafkaEntry() Entry {
	return Entry{
		Name:          "KIP",
		Source:        KafkaSource,
		Icon:          "default.png",
		IndexPatterns: []string{kafkaIndexPattern},
		Menu: []MenuItem{
			{Name: "Overview", Panel: kafkaPanel},
		},
	}
}

// Load reads the catalog document from path. An empty path loads the
// embedded default catalog.
func Load(path string) ([]Entry, error) {
	data := defaultMenuYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return entries, nil
}

// WithFeatures returns the catalog with the community and kafka aggregate
// entries appended when their flags are set. The input slice is not
// modified.
func WithFeatures(entries []Entry, community, kafka bool) []Entry {
	out := make([]Entry, len(entries), len(entries)+2)
	copy(out, entries)
	if community {
		out = append(out, communityEntry())
	}
	if kafka {
		out = append(out, kafkaEntry())
	}
	return out
}
