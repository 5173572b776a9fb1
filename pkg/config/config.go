// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the panelops runtime configuration.
//
// The configuration names the backends, the enabled data sources with
// their raw/enriched indices, and the panel provisioning options. It is
// read once at process start and treated as immutable afterwards.
package config

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Config is the root runtime configuration.
type Config struct {
	Project  ProjectConfig           `mapstructure:"project" yaml:"project"`
	Backends BackendsConfig          `mapstructure:"backends" yaml:"backends"`
	Panels   PanelsConfig            `mapstructure:"panels" yaml:"panels"`
	Sources  map[string]SourceConfig `mapstructure:"sources" yaml:"sources"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ProjectConfig identifies the deployment being dashboarded.
type ProjectConfig struct {
	// ShortName is shown on top of the dashboard menu.
	ShortName string `mapstructure:"short_name" yaml:"short_name"`
}

// BackendsConfig names the two backend sides. Raw data lives in the
// collection store, analytics-ready data in the enrichment store; they
// may be the same cluster.
type BackendsConfig struct {
	Collection string `mapstructure:"collection" yaml:"collection" validate:"required,url"`
	Enrichment string `mapstructure:"enrichment" yaml:"enrichment" validate:"required,url"`
}

// PanelsConfig controls dashboard provisioning. When the section is
// absent from the configuration file the UI-settings phase is skipped
// with a warning and the run continues.
type PanelsConfig struct {
	// Present records whether the section appeared in the loaded file.
	// It is set by the loader, never by the file itself.
	Present bool `mapstructure:"-" yaml:"-"`
	// Catalog is the path of the panel catalog document; empty uses the
	// embedded default.
	Catalog string `mapstructure:"catalog" yaml:"catalog"`
	// Directory is the root the catalog's panel files resolve against.
	Directory string `mapstructure:"directory" yaml:"directory"`
	// DefaultIndex is the index pattern the UI opens on.
	DefaultIndex string `mapstructure:"default_index" yaml:"default_index"`
	// TimeFrom is the default lower time-picker bound, e.g. "now-90d".
	TimeFrom string `mapstructure:"time_from" yaml:"time_from"`
	// UIURL/UIVersion identify the UI endpoint, needed on generation 6
	// to force the creation of the config index.
	UIURL     string `mapstructure:"ui_url" yaml:"ui_url" validate:"omitempty,url"`
	UIVersion string `mapstructure:"ui_version" yaml:"ui_version"`
	// Community and Kafka enable the synthesized aggregate catalog
	// entries.
	Community bool `mapstructure:"community" yaml:"community"`
	Kafka     bool `mapstructure:"kafka" yaml:"kafka"`
	// Strict rejects panels without a release_date field.
	Strict bool `mapstructure:"strict" yaml:"strict"`
}


// SourceConfig holds the per-data-source index names.
type SourceConfig struct {
	RawIndex      string `mapstructure:"raw_index" yaml:"raw_index"`
	EnrichedIndex string `mapstructure:"enriched_index" yaml:"enriched_index"`
}

// LoggingConfig mirrors pkg/logging.Config in file form.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `mapstructure:"dir" yaml:"dir"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// DefaultConfig returns the defaults a fresh deployment starts from.
func DefaultConfig() Config {
	return Config{
		Project: ProjectConfig{ShortName: "PanelOps"},
		Backends: BackendsConfig{
			Collection: "http://localhost:9200",
			Enrichment: "http://localhost:9200",
		},
		Panels: PanelsConfig{
			Directory:    ".",
			DefaultIndex: "git",
			TimeFrom:     "now-90d",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// EnabledSources returns the configured data sources sorted by name, so
// every run walks them in the same order.
func (c *Config) EnabledSources() []string {
	out := make([]string, 0, len(c.Sources))
	for source := range c.Sources {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

// Validate checks the structural constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
