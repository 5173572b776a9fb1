// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "PANELOPS"

// Load reads the configuration from path, overlays PANELOPS_*
// environment variables and returns the validated result. An empty path
// searches the working directory for panelops.{yaml,yml,json,toml}.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("project.short_name", defaults.Project.ShortName)
	v.SetDefault("backends.collection", defaults.Backends.Collection)
	v.SetDefault("backends.enrichment", defaults.Backends.Enrichment)
	v.SetDefault("panels.directory", defaults.Panels.Directory)
	v.SetDefault("panels.default_index", defaults.Panels.DefaultIndex)
	v.SetDefault("panels.time_from", defaults.Panels.TimeFrom)
	v.SetDefault("logging.level", defaults.Logging.Level)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("panelops")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg.Panels.Present = v.InConfig("panels")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
