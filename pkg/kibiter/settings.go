// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kibiter

import (
	"context"
	"fmt"
	"strings"

	"github.com/panelops/panelops/pkg/logging"
)

const uiInitResource = "api/kibana/settings/indexPattern:placeholder"

// Settings are the UI defaults written to the backend's config document
// before panels are uploaded.
type Settings struct {
	// DefaultIndex is the index pattern the UI opens on.
	DefaultIndex string
	// TimeFrom is the lower bound of the default time picker, e.g. "now-90d".
	TimeFrom string
	// UIURL and UIVersion identify the UI endpoint used to force the
	// creation of the config index on generation 6. Both optional.
	UIURL     string
	UIVersion string
}

// Configurator writes the UI settings for the detected generation.
type Configurator struct {
	enrich *Client
	log    *logging.Logger
}

// NewConfigurator creates a Configurator over the enriched-store client.
func NewConfigurator(enrich *Client, log *logging.Logger) *Configurator {
	return &Configurator{enrich: enrich, log: log}
}

// Configure writes the default index and time-picker settings. It
// reports success as a boolean: an undetectable stored config version or
// a failed write is logged and yields false, and the run continues with
// whatever configuration the backend already had.
func (c *Configurator) Configure(ctx context.Context, gen Generation, s Settings) bool {
	if gen == Generation6 {
		c.initConfigIndex(ctx, s)
	}

	c.log.Info("configuring backend UI defaults",
		"generation", gen.String(), "default_index", s.DefaultIndex, "time_from", s.TimeFrom)

	version := c.storedVersion(ctx, gen)
	if version == "" {
		c.log.Error("can not find the stored UI version")
		return false
	}
	c.log.Info("backend UI version found", "version", version)

	timePicker := fmt.Sprintf("{\n  \"from\": \"%s\",\n  \"to\": \"now\",\n  \"mode\": \"quick\"\n}", s.TimeFrom)
	settings := map[string]string{
		"defaultIndex":            s.DefaultIndex,
		"timepicker:timeDefaults": timePicker,
	}

	var err error
	if gen == Generation6 {
		err = c.mergeConfig(ctx, ".kibana/doc/config:"+version, settings)
	} else {
		err = c.enrich.Post(ctx, ".kibana/config/"+version, settings, nil)
	}
	if err != nil {
		c.log.Error("can not write UI settings", "version", version, "error", err)
		return false
	}
	return true
}

// initConfigIndex forces the creation of the backend's config index by
// writing a placeholder setting through the UI endpoint. Only needed on
// generation 6, and only attempted when the UI endpoint is configured.
// Failures are logged and tolerated.
func (c *Configurator) initConfigIndex(ctx context.Context, s Settings) {
	if s.UIURL == "" || s.UIVersion == "" {
		return
	}
	ui, err := NewClient(s.UIURL, WithLogger(c.log), WithHTTPClient(c.enrich.http))
	if err != nil {
		c.log.Error("invalid UI url", "url", s.UIURL, "error", err)
		return
	}
	headers := map[string]string{
		"Accept":      "application/json",
		"kbn-version": s.UIVersion,
	}
	body := map[string]string{"value": "*"}
	if err := ui.PostWithHeaders(ctx, uiInitResource, headers, body, nil); err != nil {
		c.log.Error("can not initialize the config index through the UI", "error", err)
	}
}

// storedVersion finds the version the backend's config document is
// stored under. Returns "" when no matching document exists.
func (c *Configurator) storedVersion(ctx context.Context, gen Generation) string {
	var res struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if gen == Generation6 {
		query := map[string]any{
			"stored_fields": []string{"_id"},
			"query":         map[string]any{"term": map[string]string{"type": "config"}},
		}
		if err := c.enrich.GetWithBody(ctx, ".kibana/_search", query, &res); err != nil {
			c.log.Error("can not find the stored UI version", "error", err)
			return ""
		}
		if len(res.Hits.Hits) == 0 {
			return ""
		}
		// Document ids look like "config:6.1.0".
		_, version, _ := strings.Cut(res.Hits.Hits[0].ID, ":")
		return version
	}

	if err := c.enrich.Get(ctx, ".kibana/config/_search", &res); err != nil {
		c.log.Warn("can not find the stored UI version", "error", err)
		return ""
	}
	if len(res.Hits.Hits) == 0 {
		return ""
	}
	return res.Hits.Hits[0].ID
}

// mergeConfig reads the whole config document, merges the settings into
// its config object and writes it back. On generation 6 the config is a
// single document rather than per-key properties, so a partial write
// would drop the keys it does not mention.
func (c *Configurator) mergeConfig(ctx context.Context, resource string, settings map[string]string) error {
	var doc struct {
		Source map[string]any `json:"_source"`
	}
	if err := c.enrich.Get(ctx, resource, &doc); err != nil {
		return fmt.Errorf("read config document: %w", err)
	}
	if doc.Source == nil {
		doc.Source = map[string]any{}
	}
	cfg, ok := doc.Source["config"].(map[string]any)
	if !ok {
		cfg = map[string]any{}
		doc.Source["config"] = cfg
	}
	for field, value := range settings {
		cfg[field] = value
	}
	if err := c.enrich.Post(ctx, resource, doc.Source, nil); err != nil {
		return fmt.Errorf("write config document: %w", err)
	}
	return nil
}
