// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package panels

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/panelops/panelops/pkg/kibiter"
	"github.com/panelops/panelops/pkg/logging"
)

// ErrMissingReleaseField marks a panel rejected by a strict import
// because its dashboard declares no release_date.
var ErrMissingReleaseField = errors.New("dashboard does not include the release_date field")

// Importer imports one panel file into the backend, optionally filtered
// to the given data sources.
type Importer interface {
	Import(ctx context.Context, panelFile string, dataSources []string) error
}

// DocWriter is the backend write surface the importer needs.
// *kibiter.Client satisfies it.
type DocWriter interface {
	Post(ctx context.Context, resource string, body, out any) error
}

// HTTPImporter uploads every saved object of a panel file to the
// backend, dashboard last so a partially imported panel never surfaces
// in the UI.
type HTTPImporter struct {
	backend DocWriter
	store   *Store
	schema  kibiter.Schema
	strict  bool
	log     *logging.Logger
}

// NewHTTPImporter builds an importer for one backend generation. When
// strict is set, panels without a release_date field are rejected with
// ErrMissingReleaseField.
func NewHTTPImporter(backend DocWriter, store *Store, schema kibiter.Schema, strict bool, log *logging.Logger) *HTTPImporter {
	return &HTTPImporter{backend: backend, store: store, schema: schema, strict: strict, log: log}
}

// Import loads the panel file and writes its objects to the backend.
// When dataSources is non-empty, only visualizations, searches and index
// patterns named after one of those sources are imported; the dashboard
// itself always is.
func (im *HTTPImporter) Import(ctx context.Context, panelFile string, dataSources []string) error {
	panel, err := im.store.Load(panelFile)
	if err != nil {
		return err
	}
	if im.strict && !panel.hasReleaseDate() {
		return fmt.Errorf("panel %s: %w", panelFile, ErrMissingReleaseField)
	}

	sections := []struct {
		docType string
		objects []SavedObject
	}{
		{"index-pattern", panel.IndexPatterns},
		{"search", panel.Searches},
		{"visualization", panel.Visualizations},
	}
	for _, section := range sections {
		for _, object := range section.objects {
			if !matchesSources(object.ID, dataSources) {
				im.log.Debug("object filtered out by data sources",
					"panel", panelFile, "type", section.docType, "id", object.ID)
				continue
			}
			if err := im.writeObject(ctx, section.docType, object); err != nil {
				return fmt.Errorf("import panel %s: %w", panelFile, err)
			}
		}
	}

	if err := im.writeObject(ctx, "dashboard", panel.Dashboard); err != nil {
		return fmt.Errorf("import panel %s: %w", panelFile, err)
	}
	im.log.Info("panel imported", "panel", panelFile, "dashboard", panel.Dashboard.ID)
	return nil
}

func (im *HTTPImporter) writeObject(ctx context.Context, docType string, object SavedObject) error {
	resource := im.schema.DocResource(docType, object.ID)
	payload := im.schema.WrapDoc(docType, object.Value)
	if err := im.backend.Post(ctx, resource, payload, nil); err != nil {
		return fmt.Errorf("write %s %s: %w", docType, object.ID, err)
	}
	return nil
}

// matchesSources reports whether a saved-object id belongs to one of the
// data sources. Object ids in the panel files are prefixed with their
// source name ("git_commits", "mbox-threads"), so a prefix match on the
// normalized source is sufficient.
func matchesSources(id string, sources []string) bool {
	if len(sources) == 0 {
		return true
	}
	lower := strings.ToLower(id)
	for _, source := range sources {
		s := strings.ToLower(strings.ReplaceAll(source, ":", "_"))
		if lower == s || strings.HasPrefix(lower, s+"_") || strings.HasPrefix(lower, s+"-") {
			return true
		}
	}
	return false
}
