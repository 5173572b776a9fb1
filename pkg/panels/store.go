// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package panels reads panel definition files and imports them into the
// backend. A panel file bundles one dashboard with the saved objects it
// needs: visualizations, searches and index patterns.
package panels

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMalformedPanel marks a panel file that parsed as JSON but does not
// carry a dashboard with an identifier.
var ErrMalformedPanel = errors.New("malformed panel file")

// SavedObject is one importable document inside a panel file.
type SavedObject struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

// Panel is the parsed content of a panel file.
type Panel struct {
	Dashboard      SavedObject   `json:"dashboard"`
	Visualizations []SavedObject `json:"visualizations"`
	Searches       []SavedObject `json:"searches"`
	IndexPatterns  []SavedObject `json:"index_patterns"`
}

// hasReleaseDate reports whether the dashboard value declares the
// release_date field used for strict, newer-only imports.
func (p *Panel) hasReleaseDate() bool {
	var value map[string]json.RawMessage
	if err := json.Unmarshal(p.Dashboard.Value, &value); err != nil {
		return false
	}
	_, ok := value["release_date"]
	return ok
}

// Store resolves panel file identifiers against a base directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. Panel file identifiers in the
// catalog are relative to it.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Load reads and parses one panel file.
func (s *Store) Load(file string) (*Panel, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, file))
	if err != nil {
		return nil, fmt.Errorf("read panel %s: %w", file, err)
	}
	var panel Panel
	if err := json.Unmarshal(data, &panel); err != nil {
		return nil, fmt.Errorf("parse panel %s: %w: %v", file, ErrMalformedPanel, err)
	}
	if panel.Dashboard.ID == "" {
		return nil, fmt.Errorf("panel %s has no dashboard id: %w", file, ErrMalformedPanel)
	}
	return &panel, nil
}

// DashboardID returns the dashboard identifier a panel file defines.
// The menu builder uses it both as the flat menu key and as the menu
// value.
func (s *Store) DashboardID(file string) (string, error) {
	panel, err := s.Load(file)
	if err != nil {
		return "", err
	}
	return panel.Dashboard.ID, nil
}
