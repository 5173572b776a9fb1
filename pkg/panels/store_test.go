// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package panels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gitPanel = `{
  "dashboard": {
    "id": "Git-Overview",
    "value": {"title": "Git Overview", "release_date": "2019-01-21"}
  },
  "visualizations": [
    {"id": "git_commits", "value": {"title": "Commits"}},
    {"id": "git_authors", "value": {"title": "Authors"}}
  ],
  "searches": [
    {"id": "git_search", "value": {}}
  ],
  "index_patterns": [
    {"id": "git", "value": {"title": "git"}}
  ]
}`

func writePanel(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestStore_Load(t *testing.T) {
	dir := t.TempDir()
	writePanel(t, dir, "git.json", gitPanel)
	writePanel(t, dir, "broken.json", `{"dashboard": not json`)
	writePanel(t, dir, "no_id.json", `{"dashboard": {"value": {}}}`)
	store := NewStore(dir)

	t.Run("parses a panel file", func(t *testing.T) {
		panel, err := store.Load("git.json")
		require.NoError(t, err)
		assert.Equal(t, "Git-Overview", panel.Dashboard.ID)
		assert.Len(t, panel.Visualizations, 2)
		assert.Len(t, panel.Searches, 1)
		assert.Len(t, panel.IndexPatterns, 1)
		assert.True(t, panel.hasReleaseDate())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := store.Load("nope.json")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := store.Load("broken.json")
		assert.ErrorIs(t, err, ErrMalformedPanel)
	})

	t.Run("dashboard without id", func(t *testing.T) {
		_, err := store.Load("no_id.json")
		assert.ErrorIs(t, err, ErrMalformedPanel)
	})
}

func TestStore_DashboardID(t *testing.T) {
	dir := t.TempDir()
	writePanel(t, dir, "git.json", gitPanel)
	store := NewStore(dir)

	id, err := store.DashboardID("git.json")
	require.NoError(t, err)
	assert.Equal(t, "Git-Overview", id)

	_, err = store.DashboardID("missing.json")
	assert.Error(t, err)
}
