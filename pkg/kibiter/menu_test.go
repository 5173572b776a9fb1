// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kibiter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelops/panelops/pkg/catalog"
)

// stubNamer resolves panel files to dashboard identifiers from a fixed
// table; unknown files report a read failure.
type stubNamer map[string]string

func (s stubNamer) DashboardID(panelFile string) (string, error) {
	id, ok := s[panelFile]
	if !ok {
		return "", fmt.Errorf("open %s: file does not exist", panelFile)
	}
	return id, nil
}

func menuEntries() []catalog.Entry {
	return []catalog.Entry{
		{
			Name:   "Git",
			Source: "git",
			Menu: []catalog.MenuItem{
				{Name: "Overview", Panel: "git.json"},
				{Name: "Demographics", Panel: "git_demographics.json"},
			},
		},
		{
			Name:   "Mailing Lists",
			Source: "mbox",
			Menu: []catalog.MenuItem{
				{Name: "Threads", Panel: "mbox.json"},
			},
		},
	}
}

func menuNamer() stubNamer {
	return stubNamer{
		"git.json":              "Git-Overview",
		"git_demographics.json": "Git-Demographics",
		"mbox.json":             "Mail-Threads",
	}
}

func TestMenu_MarshalJSON(t *testing.T) {
	m := NewMenu()
	m.Set("b", "2")
	m.Set("a", "1")
	sub := NewMenu()
	sub.Set("inner", "3")
	m.Set("nested", sub)
	m.Set("a", "4") // duplicate key kept positionally

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"b":"2","a":"1","nested":{"inner":"3"},"a":"4"}`, string(data))
}

func TestBuildMenu(t *testing.T) {
	log, capture := testLogger()

	t.Run("two-level shape", func(t *testing.T) {
		menu := BuildMenu(menuEntries(), []string{"git", "mbox"}, menuNamer(), SchemaFor(Generation6), log)

		require.Equal(t, []string{"Overview", "Git", "Mailing Lists", "Data Status", "About"}, menu.Keys())
		assert.Equal(t, "Overview", menu.Value(0))

		git, ok := menu.Value(1).(*Menu)
		require.True(t, ok)
		assert.Equal(t, []string{"Overview", "Demographics"}, git.Keys())
		assert.Equal(t, "Git-Overview", git.Value(0))

		assert.Equal(t, "Data-Status", menu.Value(3))
		assert.Equal(t, "About", menu.Value(4))
	})

	t.Run("flattened shape", func(t *testing.T) {
		menu := BuildMenu(menuEntries(), []string{"git", "mbox"}, menuNamer(), SchemaFor(Generation4), log)

		assert.Equal(t, []string{
			"Overview",
			"Git Overview",
			"Git Demographics",
			"Mail Threads",
			"Data Status",
			"About",
		}, menu.Keys())
		assert.Equal(t, "Git-Overview", menu.Value(1))
	})

	t.Run("inactive sources are excluded", func(t *testing.T) {
		menu := BuildMenu(menuEntries(), []string{"git"}, menuNamer(), SchemaFor(Generation6), log)
		assert.Equal(t, []string{"Overview", "Git", "Data Status", "About"}, menu.Keys())
	})

	t.Run("unreadable panel loses its item only", func(t *testing.T) {
		namer := menuNamer()
		delete(namer, "git_demographics.json")

		menu := BuildMenu(menuEntries(), []string{"git"}, namer, SchemaFor(Generation6), log)

		git := menu.Value(1).(*Menu)
		assert.Equal(t, []string{"Overview"}, git.Keys())
		assert.True(t, capture.Has("can not open dashboard file"))
	})
}

// recordingBackend remembers every request it served.
type recordingBackend struct {
	mu       sync.Mutex
	calls    []string
	failMenu bool
}

func (rb *recordingBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rb.mu.Lock()
	rb.calls = append(rb.calls, r.Method+" "+r.URL.Path)
	rb.mu.Unlock()
	if rb.failMenu && r.Method == http.MethodPost && r.URL.Path == "/.kibana/doc/metadashboard" {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		return
	}
	w.Write([]byte(`{}`))
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	menu := NewMenu()
	menu.Set("Overview", "Overview")

	t.Run("modern sequence", func(t *testing.T) {
		rb := &recordingBackend{}
		log, _ := testLogger()
		p := NewPublisher(testClient(t, rb), log)

		require.NoError(t, p.Publish(ctx, SchemaFor(Generation6), menu, "Acme"))

		assert.Equal(t, []string{
			"PUT /.kibana/_mapping/doc",
			"POST /.kibana/doc/projectname",
			"DELETE /.kibana/doc/metadashboard",
			"PUT /.kibana/_mapping/doc",
			"POST /.kibana/doc/metadashboard",
		}, rb.calls)
	})

	t.Run("legacy sequence skips title and mapping", func(t *testing.T) {
		rb := &recordingBackend{}
		log, _ := testLogger()
		p := NewPublisher(testClient(t, rb), log)

		require.NoError(t, p.Publish(ctx, SchemaFor(Generation5), menu, "Acme"))

		assert.Equal(t, []string{
			"DELETE /.kibana/metadashboard/main",
			"POST /.kibana/metadashboard/main",
		}, rb.calls)
	})

	t.Run("failed menu write is fatal", func(t *testing.T) {
		rb := &recordingBackend{failMenu: true}
		log, capture := testLogger()
		p := NewPublisher(testClient(t, rb), log)

		err := p.Publish(ctx, SchemaFor(Generation6), menu, "Acme")
		require.ErrorContains(t, err, "write menu")
		assert.True(t, capture.Has("can not create the dashboard menu, backend is left without one"))
	})
}
