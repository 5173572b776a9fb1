// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package provision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelops/panelops/pkg/catalog"
	"github.com/panelops/panelops/pkg/config"
	"github.com/panelops/panelops/pkg/kibiter"
	"github.com/panelops/panelops/pkg/logging"
	"github.com/panelops/panelops/pkg/panels"
)

// fakeBackend answers every endpoint the engine touches and records the
// calls it saw.
type fakeBackend struct {
	mu          sync.Mutex
	calls       []string
	version     string // empty means the version probe fails
	failAliases bool
}

func (fb *fakeBackend) saw(prefix string) bool {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, call := range fb.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	fb.calls = append(fb.calls, r.Method+" "+r.URL.Path)
	fb.mu.Unlock()

	switch {
	case r.URL.Path == "/":
		if fb.version == "" {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"version":{"number":"` + fb.version + `"}}`))
	case strings.HasPrefix(r.URL.Path, "/_alias/"):
		http.Error(w, `{"error":"missing"}`, http.StatusNotFound)
	case r.URL.Path == "/_aliases":
		if fb.failAliases {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"acknowledged":true}`))
	case r.URL.Path == "/.kibana/_search":
		w.Write([]byte(`{"hits":{"hits":[{"_id":"config:6.1.0"}]}}`))
	case r.URL.Path == "/.kibana/config/_search":
		w.Write([]byte(`{"hits":{"hits":[{"_id":"5.6.0"}]}}`))
	default:
		w.Write([]byte(`{"_source":{}}`))
	}
}

// fakeImporter records which panel files were imported with which
// source filter.
type fakeImporter struct {
	imports []importCall
	fail    map[string]error
}

type importCall struct {
	file   string
	filter []string
}

func (f *fakeImporter) Import(_ context.Context, panelFile string, dataSources []string) error {
	if err := f.fail[panelFile]; err != nil {
		return err
	}
	f.imports = append(f.imports, importCall{file: panelFile, filter: dataSources})
	return nil
}

func (f *fakeImporter) files() []string {
	out := make([]string, len(f.imports))
	for i, call := range f.imports {
		out[i] = call.file
	}
	return out
}

func testEntries() []catalog.Entry {
	return []catalog.Entry{
		{
			Name:   "Git",
			Source: "git",
			Menu:   []catalog.MenuItem{{Name: "Overview", Panel: "git.json"}},
		},
		{
			Name:   "Mailing Lists",
			Source: "mbox",
			Menu:   []catalog.MenuItem{{Name: "Threads", Panel: "mbox.json"}},
		},
	}
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Project.ShortName = "Acme"
	cfg.Panels.Present = true
	cfg.Sources = map[string]config.SourceConfig{
		"git":       {RawIndex: "git-raw-idx", EnrichedIndex: "git-idx"},
		"pipermail": {RawIndex: "pipermail-raw-idx", EnrichedIndex: "mbox-idx"},
	}
	return cfg
}

func testStore(t *testing.T) *panels.Store {
	t.Helper()
	dir := t.TempDir()
	for file, id := range map[string]string{
		"git.json":  "Git-Overview",
		"mbox.json": "Mail-Threads",
	} {
		body := `{"dashboard":{"id":"` + id + `","value":{}}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644))
	}
	return panels.NewStore(dir)
}

func newTestEngine(t *testing.T, cfg config.Config, fb *fakeBackend, im *fakeImporter) *Engine {
	t.Helper()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	log := logging.NewWithHandler(logging.NewCapture())

	client, err := kibiter.NewClient(srv.URL, kibiter.WithLogger(log))
	require.NoError(t, err)

	return NewEngine(Params{
		Config:  cfg,
		Entries: testEntries(),
		Raw:     client,
		Enrich:  client,
		Store:   testStore(t),
		Logger:  log,
		NewImporter: func(kibiter.Schema) panels.Importer {
			return im
		},
	})
}

func TestEngine_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("full run", func(t *testing.T) {
		fb := &fakeBackend{version: "6.1.0"}
		im := &fakeImporter{}
		engine := newTestEngine(t, testConfig(), fb, im)

		summary := engine.Run(ctx)

		assert.False(t, summary.Failed())
		assert.Equal(t, kibiter.Generation6, summary.Generation)
		assert.Equal(t, StatusOK, summary.Backend)
		assert.Equal(t, StatusOK, summary.Settings)
		assert.Equal(t, StatusOK, summary.Aliases)
		assert.Equal(t, StatusOK, summary.Panels)
		assert.Equal(t, StatusOK, summary.Menu)
		assert.NotEmpty(t, summary.RunID)

		// Shared dashboards first, then the per-source panels. The
		// pipermail source has no catalog entry of its own but implies
		// mbox, whose panels must be picked up.
		assert.Equal(t, []string{
			"panels/json/overview.json", "panels/json/data_status.json",
			"panels/json/about.json", "git.json", "mbox.json",
		}, im.files())
		assert.Equal(t, []string{"git", "mbox"}, im.imports[0].filter)
		assert.Nil(t, im.imports[2].filter, "about panel must not be filtered")

		assert.True(t, fb.saw("POST /_aliases"))
		assert.True(t, fb.saw("POST /.kibana/doc/metadashboard"))
		assert.True(t, fb.saw("POST /.kibana/doc/projectname"))
	})

	t.Run("unknown generation fails the backend phase but still publishes", func(t *testing.T) {
		fb := &fakeBackend{version: ""}
		im := &fakeImporter{}
		engine := newTestEngine(t, testConfig(), fb, im)

		summary := engine.Run(ctx)

		assert.True(t, summary.Failed())
		assert.Equal(t, StatusFail, summary.Backend)
		assert.Equal(t, kibiter.GenerationUnknown, summary.Generation)
		assert.NotEmpty(t, im.imports)
		assert.True(t, fb.saw("POST /.kibana/doc/metadashboard"), "menu publishes with the modern schema")
	})

	t.Run("missing panels section skips settings", func(t *testing.T) {
		cfg := testConfig()
		cfg.Panels.Present = false
		fb := &fakeBackend{version: "6.1.0"}
		engine := newTestEngine(t, cfg, fb, &fakeImporter{})

		summary := engine.Run(ctx)

		assert.Equal(t, StatusSkipped, summary.Settings)
		assert.False(t, fb.saw("GET /.kibana/_search"), "settings endpoints must not be touched")
	})

	t.Run("alias failures do not stop the run", func(t *testing.T) {
		fb := &fakeBackend{version: "6.1.0", failAliases: true}
		im := &fakeImporter{}
		engine := newTestEngine(t, testConfig(), fb, im)

		summary := engine.Run(ctx)

		assert.Equal(t, StatusFail, summary.Aliases)
		assert.NotEmpty(t, im.imports, "panels still import after alias failures")
		assert.Equal(t, StatusOK, summary.Menu)
	})

	t.Run("partial panel failure is a warning", func(t *testing.T) {
		fb := &fakeBackend{version: "6.1.0"}
		im := &fakeImporter{fail: map[string]error{"git.json": errors.New("boom")}}
		engine := newTestEngine(t, testConfig(), fb, im)

		summary := engine.Run(ctx)

		assert.Equal(t, StatusWarn, summary.Panels)
		assert.False(t, summary.Failed())
	})

	t.Run("no sources skips aliases", func(t *testing.T) {
		cfg := testConfig()
		cfg.Sources = nil
		fb := &fakeBackend{version: "6.1.0"}
		engine := newTestEngine(t, cfg, fb, &fakeImporter{})

		summary := engine.Run(ctx)

		assert.Equal(t, StatusSkipped, summary.Aliases)
		assert.False(t, fb.saw("POST /_aliases"))
	})
}
