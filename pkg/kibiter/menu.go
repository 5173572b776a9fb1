// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kibiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/panelops/panelops/pkg/catalog"
	"github.com/panelops/panelops/pkg/logging"
)

// Fixed entries framing every menu. The catalog-driven entries go
// strictly between Overview and Data Status.
const (
	overviewMenuName   = "Overview"
	dataStatusMenuName = "Data Status"
	aboutMenuName      = "About"

	overviewDashboard   = "Overview"
	dataStatusDashboard = "Data-Status"
	aboutDashboard      = "About"
)

// Menu is an insertion-ordered JSON object. The backend renders menu
// items in the order the document lists its keys, so the builder never
// goes through a Go map, whose encoding would sort (or scramble) them.
// Values are either a dashboard identifier (string) or a nested *Menu.
type Menu struct {
	keys   []string
	values []any
}

// NewMenu returns an empty menu document.
func NewMenu() *Menu {
	return &Menu{}
}

// Set appends a key/value pair. Keys are positional: appending an
// already-present key adds a second entry rather than replacing the
// first.
func (m *Menu) Set(key string, value any) {
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

// Len returns the number of entries.
func (m *Menu) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *Menu) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Value returns the value at position i.
func (m *Menu) Value(i int) any { return m.values[i] }

// MarshalJSON encodes the menu as a JSON object preserving insertion
// order.
func (m *Menu) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(m.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PanelNamer resolves a panel file to its dashboard identifier.
// *panels.Store satisfies it.
type PanelNamer interface {
	DashboardID(panelFile string) (string, error)
}

// BuildMenu constructs the navigation menu for the active data sources.
// The result always starts with Overview and ends with Data Status and
// About; the catalog entries whose source is active are inserted between
// them in catalog declaration order. A panel file that cannot be read
// loses its single menu item, logged, and the rest of the entry
// proceeds.
//
// Two-level generations nest the entry's items under its display name.
// The flattened generation emits one key per item, derived from the
// dashboard identifier with its separator replaced by a space.
func BuildMenu(entries []catalog.Entry, active []string, namer PanelNamer, schema Schema, log *logging.Logger) *Menu {
	on := make(map[string]bool, len(active))
	for _, s := range active {
		on[s] = true
	}

	menu := NewMenu()
	menu.Set(overviewMenuName, overviewDashboard)

	for _, entry := range entries {
		if !on[entry.Source] {
			continue
		}
		var sub *Menu
		if !schema.Flat() {
			sub = NewMenu()
			menu.Set(entry.Name, sub)
		}
		for _, item := range entry.Menu {
			dashboard, err := namer.DashboardID(item.Panel)
			if err != nil {
				log.Error("can not open dashboard file",
					"data_source", entry.Source, "panel", item.Panel, "error", err)
				continue
			}
			if schema.Flat() {
				menu.Set(strings.ReplaceAll(dashboard, "-", " "), dashboard)
			} else {
				sub.Set(item.Name, dashboard)
			}
		}
	}

	menu.Set(dataStatusMenuName, dataStatusDashboard)
	menu.Set(aboutMenuName, aboutDashboard)
	return menu
}

// Publisher pushes the menu and title documents to the backend.
type Publisher struct {
	client *Client
	log    *logging.Logger
}

// NewPublisher creates a Publisher over the enriched-store client.
func NewPublisher(client *Client, log *logging.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

// UploadTitle writes the dashboard title shown on top of the menu.
// Generations without a title document skip silently; write failures are
// logged and swallowed, a missing title never blocks the menu.
func (p *Publisher) UploadTitle(ctx context.Context, schema Schema, project string) {
	resource := schema.TitleResource()
	if resource == "" {
		return
	}

	if schema.RequiresMapping() {
		p.log.Debug("adding mapping for dashboard title")
		if err := p.declareMapping(ctx, schema); err != nil {
			p.log.Error("can not create mapping for dashboard title", "error", err)
		}
	}

	p.log.Debug("uploading dashboard title", "project", project)
	if err := p.client.Post(ctx, resource, schema.WrapTitle(project), nil); err != nil {
		p.log.Error("can not create dashboard title", "project", project, "error", err)
	}
}

// RemoveMenu deletes the existing menu document, if any. It runs
// unconditionally before every write so a failed write leaves a missing
// menu, a visible degraded state, instead of a stale incorrect one.
func (p *Publisher) RemoveMenu(ctx context.Context, schema Schema) {
	p.log.Info("removing old dashboard menu, if any")
	if err := p.client.Delete(ctx, schema.MenuResource()); err != nil && !IsNotFound(err) {
		p.log.Debug("menu removal failed", "error", err)
	}
}

// WriteMenu declares the dynamic mapping when the generation requires
// one, then writes the menu document. A write failure is fatal: the old
// menu has already been removed by this point, and the caller aborts the
// publication.
func (p *Publisher) WriteMenu(ctx context.Context, schema Schema, menu *Menu) error {
	p.log.Info("adding dashboard menu", "entries", menu.Len())

	if schema.RequiresMapping() {
		p.log.Debug("adding mapping for the menu document")
		if err := p.declareMapping(ctx, schema); err != nil {
			p.log.Error("can not create mapping for the menu document", "error", err)
		}
	}

	if err := p.client.Post(ctx, schema.MenuResource(), schema.WrapMenu(menu), nil); err != nil {
		p.log.Error("can not create the dashboard menu, backend is left without one",
			"error", err)
		return fmt.Errorf("write menu: %w", err)
	}
	return nil
}

// Publish runs the full publication sequence: title, removal of the
// previous menu, then the new menu write.
func (p *Publisher) Publish(ctx context.Context, schema Schema, menu *Menu, project string) error {
	p.UploadTitle(ctx, schema, project)
	p.RemoveMenu(ctx, schema)
	return p.WriteMenu(ctx, schema, menu)
}

func (p *Publisher) declareMapping(ctx context.Context, schema Schema) error {
	return p.client.Put(ctx, schema.MenuMappingResource(), map[string]string{"dynamic": "true"}, nil)
}
