// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

// CommonPanel is a panel provisioned on every run regardless of which
// data sources are enabled. MultiSource panels are imported with the
// full resolved source set as their data-source filter.
type CommonPanel struct {
	File        string
	MultiSource bool
}

// Common returns the fixed panel set every deployment gets: the overview
// and data-status dashboards (filtered to the active sources) and the
// about page (unfiltered).
func Common() []CommonPanel {
	return []CommonPanel{
		{File: "panels/json/overview.json", MultiSource: true},
		{File: "panels/json/data_status.json", MultiSource: true},
		{File: "panels/json/about.json"},
	}
}

// Resolved is the outcome of intersecting the catalog with the enabled
// data-source set: per source, the panel files and index-pattern files
// to provision. Source order follows catalog declaration order.
type Resolved struct {
	sources []string
	panels  map[string][]string
}

// Resolve intersects the catalog entries with the enabled set. Enabled
// sources with no catalog entry are silently absent from the result.
func Resolve(entries []Entry, enabled []string) *Resolved {
	on := make(map[string]bool, len(enabled))
	for _, s := range enabled {
		on[s] = true
	}

	r := &Resolved{panels: make(map[string][]string)}
	for _, entry := range entries {
		if !on[entry.Source] {
			continue
		}
		var files []string
		for _, item := range entry.Menu {
			files = append(files, item.Panel)
		}
		files = append(files, entry.IndexPatterns...)
		if _, seen := r.panels[entry.Source]; !seen {
			r.sources = append(r.sources, entry.Source)
		}
		r.panels[entry.Source] = append(r.panels[entry.Source], files...)
	}
	return r
}

// Sources returns the resolved data sources in catalog declaration order.
func (r *Resolved) Sources() []string {
	out := make([]string, len(r.sources))
	copy(out, r.sources)
	return out
}

// Panels returns the panel and index-pattern files for one source.
func (r *Resolved) Panels(source string) []string {
	return r.panels[source]
}

// Has reports whether the source resolved to any catalog entry.
func (r *Resolved) Has(source string) bool {
	_, ok := r.panels[source]
	return ok
}
