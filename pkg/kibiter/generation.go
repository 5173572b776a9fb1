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
	"strings"
)

// Generation is the backend schema family the engine must target. It is
// derived once per run. Generation "2" shipped the same UI layer as "4",
// so it is normalized to Generation4.
type Generation string

const (
	GenerationUnknown Generation = ""
	Generation4       Generation = "4"
	Generation5       Generation = "5"
	Generation6       Generation = "6"
)

// String returns the major version the generation stands for.
func (g Generation) String() string {
	if g == GenerationUnknown {
		return "unknown"
	}
	return string(g)
}

// ParseGeneration maps a backend version number to its generation.
// Majors other than the known ones use the legacy two-level family.
func ParseGeneration(version string) Generation {
	major, _, _ := strings.Cut(version, ".")
	switch major {
	case "":
		return GenerationUnknown
	case "2", "4":
		return Generation4
	case "6":
		return Generation6
	default:
		return Generation5
	}
}

// DetectGeneration probes the backend's version document. A failed probe
// is logged and yields GenerationUnknown; it never returns an error, so
// callers decide how degraded they are willing to run.
func (c *Client) DetectGeneration(ctx context.Context) Generation {
	var info struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := c.Get(ctx, "", &info); err != nil {
		c.log.Error("can not find backend version", "url", c.baseURL, "error", err)
		return GenerationUnknown
	}
	gen := ParseGeneration(info.Version.Number)
	if gen == GenerationUnknown {
		c.log.Error("backend version document has no version number", "url", c.baseURL)
		return gen
	}
	c.log.Debug("backend generation detected", "version", info.Version.Number, "generation", gen.String())
	return gen
}

// Schema supplies the resource paths and payload shapes for one
// generation. The two families are closed variants: components hold a
// Schema instead of branching on a version flag.
type Schema interface {
	// MenuResource is the path of the navigation menu document.
	MenuResource() string
	// MenuMappingResource is the path of the dynamic-mapping declaration
	// required before the first menu or title write.
	MenuMappingResource() string
	// TitleResource is the path of the dashboard title document, empty
	// when the generation has no title document.
	TitleResource() string
	// DocResource is the path of an arbitrary saved object.
	DocResource(docType, id string) string
	// WrapMenu produces the write payload for the menu document.
	WrapMenu(m *Menu) any
	// WrapTitle produces the write payload for the title document.
	WrapTitle(project string) any
	// WrapDoc produces the write payload for a saved object.
	WrapDoc(docType string, value json.RawMessage) any
	// RequiresMapping reports whether a dynamic mapping must be declared
	// before writing user documents.
	RequiresMapping() bool
	// Flat reports whether the menu must be flattened to one level.
	Flat() bool
}

// SchemaFor resolves the schema strategy for a generation. An unknown
// generation falls back to the modern family, the safe default when the
// engine continues best-effort after a failed probe.
func SchemaFor(g Generation) Schema {
	switch g {
	case Generation4:
		return legacySchema{flat: true}
	case Generation5:
		return legacySchema{}
	default:
		return modernSchema{}
	}
}

// legacySchema writes raw payloads to type-scoped paths and never
// declares mappings. Generation 4 additionally flattens the menu.
type legacySchema struct {
	flat bool
}

func (legacySchema) MenuResource() string        { return ".kibana/metadashboard/main" }
func (legacySchema) MenuMappingResource() string { return ".kibana/_mapping/metadashboard" }
func (legacySchema) TitleResource() string       { return "" }
func (legacySchema) DocResource(docType, id string) string {
	return ".kibana/" + docType + "/" + id
}
func (legacySchema) WrapMenu(m *Menu) any        { return m }
func (legacySchema) WrapTitle(string) any        { return nil }
func (legacySchema) WrapDoc(_ string, value json.RawMessage) any {
	return value
}
func (legacySchema) RequiresMapping() bool { return false }
func (s legacySchema) Flat() bool          { return s.flat }

// modernSchema wraps every user document in a typed envelope under the
// shared doc path and requires a dynamic mapping before the first write.
type modernSchema struct{}

func (modernSchema) MenuResource() string        { return ".kibana/doc/metadashboard" }
func (modernSchema) MenuMappingResource() string { return ".kibana/_mapping/doc" }
func (modernSchema) TitleResource() string       { return ".kibana/doc/projectname" }
func (modernSchema) DocResource(docType, id string) string {
	return ".kibana/doc/" + docType + ":" + id
}
func (modernSchema) WrapMenu(m *Menu) any {
	return map[string]any{"metadashboard": m}
}
func (modernSchema) WrapTitle(project string) any {
	return map[string]any{"projectname": map[string]string{"name": project}}
}
func (modernSchema) WrapDoc(docType string, value json.RawMessage) any {
	return map[string]any{"type": docType, docType: value}
}
func (modernSchema) RequiresMapping() bool { return true }
func (modernSchema) Flat() bool            { return false }
