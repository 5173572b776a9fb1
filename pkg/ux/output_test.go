// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"strings"
	"testing"
)

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconSkipped, IconArrow} {
		if icon.Render() == "" {
			t.Errorf("expected non-empty render for icon %q", icon)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	rows := []Row{
		{Name: "backend settings", State: "ok"},
		{Name: "aliases", State: "warn"},
		{Name: "panels", State: "fail"},
		{Name: "menu", State: "skipped"},
	}

	out := RenderSummary("Provisioning", rows)
	for _, want := range []string{"backend settings", "aliases", "panels", "menu"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing row %q:\n%s", want, out)
		}
	}

	SetQuiet(true)
	defer SetQuiet(false)
	out = RenderSummary("Provisioning", rows)
	if !strings.Contains(out, "aliases: warn") {
		t.Errorf("quiet summary missing plain row: %q", out)
	}
	if strings.Contains(out, "Provisioning") {
		t.Errorf("quiet summary must not contain the title: %q", out)
	}
}
