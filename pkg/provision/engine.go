// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package provision orchestrates one dashboard provisioning run: backend
// generation detection, UI settings, index aliases, panel imports and
// the navigation menu, in that order. Phases are independent; a failed
// phase is recorded and the run continues so one bad data source never
// blocks the rest of the deployment.
package provision

import (
	"context"

	"github.com/google/uuid"

	"github.com/panelops/panelops/pkg/catalog"
	"github.com/panelops/panelops/pkg/config"
	"github.com/panelops/panelops/pkg/kibiter"
	"github.com/panelops/panelops/pkg/logging"
	"github.com/panelops/panelops/pkg/panels"
)

// Status is the outcome of one provisioning phase.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarn    Status = "warn"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
)

// Summary reports the outcome of a run, one status per phase.
type Summary struct {
	RunID      string
	Generation kibiter.Generation

	Backend  Status
	Settings Status
	Aliases  Status
	Panels   Status
	Menu     Status
}

// Failed reports whether any phase failed outright.
func (s *Summary) Failed() bool {
	for _, status := range []Status{s.Backend, s.Settings, s.Aliases, s.Panels, s.Menu} {
		if status == StatusFail {
			return true
		}
	}
	return false
}

// Params wires an Engine. Raw and Enrich are the two backend sides;
// Entries is the loaded panel catalog before feature expansion.
// NewImporter is optional and defaults to the HTTP importer over the
// enriched store; tests substitute it.
type Params struct {
	Config  config.Config
	Entries []catalog.Entry
	Raw     *kibiter.Client
	Enrich  *kibiter.Client
	Store   *panels.Store
	Logger  *logging.Logger

	NewImporter func(schema kibiter.Schema) panels.Importer
}

// Engine runs the provisioning sequence.
type Engine struct {
	cfg         config.Config
	entries     []catalog.Entry
	raw         *kibiter.Client
	enrich      *kibiter.Client
	store       *panels.Store
	policy      *catalog.Policy
	expander    *catalog.Expander
	newImporter func(schema kibiter.Schema) panels.Importer
	log         *logging.Logger
}

// NewEngine creates an Engine from its parameters.
func NewEngine(p Params) *Engine {
	e := &Engine{
		cfg:         p.Config,
		entries:     p.Entries,
		raw:         p.Raw,
		enrich:      p.Enrich,
		store:       p.Store,
		policy:      catalog.NewPolicy(),
		expander:    catalog.NewExpander(catalog.DefaultRules()),
		newImporter: p.NewImporter,
		log:         p.Logger,
	}
	if e.log == nil {
		e.log = logging.Default()
	}
	if e.newImporter == nil {
		e.newImporter = func(schema kibiter.Schema) panels.Importer {
			return panels.NewHTTPImporter(p.Enrich, p.Store, schema, p.Config.Panels.Strict, e.log)
		}
	}
	return e
}

// Run executes all phases and returns their outcome. It never returns
// an error: per-phase failures are statuses, and the caller decides how
// fatal they are.
func (e *Engine) Run(ctx context.Context) *Summary {
	summary := &Summary{RunID: uuid.NewString()}
	log := e.log.With("run_id", summary.RunID)

	// The generation is detected once and shared by every phase, so a
	// flapping backend can not leave the run half legacy, half modern.
	summary.Generation = e.enrich.DetectGeneration(ctx)
	schema := kibiter.SchemaFor(summary.Generation)
	if summary.Generation == kibiter.GenerationUnknown {
		log.Error("backend generation unknown, continuing with the modern schema")
		summary.Backend = StatusFail
	} else {
		summary.Backend = StatusOK
		log.Info("provisioning started", "generation", summary.Generation.String())
	}

	summary.Settings = e.configureSettings(ctx, summary.Generation, log)
	summary.Aliases = e.reconcileAliases(ctx, log)

	entries := catalog.WithFeatures(e.entries, e.cfg.Panels.Community, e.cfg.Panels.Kafka)
	summary.Panels = e.importPanels(ctx, schema, entries, log)
	summary.Menu = e.publishMenu(ctx, schema, entries, log)

	return summary
}

// RunAliases reconciles the index aliases only.
func (e *Engine) RunAliases(ctx context.Context) Status {
	return e.reconcileAliases(ctx, e.log)
}

// RunPanels imports the dashboards only. The generation is still probed
// so the right schema drives the writes.
func (e *Engine) RunPanels(ctx context.Context) Status {
	schema := kibiter.SchemaFor(e.enrich.DetectGeneration(ctx))
	entries := catalog.WithFeatures(e.entries, e.cfg.Panels.Community, e.cfg.Panels.Kafka)
	return e.importPanels(ctx, schema, entries, e.log)
}

// RunMenu rebuilds and publishes the navigation menu only.
func (e *Engine) RunMenu(ctx context.Context) Status {
	schema := kibiter.SchemaFor(e.enrich.DetectGeneration(ctx))
	entries := catalog.WithFeatures(e.entries, e.cfg.Panels.Community, e.cfg.Panels.Kafka)
	return e.publishMenu(ctx, schema, entries, e.log)
}

func (e *Engine) configureSettings(ctx context.Context, gen kibiter.Generation, log *logging.Logger) Status {
	if !e.cfg.Panels.Present {
		log.Warn("panels section not configured, skipping UI settings")
		return StatusSkipped
	}
	configurator := kibiter.NewConfigurator(e.enrich, log)
	ok := configurator.Configure(ctx, gen, kibiter.Settings{
		DefaultIndex: e.cfg.Panels.DefaultIndex,
		TimeFrom:     e.cfg.Panels.TimeFrom,
		UIURL:        e.cfg.Panels.UIURL,
		UIVersion:    e.cfg.Panels.UIVersion,
	})
	if !ok {
		return StatusFail
	}
	return StatusOK
}

// reconcileAliases walks every configured data source and keeps going on
// failure, so one broken source does not stop the aliases of the others.
func (e *Engine) reconcileAliases(ctx context.Context, log *logging.Logger) Status {
	sources := e.cfg.EnabledSources()
	if len(sources) == 0 {
		log.Warn("no data sources configured, skipping aliases")
		return StatusSkipped
	}

	manager := kibiter.NewAliasManager(e.raw, e.enrich, e.policy, log)
	failed := 0
	for _, source := range sources {
		sc := e.cfg.Sources[source]
		if err := manager.Reconcile(ctx, source, sc.RawIndex, sc.EnrichedIndex); err != nil {
			log.Error("alias reconciliation failed", "data_source", source, "error", err)
			failed++
		}
	}
	switch {
	case failed == 0:
		return StatusOK
	case failed == len(sources):
		return StatusFail
	default:
		return StatusWarn
	}
}

// importPanels uploads the shared multi-source dashboards first, their
// content filtered down to the expanded source set, then every active
// source's own panels.
func (e *Engine) importPanels(ctx context.Context, schema kibiter.Schema, entries []catalog.Entry, log *logging.Logger) Status {
	expanded := e.expander.Expand(e.activeSources())
	resolved := catalog.Resolve(entries, expanded)
	importer := e.newImporter(schema)

	total, failed := 0, 0
	upload := func(file string, filter []string) {
		total++
		if err := importer.Import(ctx, file, filter); err != nil {
			log.Error("panel import failed", "panel", file, "error", err)
			failed++
		}
	}

	for _, common := range catalog.Common() {
		var filter []string
		if common.MultiSource {
			filter = resolved.Sources()
		}
		upload(common.File, filter)
	}

	seen := map[string]bool{}
	for _, source := range resolved.Sources() {
		for _, file := range resolved.Panels(source) {
			if seen[file] {
				continue
			}
			seen[file] = true
			upload(file, nil)
		}
	}

	switch {
	case failed == 0:
		return StatusOK
	case failed == total:
		return StatusFail
	default:
		return StatusWarn
	}
}

func (e *Engine) publishMenu(ctx context.Context, schema kibiter.Schema, entries []catalog.Entry, log *logging.Logger) Status {
	menu := kibiter.BuildMenu(entries, e.activeSources(), e.store, schema, log)
	publisher := kibiter.NewPublisher(e.enrich, log)
	if err := publisher.Publish(ctx, schema, menu, e.cfg.Project.ShortName); err != nil {
		return StatusFail
	}
	return StatusOK
}

// activeSources is the configured source set plus the synthetic feature
// sources. Menu activation and panel resolution both start from it; the
// implication rules expand it further for panel resolution only.
func (e *Engine) activeSources() []string {
	sources := e.cfg.EnabledSources()
	if e.cfg.Panels.Community {
		sources = append(sources, catalog.CommunitySource)
	}
	if e.cfg.Panels.Kafka {
		sources = append(sources, catalog.KafkaSource)
	}
	return sources
}
