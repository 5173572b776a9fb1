// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/panelops/panelops/pkg/catalog"
	"github.com/panelops/panelops/pkg/config"
	"github.com/panelops/panelops/pkg/kibiter"
	"github.com/panelops/panelops/pkg/logging"
	"github.com/panelops/panelops/pkg/panels"
	"github.com/panelops/panelops/pkg/provision"
	"github.com/panelops/panelops/pkg/ux"
)

// version is stamped at build time with -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
	quiet      bool

	rootCmd = &cobra.Command{
		Use:   "panelops",
		Short: "Provision analytics dashboards, index aliases and menus",
		Long: `panelops provisions a metrics deployment's UI layer: it points the
index aliases the dashboards expect at the real indices, imports the
dashboard panels for the enabled data sources and publishes the
navigation menu, adapting to the backend generation it finds.`,
	}
	provisionCmd = &cobra.Command{
		Use:   "provision",
		Short: "Run the full provisioning sequence",
		Long:  `Detects the backend generation, writes the UI settings, reconciles the index aliases, imports the panels and publishes the navigation menu.`,
		Run:   runProvision,
	}
	aliasesCmd = &cobra.Command{
		Use:   "aliases",
		Short: "Reconcile the index aliases only",
		Run:   runAliases,
	}
	panelsCmd = &cobra.Command{
		Use:   "panels",
		Short: "Import the dashboard panels only",
		Run:   runPanels,
	}
	menuCmd = &cobra.Command{
		Use:   "menu",
		Short: "Rebuild and publish the navigation menu only",
		Run:   runMenu,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the panelops version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("panelops", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the configuration file (default: ./panelops.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Machine-friendly output, no styling")

	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(aliasesCmd)
	rootCmd.AddCommand(panelsCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupEngine() (*provision.Engine, *logging.Logger) {
	ux.SetQuiet(quiet)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	level := logging.LevelFromString(cfg.Logging.Level)
	if verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "panelops",
		JSON:    cfg.Logging.JSON,
		Quiet:   quiet,
	})

	entries, err := catalog.Load(cfg.Panels.Catalog)
	if err != nil {
		log.Fatalf("Error loading the panel catalog: %v", err)
	}

	raw, err := kibiter.NewClient(cfg.Backends.Collection, kibiter.WithLogger(logger))
	if err != nil {
		log.Fatalf("Error creating the collection backend client: %v", err)
	}
	enrich, err := kibiter.NewClient(cfg.Backends.Enrichment, kibiter.WithLogger(logger))
	if err != nil {
		log.Fatalf("Error creating the enrichment backend client: %v", err)
	}

	engine := provision.NewEngine(provision.Params{
		Config:  cfg,
		Entries: entries,
		Raw:     raw,
		Enrich:  enrich,
		Store:   panels.NewStore(cfg.Panels.Directory),
		Logger:  logger,
	})
	return engine, logger
}

func runProvision(cmd *cobra.Command, args []string) {
	engine, logger := setupEngine()
	defer logger.Close()

	summary := engine.Run(context.Background())

	fmt.Print(ux.RenderSummary("Provisioning "+summary.RunID, []ux.Row{
		{Name: "backend (generation " + summary.Generation.String() + ")", State: string(summary.Backend)},
		{Name: "ui settings", State: string(summary.Settings)},
		{Name: "index aliases", State: string(summary.Aliases)},
		{Name: "panels", State: string(summary.Panels)},
		{Name: "menu", State: string(summary.Menu)},
	}))

	if summary.Failed() {
		ux.Error("provisioning finished with failed phases")
		os.Exit(1)
	}
	ux.Success("provisioning complete")
}

func runAliases(cmd *cobra.Command, args []string) {
	engine, logger := setupEngine()
	defer logger.Close()

	finishPhase("index aliases", engine.RunAliases(context.Background()))
}

func runPanels(cmd *cobra.Command, args []string) {
	engine, logger := setupEngine()
	defer logger.Close()

	finishPhase("panels", engine.RunPanels(context.Background()))
}

func runMenu(cmd *cobra.Command, args []string) {
	engine, logger := setupEngine()
	defer logger.Close()

	finishPhase("menu", engine.RunMenu(context.Background()))
}

func finishPhase(name string, status provision.Status) {
	switch status {
	case provision.StatusOK:
		ux.Success(name + " done")
	case provision.StatusWarn:
		ux.Warning(name + " finished with warnings")
	case provision.StatusSkipped:
		ux.Info(name + " skipped")
	default:
		ux.Error(name + " failed")
		os.Exit(1)
	}
}
