/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/skald_radio/internal/catalog"
	"github.com/friendsincode/skald_radio/internal/db"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import stations from a YAML bootstrap file",
	Long:  "Import stations, scenes, prompts, and catalog fragments from a YAML bootstrap document",
	RunE:  runImport,
}

var importFilePath string

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importFilePath, "file", "", "Path to the YAML bootstrap document (required)")
	importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("file", importFilePath).Msg("starting bootstrap import")

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	doc, err := importer.Load(importFilePath)
	if err != nil {
		return err
	}

	catalogSvc := catalog.New(database, events.NewBus(), logger)
	result, err := importer.New(catalogSvc, logger).Apply(context.Background(), doc)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("\nImport Complete!\n")
	fmt.Printf("  Stations:  %d created\n", result.Stations)
	fmt.Printf("  Prompts:   %d created\n", result.Prompts)
	fmt.Printf("  Fragments: %d created\n", result.Fragments)
	fmt.Printf("  Scenes:    %d created\n", result.Scenes)

	logger.Info().Msg("bootstrap import completed successfully")
	return nil
}
