/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package importer bootstraps a deployment from a YAML document:
// stations, their scenes, prompts, and catalog fragments in one file.
package importer

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/skald_radio/internal/catalog"
	"github.com/friendsincode/skald_radio/internal/models"
)

// Document is the root of a bootstrap file.
type Document struct {
	Stations []StationDoc `yaml:"stations"`
}

// StationDoc declares one station with its program material.
type StationDoc struct {
	Name        string        `yaml:"name"`
	Slug        string        `yaml:"slug"`
	Description string        `yaml:"description"`
	Timezone    string        `yaml:"timezone"`
	Language    string        `yaml:"language"`
	VoiceID     string        `yaml:"voice_id"`
	SpeechGain  float64       `yaml:"speech_gain"`
	Enabled     bool          `yaml:"enabled"`
	Prompts     []PromptDoc   `yaml:"prompts"`
	Fragments   []FragmentDoc `yaml:"fragments"`
	Scenes      []SceneDoc    `yaml:"scenes"`
}

// PromptDoc declares a spoken-insert template.
type PromptDoc struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

// FragmentDoc declares a catalog audio asset.
type FragmentDoc struct {
	Title    string `yaml:"title"`
	Artist   string `yaml:"artist"`
	Album    string `yaml:"album"`
	Duration int    `yaml:"duration_seconds"`
	Path     string `yaml:"path"`
}

// SceneDoc declares a programming block. Prompt references the prompt's
// name within the same station.
type SceneDoc struct {
	Title       string `yaml:"title"`
	StartSecond int    `yaml:"start_second"`
	Duration    int    `yaml:"duration_seconds"`
	Sourcing    string `yaml:"sourcing"`
	Value       string `yaml:"value"`
	Prompt      string `yaml:"prompt"`
	OneShot     bool   `yaml:"one_shot"`
}

// Load reads and parses a bootstrap document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("importer: read %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("importer: parse %s: %w", path, err)
	}
	return &doc, nil
}

// Result summarizes what an import created.
type Result struct {
	Stations  int
	Prompts   int
	Fragments int
	Scenes    int
}

// Importer applies bootstrap documents to the catalog.
type Importer struct {
	catalog *catalog.Service
	logger  zerolog.Logger
}

// New creates an importer.
func New(catalogSvc *catalog.Service, logger zerolog.Logger) *Importer {
	return &Importer{
		catalog: catalogSvc,
		logger:  logger.With().Str("component", "importer").Logger(),
	}
}

// Apply creates every declared entity. The document is validated as it
// goes; the first error aborts the import.
func (i *Importer) Apply(ctx context.Context, doc *Document) (Result, error) {
	var res Result

	for _, sd := range doc.Stations {
		if sd.Name == "" {
			return res, fmt.Errorf("importer: station without a name")
		}
		timezone := sd.Timezone
		if timezone == "" {
			timezone = "UTC"
		}

		station := &models.Station{
			Name:        sd.Name,
			Slug:        sd.Slug,
			Description: sd.Description,
			Timezone:    timezone,
			Language:    sd.Language,
			VoiceID:     sd.VoiceID,
			SpeechGain:  sd.SpeechGain,
			Enabled:     sd.Enabled,
		}
		if err := i.catalog.CreateStation(ctx, station); err != nil {
			return res, err
		}
		res.Stations++

		promptIDs := make(map[string]string, len(sd.Prompts))
		for _, pd := range sd.Prompts {
			prompt := &models.Prompt{
				StationID: station.ID,
				Name:      pd.Name,
				Text:      pd.Text,
			}
			if err := i.catalog.CreatePrompt(ctx, prompt); err != nil {
				return res, err
			}
			promptIDs[pd.Name] = prompt.ID
			res.Prompts++
		}

		for _, fd := range sd.Fragments {
			frag := &models.SoundFragment{
				StationID: station.ID,
				Title:     fd.Title,
				Artist:    fd.Artist,
				Album:     fd.Album,
				Duration:  fd.Duration,
				Path:      fd.Path,
			}
			if err := i.catalog.CreateFragment(ctx, frag); err != nil {
				return res, err
			}
			res.Fragments++
		}

		for position, scd := range sd.Scenes {
			sourcing := models.SceneSourcing(scd.Sourcing)
			if sourcing == "" {
				sourcing = models.SourcingGenerated
			}
			switch sourcing {
			case models.SourcingExplicit, models.SourcingSearch, models.SourcingGenre,
				models.SourcingLabel, models.SourcingGenerated:
			default:
				return res, fmt.Errorf("importer: scene %q has unknown sourcing %q", scd.Title, scd.Sourcing)
			}

			promptID := ""
			if scd.Prompt != "" {
				id, ok := promptIDs[scd.Prompt]
				if !ok {
					return res, fmt.Errorf("importer: scene %q references unknown prompt %q", scd.Title, scd.Prompt)
				}
				promptID = id
			}

			scene := &models.Scene{
				StationID:       station.ID,
				Title:           scd.Title,
				StartSecond:     scd.StartSecond,
				DurationSeconds: scd.Duration,
				Sourcing:        sourcing,
				SourcingValue:   scd.Value,
				PromptID:        promptID,
				OneShot:         scd.OneShot,
				Position:        position,
			}
			if err := i.catalog.CreateScene(ctx, scene); err != nil {
				return res, err
			}
			res.Scenes++
		}

		i.logger.Info().
			Str("station", station.Name).
			Int("scenes", len(sd.Scenes)).
			Int("fragments", len(sd.Fragments)).
			Msg("station imported")
	}

	return res, nil
}
