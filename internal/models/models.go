/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"
)

// Station aggregates a stream's catalog and production settings.
type Station struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"uniqueIndex"`
	Slug        string `gorm:"uniqueIndex"`
	Description string `gorm:"type:text"`
	Timezone    string `gorm:"type:varchar(48)"`
	Language    string `gorm:"type:varchar(16)"` // BCP-47 tag for spoken inserts
	VoiceID     string `gorm:"type:varchar(64)"` // TTS voice for this station
	SpeechGain  float64                          // Gain applied to spoken intros when merged over songs
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Genre is a catalog classification for sound fragments.
type Genre struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Label is a record label attached to sound fragments.
type Label struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Prompt is a reusable template for generated spoken inserts.
type Prompt struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	StationID string `gorm:"type:uuid;index"`
	Name      string `gorm:"index"`
	Text      string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SoundFragment is an audio asset in the catalog.
// Duration is zero when analysis has not run; schedulers fall back to a
// default length in that case.
type SoundFragment struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	StationID  string `gorm:"type:uuid;index"`
	Title      string `gorm:"index"`
	Artist     string `gorm:"index"`
	Album      string
	GenreID    string `gorm:"type:uuid;index"`
	LabelID    string `gorm:"type:uuid;index"`
	Duration   int    // Whole seconds; 0 = unknown
	Path       string // Local path when storage backend is local
	StorageKey string // Object key when storage backend is s3
	LastPlayed *time.Time `gorm:"index"`
	PlayCount  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SceneSourcing enumerates how a scene's songs are selected.
type SceneSourcing string

const (
	SourcingExplicit  SceneSourcing = "explicit"  // Fixed fragment list
	SourcingSearch    SceneSourcing = "search"    // Title/artist search term
	SourcingGenre     SceneSourcing = "genre"     // Genre filter
	SourcingLabel     SceneSourcing = "label"     // Label filter
	SourcingGenerated SceneSourcing = "generated" // Produced by a generator collaborator
)

// Scene is a recurring or one-time programming block in a station's day.
// Immutable once materialized for a given day.
type Scene struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	StationID string `gorm:"type:uuid;index"`
	Title     string `gorm:"index"`
	// StartSecond is the scheduled start as seconds after station-local midnight.
	StartSecond int
	// DurationSeconds is the scene length. 0 means the end is implicit:
	// the next scene's start, or open-ended for the last scene of the day.
	DurationSeconds int
	Sourcing        SceneSourcing `gorm:"type:varchar(16)"`
	// SourcingValue carries the search term, genre id, label id, or
	// comma-separated fragment ids depending on Sourcing.
	SourcingValue string `gorm:"type:text"`
	PromptID      string `gorm:"type:uuid"` // Optional spoken-insert prompt
	OneShot       bool   // One-time program rather than a daily recurrence
	Position      int    `gorm:"index"` // Order within the station's day
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExplicitFragmentIDs splits the comma-separated fragment list for explicit sourcing.
func (s *Scene) ExplicitFragmentIDs() []string {
	if s.Sourcing != SourcingExplicit || s.SourcingValue == "" {
		return nil
	}
	parts := strings.Split(s.SourcingValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if id := strings.TrimSpace(p); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// PlayHistory records a delivered song for rotation exclusion.
type PlayHistory struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	StationID  string    `gorm:"type:uuid;index:idx_history_station_time"`
	FragmentID string    `gorm:"type:uuid;index"`
	SceneID    string    `gorm:"type:uuid"`
	PlayedAt   time.Time `gorm:"index:idx_history_station_time"`
	CreatedAt  time.Time
}
