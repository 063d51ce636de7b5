/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timeline models one programming day of a station: materialized
// scenes, the songs assigned to them, and the per-station delivery cursor.
// It is pure data and logic; all I/O belongs to the orchestrator.
//
// Mutable state here (song lists, actual start/end, played flags, the
// delivery cursor) is single-writer: exactly one station goroutine owns
// its instances. External readers must go through snapshot copies.
package timeline

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultSongDuration is assumed when an asset's own length is unknown.
const DefaultSongDuration = 180

const secondsPerDay = 86400

// Asset is the catalog's view of a playable audio file.
type Asset struct {
	ID       string
	Title    string
	Artist   string
	Path     string
	Duration int // Whole seconds; 0 = unknown
}

// ScheduledSongEntry is one song instance placed inside a scene.
type ScheduledSongEntry struct {
	ID             string
	FragmentID     string
	Title          string
	Artist         string
	Path           string
	ScheduledStart time.Time
	Duration       int // Whole seconds
	Played         bool
}

// MarkPlayed flips the played flag exactly once. It reports whether this
// call performed the flip.
func (e *ScheduledSongEntry) MarkPlayed() bool {
	if e.Played {
		return false
	}
	e.Played = true
	return true
}

// End returns the entry's scheduled end.
func (e *ScheduledSongEntry) End() time.Time {
	return e.ScheduledStart.Add(time.Duration(e.Duration) * time.Second)
}

// GenerationStatus tracks produced spoken/generated content for a scene.
type GenerationStatus string

const (
	GenerationNone    GenerationStatus = ""
	GenerationPending GenerationStatus = "pending"
	GenerationReady   GenerationStatus = "ready"
	GenerationFailed  GenerationStatus = "failed"
)

// LiveScene is one day's concrete instantiation of a catalog scene.
// A fresh instance is built when the day rolls over; instances are never
// reused across days.
type LiveScene struct {
	SceneID        string
	Title          string
	ScheduledStart time.Time
	// DurationSeconds is the explicit scene length. 0 means the end is
	// implicit (next scene's start, wrapping to the first scene).
	DurationSeconds int
	Songs           []ScheduledSongEntry

	ActualStart *time.Time
	ActualEnd   *time.Time

	// Generated-content bookkeeping, used when the scene's sourcing mode
	// is "generated".
	Generated     bool
	GenStatus     GenerationStatus
	GenUpdatedAt  time.Time
	GenFragmentID string
}

// HasExplicitEnd reports whether the scene declares its own end.
func (ls *LiveScene) HasExplicitEnd() bool {
	return ls.DurationSeconds > 0
}

// ScheduledEnd returns the explicit end, or the zero time when the end is
// implicit.
func (ls *LiveScene) ScheduledEnd() time.Time {
	if !ls.HasExplicitEnd() {
		return time.Time{}
	}
	return ls.ScheduledStart.Add(time.Duration(ls.DurationSeconds) * time.Second)
}

// DayFraction returns the scene's share of a 24h day, for proportional
// UI and analytics rendering.
func (ls *LiveScene) DayFraction() float64 {
	return float64(ls.DurationSeconds) / float64(secondsPerDay)
}

// NextSongStart returns where the next assigned song would begin: the
// scene's own start, or the end of the last assigned song.
func (ls *LiveScene) NextSongStart() time.Time {
	if len(ls.Songs) == 0 {
		return ls.ScheduledStart
	}
	return ls.Songs[len(ls.Songs)-1].End()
}

// RecordStart stamps the actual playback start once.
func (ls *LiveScene) RecordStart(now time.Time) {
	if ls.ActualStart == nil {
		t := now
		ls.ActualStart = &t
	}
}

// RecordEnd stamps the actual playback end once.
func (ls *LiveScene) RecordEnd(now time.Time) {
	if ls.ActualEnd == nil {
		t := now
		ls.ActualEnd = &t
	}
}

// StreamSchedule is the ordered scene sequence for one programming cycle.
type StreamSchedule struct {
	Entries   []*LiveScene
	CreatedAt time.Time
}

// NewStreamSchedule builds a schedule, ordering entries by scheduled start.
func NewStreamSchedule(entries []*LiveScene, now time.Time) *StreamSchedule {
	sorted := append([]*LiveScene(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScheduledStart.Before(sorted[j].ScheduledStart)
	})
	return &StreamSchedule{Entries: sorted, CreatedAt: now}
}

// EstimatedEndTime returns the last entry's scheduled end, or the zero
// time for an empty schedule or an open-ended last scene.
func (s *StreamSchedule) EstimatedEndTime() time.Time {
	if len(s.Entries) == 0 {
		return time.Time{}
	}
	return s.Entries[len(s.Entries)-1].ScheduledEnd()
}

// SceneCount returns the number of materialized scenes.
func (s *StreamSchedule) SceneCount() int {
	return len(s.Entries)
}

// TotalSongs returns the number of songs assigned across all scenes.
func (s *StreamSchedule) TotalSongs() int {
	total := 0
	for _, e := range s.Entries {
		total += len(e.Songs)
	}
	return total
}

// NewSongEntry creates a scheduled song entry from an asset, applying the
// default duration when the asset's length is unknown.
func NewSongEntry(asset Asset, start time.Time) ScheduledSongEntry {
	duration := asset.Duration
	if duration <= 0 {
		duration = DefaultSongDuration
	}
	return ScheduledSongEntry{
		ID:             uuid.NewString(),
		FragmentID:     asset.ID,
		Title:          asset.Title,
		Artist:         asset.Artist,
		Path:           asset.Path,
		ScheduledStart: start,
		Duration:       duration,
	}
}
