/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

import "time"

// DeliveryState is the per-station cursor over the active scene. It is
// reset whenever the active scene changes and is owned by the station's
// orchestrator goroutine.
type DeliveryState struct {
	SceneID         string
	SceneStart      time.Time
	SceneEnd        time.Time // Zero for open-ended scenes
	LastSongIndex   int       // -1 when nothing has been delivered yet
	LastDeliveredAt time.Time
}

// NewDeliveryState builds a fresh cursor for the given scene.
func NewDeliveryState(scene *LiveScene) *DeliveryState {
	return &DeliveryState{
		SceneID:       scene.SceneID,
		SceneStart:    scene.ScheduledStart,
		SceneEnd:      scene.ScheduledEnd(),
		LastSongIndex: -1,
	}
}

// Expired reports whether now has passed the scene's scheduled end,
// signalling the orchestrator to advance. Open-ended scenes never expire.
func (ds *DeliveryState) Expired(now time.Time) bool {
	if ds.SceneEnd.IsZero() {
		return false
	}
	return now.After(ds.SceneEnd) || now.Equal(ds.SceneEnd)
}

// Advance records a delivered song index.
func (ds *DeliveryState) Advance(songIndex int, now time.Time) {
	ds.LastSongIndex = songIndex
	ds.LastDeliveredAt = now
}

// Matches reports whether the cursor still points at the given scene.
func (ds *DeliveryState) Matches(scene *LiveScene) bool {
	return ds != nil && scene != nil && ds.SceneID == scene.SceneID
}
