/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package orchestrator

import (
	"time"

	"github.com/friendsincode/skald_radio/internal/streamstate"
	"github.com/friendsincode/skald_radio/internal/timeline"
)

// Snapshot is a read-only view of a running station for the API surface.
type Snapshot struct {
	StationID   string              `json:"station_id"`
	StationName string              `json:"station_name"`
	Status      streamstate.Status  `json:"status"`
	StartedAt   time.Time           `json:"started_at,omitempty"`
	SceneID     string              `json:"scene_id,omitempty"`
	SceneTitle  string              `json:"scene_title,omitempty"`
	NowPlaying  *NowPlaying         `json:"now_playing,omitempty"`
	QueueDepths map[int]int         `json:"queue_depths"`
	ScheduleDay string              `json:"schedule_day,omitempty"`
	SceneCount  int                 `json:"scene_count"`
	TotalSongs  int                 `json:"total_songs"`
}

// ScheduledSong is one assigned song in a schedule view.
type ScheduledSong struct {
	FragmentID     string    `json:"fragment_id"`
	Title          string    `json:"title"`
	Artist         string    `json:"artist"`
	ScheduledStart time.Time `json:"scheduled_start"`
	Duration       int       `json:"duration_seconds"`
	Played         bool      `json:"played"`
}

// ScheduledScene is one materialized scene in a schedule view.
type ScheduledScene struct {
	SceneID        string          `json:"scene_id"`
	Title          string          `json:"title"`
	ScheduledStart time.Time       `json:"scheduled_start"`
	Duration       int             `json:"duration_seconds"` // 0 = open-ended
	DayFraction    float64         `json:"day_fraction"`     // Duration's share of 24h; 0 when open-ended
	OneShot        bool            `json:"one_shot"`
	ActualStart    *time.Time      `json:"actual_start,omitempty"`
	ActualEnd      *time.Time      `json:"actual_end,omitempty"`
	Songs          []ScheduledSong `json:"songs"`
}

// Snapshot returns the runner's current public state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		StationID:   r.station.ID,
		StationName: r.station.Name,
		Status:      r.recorder.Current(),
		StartedAt:   r.recorder.StartTime(),
		ScheduleDay: r.scheduleDay,
		QueueDepths: make(map[int]int, len(r.buffers)),
	}
	for bitrate, buf := range r.buffers {
		snap.QueueDepths[bitrate] = buf.Len()
	}
	if r.current != nil {
		snap.SceneID = r.current.SceneID
		snap.SceneTitle = r.current.Title
	}
	if r.nowPlaying != nil {
		np := *r.nowPlaying
		snap.NowPlaying = &np
	}
	if r.schedule != nil {
		snap.SceneCount = r.schedule.SceneCount() + len(r.oneShots)
		snap.TotalSongs = r.schedule.TotalSongs()
	}
	return snap
}

// Schedule returns the materialized day as a copy safe for encoding.
func (r *Runner) Schedule() []ScheduledScene {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ScheduledScene
	if r.schedule != nil {
		for _, live := range r.schedule.Entries {
			out = append(out, sceneView(live, false))
		}
	}
	for _, live := range r.oneShots {
		out = append(out, sceneView(live, true))
	}
	return out
}

func sceneView(live *timeline.LiveScene, oneShot bool) ScheduledScene {
	view := ScheduledScene{
		SceneID:        live.SceneID,
		Title:          live.Title,
		ScheduledStart: live.ScheduledStart,
		Duration:       live.DurationSeconds,
		DayFraction:    live.DayFraction(),
		OneShot:        oneShot,
		Songs:          make([]ScheduledSong, 0, len(live.Songs)),
	}
	if live.ActualStart != nil {
		t := *live.ActualStart
		view.ActualStart = &t
	}
	if live.ActualEnd != nil {
		t := *live.ActualEnd
		view.ActualEnd = &t
	}
	for _, song := range live.Songs {
		view.Songs = append(view.Songs, ScheduledSong{
			FragmentID:     song.FragmentID,
			Title:          song.Title,
			Artist:         song.Artist,
			ScheduledStart: song.ScheduledStart,
			Duration:       song.Duration,
			Played:         song.Played,
		})
	}
	return view
}
