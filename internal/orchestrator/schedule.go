/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/friendsincode/skald_radio/internal/catalog"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/telemetry"
	"github.com/friendsincode/skald_radio/internal/timeline"
)

// rebuildSchedule materializes the station's catalog scenes into fresh
// live instances anchored at the station-local midnight of now. Explicit
// scenes get their full song list immediately; every other sourcing mode
// is filled lazily by topUpSongs. One-shot scenes are resolved separately
// from the recurring timeline.
func (r *Runner) rebuildSchedule(ctx context.Context, now time.Time) error {
	scenes, err := r.songs.ScenesForStation(ctx, r.station.ID)
	if err != nil {
		return err
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)

	var timed []*timeline.LiveScene
	var oneShots []*timeline.LiveScene
	sceneModels := make(map[string]models.Scene, len(scenes))

	for _, sc := range scenes {
		live := &timeline.LiveScene{
			SceneID:         sc.ID,
			Title:           sc.Title,
			ScheduledStart:  midnight.Add(time.Duration(sc.StartSecond) * time.Second),
			DurationSeconds: sc.DurationSeconds,
			Generated:       sc.Sourcing == models.SourcingGenerated,
		}

		if sc.Sourcing == models.SourcingExplicit {
			ids := sc.ExplicitFragmentIDs()
			if len(ids) > 0 {
				model := sc
				assets, err := r.songs.NextSongs(ctx, &model, len(ids))
				if err != nil && !errors.Is(err, catalog.ErrNoCandidates) {
					return err
				}
				timeline.AssignSongs(live, assets, timeline.AssignPolicy{TargetCount: len(assets)})
			}
		}

		sceneModels[sc.ID] = sc
		if sc.OneShot {
			oneShots = append(oneShots, live)
		} else {
			timed = append(timed, live)
		}
	}

	r.mu.Lock()
	r.schedule = timeline.NewStreamSchedule(timed, now)
	r.oneShots = oneShots
	r.sceneModels = sceneModels
	r.current = nil
	r.delivery = nil
	r.scheduleDay = now.Format("2006-01-02")
	r.mu.Unlock()

	telemetry.ScheduleRebuildsTotal.WithLabelValues(r.station.ID).Inc()
	r.bus.Publish(events.EventScheduleRebuild, events.Payload{
		"station_id": r.station.ID,
		"day":        r.scheduleDay,
		"scenes":     len(timed),
		"one_shots":  len(oneShots),
	})
	r.logger.Info().
		Str("day", r.scheduleDay).
		Int("scenes", len(timed)).
		Int("one_shots", len(oneShots)).
		Msg("stream schedule rebuilt")

	return nil
}
