/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/cache"
	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/storage"
	"github.com/friendsincode/skald_radio/internal/streamstate"
	"github.com/friendsincode/skald_radio/internal/tts"
)

// syncInterval is how often the manager reconciles running stations
// against the catalog's enabled set.
const syncInterval = 30 * time.Second

// StationLister enumerates the stations that should be running.
type StationLister interface {
	EnabledStations(ctx context.Context) ([]models.Station, error)
}

type runnerHandle struct {
	runner *Runner
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager starts and stops station runners and exposes their state. All
// runners share one bounded worker pool for blocking mix and transcode
// jobs.
type Manager struct {
	cfg      *config.Config
	stations StationLister
	songs    SongSource
	mixer    Mixer
	slicer   Slicer
	speech   tts.Synthesizer
	bus      *events.Bus
	cache    *cache.Cache
	store    storage.ObjectStore
	sem      chan struct{}
	logger   zerolog.Logger

	mu      sync.Mutex
	runners map[string]*runnerHandle
}

// NewManager creates a station manager.
func NewManager(
	cfg *config.Config,
	stations StationLister,
	songs SongSource,
	mix Mixer,
	slicer Slicer,
	speech tts.Synthesizer,
	bus *events.Bus,
	segmentCache *cache.Cache,
	store storage.ObjectStore,
	logger zerolog.Logger,
) *Manager {
	workers := cfg.MixWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:      cfg,
		stations: stations,
		songs:    songs,
		mixer:    mix,
		slicer:   slicer,
		speech:   speech,
		bus:      bus,
		cache:    segmentCache,
		store:    store,
		sem:      make(chan struct{}, workers),
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		runners:  make(map[string]*runnerHandle),
	}
}

// Run reconciles running stations against the catalog until context
// cancellation, then shuts every runner down.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info().Msg("station manager started")

	m.sync(ctx)

	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Shutdown()
			m.logger.Info().Msg("station manager stopped")
			return ctx.Err()
		case <-ticker.C:
			m.sync(ctx)
		}
	}
}

// sync starts runners for newly enabled stations and stops runners whose
// station disappeared or was disabled.
func (m *Manager) sync(ctx context.Context) {
	stations, err := m.stations.EnabledStations(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to list enabled stations")
		return
	}

	enabled := make(map[string]models.Station, len(stations))
	for _, station := range stations {
		enabled[station.ID] = station
	}

	m.mu.Lock()
	var toStop []string
	for id := range m.runners {
		if _, ok := enabled[id]; !ok {
			toStop = append(toStop, id)
		}
	}
	m.mu.Unlock()

	for _, id := range toStop {
		m.StopStation(id)
	}
	for _, station := range stations {
		if err := m.StartStation(ctx, station); err != nil {
			m.logger.Error().Err(err).Str("station", station.ID).Msg("failed to start station")
		}
	}
}

// StartStation launches a runner for the station. Starting an already
// running station is a no-op.
func (m *Manager) StartStation(ctx context.Context, station models.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runners[station.ID]; ok {
		return nil
	}

	recorder := streamstate.NewRecorder(streamstate.StatusOffline)
	stationID := station.ID
	recorder.OnChange(func(change streamstate.ChangeRecord) {
		m.bus.Publish(events.EventStatusChange, events.Payload{
			"station_id": stationID,
			"old":        string(change.Old),
			"new":        string(change.New),
			"at":         change.At,
		})
	})

	runner := newRunner(station, m.cfg, m.songs, m.mixer, m.slicer, m.speech, recorder, m.bus, m.cache, m.store, m.sem, m.logger)

	runCtx, cancel := context.WithCancel(ctx)
	handle := &runnerHandle{runner: runner, cancel: cancel, done: make(chan struct{})}
	m.runners[station.ID] = handle

	go func() {
		defer close(handle.done)
		runner.Run(runCtx)
	}()

	return nil
}

// StopStation stops a running station and waits for its goroutine.
func (m *Manager) StopStation(stationID string) {
	m.mu.Lock()
	handle, ok := m.runners[stationID]
	if ok {
		delete(m.runners, stationID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	handle.cancel()
	<-handle.done
	m.logger.Info().Str("station", stationID).Msg("station stopped")
}

// Shutdown stops all runners.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	handles := make(map[string]*runnerHandle, len(m.runners))
	for id, handle := range m.runners {
		handles[id] = handle
	}
	m.runners = make(map[string]*runnerHandle)
	m.mu.Unlock()

	for id, handle := range handles {
		handle.cancel()
		<-handle.done
		m.logger.Info().Str("station", id).Msg("station stopped")
	}
}

// Runner returns the live runner for a station, if it is running.
func (m *Manager) Runner(stationID string) (*Runner, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle, ok := m.runners[stationID]
	if !ok {
		return nil, false
	}
	return handle.runner, true
}

// Snapshots returns the state of every running station, ordered by
// station ID for stable output.
func (m *Manager) Snapshots() []Snapshot {
	m.mu.Lock()
	runners := make([]*Runner, 0, len(m.runners))
	for _, handle := range m.runners {
		runners = append(runners, handle.runner)
	}
	m.mu.Unlock()

	snaps := make([]Snapshot, 0, len(runners))
	for _, runner := range runners {
		snaps = append(snaps, runner.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].StationID < snaps[j].StationID })
	return snaps
}
