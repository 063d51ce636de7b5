/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package orchestrator drives live station production: it materializes
// each station's programming day, resolves the active scene, produces
// songs through the mix and segmentation engines, and keeps the
// per-bitrate delivery buffers filled.
//
// Each station runs in exactly one goroutine; that goroutine is the only
// writer of the station's schedule, delivery cursor, and buffers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/cache"
	"github.com/friendsincode/skald_radio/internal/catalog"
	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/segmenter"
	"github.com/friendsincode/skald_radio/internal/storage"
	"github.com/friendsincode/skald_radio/internal/streamstate"
	"github.com/friendsincode/skald_radio/internal/telemetry"
	"github.com/friendsincode/skald_radio/internal/timeline"
	"github.com/friendsincode/skald_radio/internal/tts"
)

const (
	// produceLookahead is how far ahead of a song's scheduled start its
	// production may begin.
	produceLookahead = 30 * time.Second

	// songLookahead is how many unplayed songs a scene keeps assigned.
	songLookahead = 3
)

// SongSource provides program material for a station.
type SongSource interface {
	ScenesForStation(ctx context.Context, stationID string) ([]models.Scene, error)
	NextSongs(ctx context.Context, scene *models.Scene, count int) ([]timeline.Asset, error)
	PromptText(ctx context.Context, promptID string) (string, error)
	RecordPlay(ctx context.Context, stationID, fragmentID, sceneID string) error
}

// Mixer merges spoken intros over songs.
type Mixer interface {
	MergeSpeechOverSong(ctx context.Context, stationID, speechPath, songPath, outputPath string) (string, error)
}

// Slicer cuts produced audio into delivery segments.
type Slicer interface {
	Slice(ctx context.Context, sourcePath string, meta segmenter.Metadata, bitrates []int) (map[int]*segmenter.Queue, error)
	PrepareDayDirs(now time.Time) error
}

// NowPlaying is the most recently produced song.
type NowPlaying struct {
	FragmentID string    `json:"fragment_id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	SceneID    string    `json:"scene_id"`
	StartedAt  time.Time `json:"started_at"`
}

// Runner produces one station's stream.
type Runner struct {
	station  models.Station
	cfg      *config.Config
	songs    SongSource
	mixer    Mixer
	slicer   Slicer
	speech   tts.Synthesizer
	recorder *streamstate.Recorder
	bus      *events.Bus
	cache    *cache.Cache
	store    storage.ObjectStore
	sem      chan struct{}
	logger   zerolog.Logger
	now      func() time.Time
	loc      *time.Location

	mu          sync.RWMutex
	schedule    *timeline.StreamSchedule
	oneShots    []*timeline.LiveScene
	sceneModels map[string]models.Scene
	current     *timeline.LiveScene
	delivery    *timeline.DeliveryState
	buffers     map[int]*segmenter.Queue
	nowPlaying  *NowPlaying
	scheduleDay string
}

func newRunner(
	station models.Station,
	cfg *config.Config,
	songs SongSource,
	mix Mixer,
	slicer Slicer,
	speech tts.Synthesizer,
	recorder *streamstate.Recorder,
	bus *events.Bus,
	segmentCache *cache.Cache,
	store storage.ObjectStore,
	sem chan struct{},
	logger zerolog.Logger,
) *Runner {
	loc, err := time.LoadLocation(station.Timezone)
	if err != nil || station.Timezone == "" {
		loc = time.UTC
	}
	return &Runner{
		station:     station,
		cfg:         cfg,
		songs:       songs,
		mixer:       mix,
		slicer:      slicer,
		speech:      speech,
		recorder:    recorder,
		bus:         bus,
		cache:       segmentCache,
		store:       store,
		sem:         sem,
		logger:      logger.With().Str("component", "orchestrator").Str("station", station.ID).Logger(),
		now:         time.Now,
		loc:         loc,
		sceneModels: make(map[string]models.Scene),
		buffers:     make(map[int]*segmenter.Queue),
	}
}

// Run executes the station loop until context cancellation.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info().Str("name", r.station.Name).Msg("station runner started")
	r.recorder.SetStatus(streamstate.StatusWarmingUp)

	if err := r.slicer.PrepareDayDirs(r.now().In(r.loc)); err != nil {
		r.logger.Warn().Err(err).Msg("failed to prepare output directories")
	}

	ticker := time.NewTicker(r.cfg.StationTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.recorder.SetStatus(streamstate.StatusOffline)
			r.logger.Info().Msg("station runner stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	telemetry.StationTicksTotal.WithLabelValues(r.station.ID).Inc()
	now := r.now().In(r.loc)

	if r.schedule == nil || r.scheduleDay != now.Format("2006-01-02") {
		if err := r.rebuildSchedule(ctx, now); err != nil {
			r.fail("schedule", err)
			return
		}
	}

	scene := timeline.ResolveActiveScene(now, r.schedule.Entries)
	if scene == nil {
		r.closeExpiredOneShot(now)
		scene = timeline.ResolveOneShot(r.oneShots)
	}
	if scene == nil {
		r.recorder.SetStatus(streamstate.StatusIdle)
		return
	}

	r.ensureDelivery(scene, now)

	if err := r.topUpSongs(ctx, scene); err != nil {
		r.fail("assign", err)
		return
	}

	r.pruneExpired(ctx, now)

	if r.saturated() {
		r.recorder.SetStatus(streamstate.StatusQueueSaturated)
		return
	}

	idx := r.nextDue(scene, now)
	if idx < 0 {
		// Nothing due yet. A saturated stream that drained goes back
		// on line; otherwise the current status stands.
		if r.recorder.Current() == streamstate.StatusQueueSaturated {
			r.recorder.SetStatus(streamstate.StatusOnline)
		}
		return
	}

	if err := r.produce(ctx, scene, idx, now); err != nil {
		r.fail("produce", err)
		return
	}
	r.recorder.SetStatus(streamstate.StatusOnline)
}

func (r *Runner) fail(stage string, err error) {
	telemetry.StationErrorsTotal.WithLabelValues(r.station.ID, stage).Inc()
	r.logger.Error().Err(err).Str("stage", stage).Msg("station tick failed")
	r.recorder.SetStatus(streamstate.StatusSystemError)
}

// ensureDelivery opens a delivery cursor when the active scene changes.
func (r *Runner) ensureDelivery(scene *timeline.LiveScene, now time.Time) {
	if r.delivery != nil && r.delivery.Matches(scene) {
		return
	}

	if r.current != nil && r.current != scene {
		r.current.RecordEnd(now)
	}
	scene.RecordStart(now)

	r.mu.Lock()
	r.current = scene
	r.delivery = timeline.NewDeliveryState(scene)
	r.mu.Unlock()

	r.logger.Info().Str("scene", scene.SceneID).Str("title", scene.Title).Msg("scene change")
	r.bus.Publish(events.EventSceneChange, events.Payload{
		"station_id": r.station.ID,
		"scene_id":   scene.SceneID,
		"title":      scene.Title,
	})
}

// topUpSongs keeps the active scene's unplayed backlog at songLookahead.
// Explicit scenes get their full list at schedule build and are never
// topped up. An empty catalog is not an error; the stream idles.
func (r *Runner) topUpSongs(ctx context.Context, scene *timeline.LiveScene) error {
	model, ok := r.sceneModels[scene.SceneID]
	if !ok || model.Sourcing == models.SourcingExplicit {
		return nil
	}
	if scene.HasExplicitEnd() && !scene.NextSongStart().Before(scene.ScheduledEnd()) {
		return nil
	}

	unplayed := 0
	for i := range scene.Songs {
		if !scene.Songs[i].Played {
			unplayed++
		}
	}
	if unplayed >= songLookahead {
		return nil
	}
	need := songLookahead - unplayed

	assets, err := r.songs.NextSongs(ctx, &model, need)
	if errors.Is(err, catalog.ErrNoCandidates) {
		return nil
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	added := timeline.AssignSongs(scene, assets, timeline.AssignPolicy{TargetCount: len(scene.Songs) + need})
	r.mu.Unlock()

	if added > 0 {
		r.logger.Debug().Int("added", added).Str("scene", scene.SceneID).Msg("assigned songs")
	}
	return nil
}

// nextDue returns the index of the first unplayed song whose production
// window has opened, or -1.
func (r *Runner) nextDue(scene *timeline.LiveScene, now time.Time) int {
	horizon := now.Add(produceLookahead)
	for i := range scene.Songs {
		if scene.Songs[i].Played {
			continue
		}
		if scene.Songs[i].ScheduledStart.After(horizon) {
			return -1
		}
		return i
	}
	return -1
}

// produce runs one song through intro mixing and segmentation and pushes
// the result into the delivery buffers. A failed intro degrades to the
// plain song; a segmentation failure of every bitrate is an error.
func (r *Runner) produce(ctx context.Context, scene *timeline.LiveScene, idx int, now time.Time) error {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.sem }()

	entry := &scene.Songs[idx]
	source := entry.Path

	if model, ok := r.sceneModels[scene.SceneID]; ok && model.PromptID != "" {
		mixed, err := r.produceIntro(ctx, model, entry)
		if err != nil {
			r.logger.Warn().Err(err).Str("song", entry.Title).Msg("intro production failed, playing song plain")
			r.bus.Publish(events.EventMixDegraded, events.Payload{
				"station_id": r.station.ID,
				"scene_id":   scene.SceneID,
				"song":       entry.Title,
				"error":      err.Error(),
			})
		} else {
			source = mixed
			defer os.Remove(mixed)
		}
	}

	queues, err := r.slicer.Slice(ctx, source, segmenter.Metadata{Title: entry.Title, Artist: entry.Artist}, r.cfg.Bitrates)
	if err != nil {
		return err
	}
	if len(queues) == 0 {
		return fmt.Errorf("all bitrates failed for %s", entry.Title)
	}

	var pushed []*segmenter.Segment
	r.mu.Lock()
	for bitrate, q := range queues {
		buf := r.buffers[bitrate]
		if buf == nil {
			buf = segmenter.NewQueue()
			r.buffers[bitrate] = buf
		}
		for seg := q.Pop(); seg != nil; seg = q.Pop() {
			buf.Push(seg)
			pushed = append(pushed, seg)
		}
		for buf.Len() > r.cfg.SegmentQueueCap {
			buf.Pop()
		}
		telemetry.SegmentQueueDepth.WithLabelValues(r.station.ID, strconv.Itoa(bitrate)).Set(float64(buf.Len()))
	}
	r.delivery.Advance(idx, now)
	np := &NowPlaying{
		FragmentID: entry.FragmentID,
		Title:      entry.Title,
		Artist:     entry.Artist,
		SceneID:    scene.SceneID,
		StartedAt:  now,
	}
	r.nowPlaying = np
	r.mu.Unlock()

	entry.MarkPlayed()

	if r.store != nil {
		for _, seg := range pushed {
			key := storage.SegmentKey(r.station.ID, seg.Bitrate, seg.Sequence)
			if err := r.store.Put(ctx, key, seg.Data); err != nil {
				r.logger.Warn().Err(err).Str("key", key).Msg("failed to archive segment")
			}
		}
	}

	if err := r.songs.RecordPlay(ctx, r.station.ID, entry.FragmentID, scene.SceneID); err != nil {
		r.logger.Warn().Err(err).Str("fragment", entry.FragmentID).Msg("failed to record play")
	}

	r.bus.Publish(events.EventNowPlaying, events.Payload{
		"station_id": r.station.ID,
		"scene_id":   scene.SceneID,
		"title":      entry.Title,
		"artist":     entry.Artist,
	})
	r.bus.Publish(events.EventSegmentBatch, events.Payload{
		"station_id": r.station.ID,
		"bitrates":   len(queues),
	})

	if r.cache != nil {
		_ = r.cache.SetNowPlaying(ctx, cache.CachedNowPlaying{
			StationID: r.station.ID,
			SceneID:   scene.SceneID,
			Title:     entry.Title,
			Artist:    entry.Artist,
			StartedAt: now,
		})
	}

	r.logger.Info().Str("title", entry.Title).Str("artist", entry.Artist).Msg("song produced")
	return nil
}

// produceIntro synthesizes the scene's prompt and merges it over the
// song's opening. The caller removes the returned file.
func (r *Runner) produceIntro(ctx context.Context, scene models.Scene, entry *timeline.ScheduledSongEntry) (string, error) {
	text, err := r.songs.PromptText(ctx, scene.PromptID)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("prompt %s has no text", scene.PromptID)
	}
	text = renderPrompt(text, r.station.Name, entry.Title, entry.Artist)

	voice := tts.VoiceProfile{ID: r.station.VoiceID, Language: r.station.Language}
	if voice.ID == "" {
		voice.ID = r.cfg.TTSVoiceID
	}

	speech, err := r.speech.Synthesize(ctx, text, voice)
	if err != nil {
		return "", err
	}
	defer os.Remove(speech.Path)

	out := filepath.Join(r.cfg.TempRoot, "skald_intro_"+uuid.NewString()[:8]+".mp3")
	return r.mixer.MergeSpeechOverSong(ctx, r.station.ID, speech.Path, entry.Path, out)
}

// renderPrompt fills the placeholder tokens a prompt template may carry.
func renderPrompt(text, station, title, artist string) string {
	return strings.NewReplacer(
		"{station}", station,
		"{title}", title,
		"{artist}", artist,
	).Replace(text)
}

// closeExpiredOneShot stamps the end of a finished one-shot program so
// the resolver can advance past it. One-shots have no successor scene to
// imply their end; the delivery cursor's expiry is the signal.
func (r *Runner) closeExpiredOneShot(now time.Time) {
	if r.current == nil || !r.delivery.Matches(r.current) || !r.delivery.Expired(now) {
		return
	}
	for _, oneShot := range r.oneShots {
		if oneShot == r.current {
			r.current.RecordEnd(now)
			r.mu.Lock()
			r.current = nil
			r.delivery = nil
			r.mu.Unlock()
			r.logger.Info().Str("scene", oneShot.SceneID).Msg("one-shot program ended")
			return
		}
	}
}

// pruneExpired drops buffered segments that have aged out of the delivery
// window (queue capacity times segment duration), so a saturated buffer
// drains as wall clock advances and production can resume. Archived
// copies are deleted alongside.
func (r *Runner) pruneExpired(ctx context.Context, now time.Time) {
	retention := int64(r.cfg.SegmentQueueCap * r.cfg.SegmentDuration)
	if retention <= 0 {
		return
	}
	cutoff := now.Unix() - retention

	var expired []*segmenter.Segment
	r.mu.Lock()
	for bitrate, buf := range r.buffers {
		for head := buf.Peek(); head != nil && head.Sequence < cutoff; head = buf.Peek() {
			expired = append(expired, buf.Pop())
		}
		telemetry.SegmentQueueDepth.WithLabelValues(r.station.ID, strconv.Itoa(bitrate)).Set(float64(buf.Len()))
	}
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	for _, seg := range expired {
		key := storage.SegmentKey(r.station.ID, seg.Bitrate, seg.Sequence)
		if err := r.store.Delete(ctx, key); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("failed to delete archived segment")
		}
	}
}

// saturated reports whether any delivery buffer is at capacity.
func (r *Runner) saturated() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, buf := range r.buffers {
		if buf.Len() >= r.cfg.SegmentQueueCap {
			return true
		}
	}
	return false
}

// FindSegment looks up a buffered segment by bitrate and sequence.
func (r *Runner) FindSegment(bitrate int, sequence int64) *segmenter.Segment {
	r.mu.RLock()
	buf := r.buffers[bitrate]
	r.mu.RUnlock()
	if buf == nil {
		return nil
	}
	return buf.FindBySequence(sequence)
}

// Segments returns a snapshot of the buffered segments for a bitrate.
func (r *Runner) Segments(bitrate int) []*segmenter.Segment {
	r.mu.RLock()
	buf := r.buffers[bitrate]
	r.mu.RUnlock()
	if buf == nil {
		return nil
	}
	return buf.Snapshot()
}

// Status returns the stream's current lifecycle status.
func (r *Runner) Status() streamstate.Status {
	return r.recorder.Current()
}

// StatusHistory returns the recorded status transitions.
func (r *Runner) StatusHistory() []streamstate.ChangeRecord {
	return r.recorder.History()
}
