/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface: station management, stream
// status, schedules, and segment delivery.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_radio/internal/audit"
	"github.com/friendsincode/skald_radio/internal/auth"
	"github.com/friendsincode/skald_radio/internal/cache"
	"github.com/friendsincode/skald_radio/internal/catalog"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/orchestrator"
	"github.com/friendsincode/skald_radio/internal/storage"
	"github.com/friendsincode/skald_radio/internal/streamstate"
)

// API exposes HTTP handlers.
type API struct {
	catalog   *catalog.Service
	manager   *orchestrator.Manager
	auditSvc  *audit.Service
	cache     *cache.Cache
	store     storage.ObjectStore
	jwtSecret []byte
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(catalogSvc *catalog.Service, manager *orchestrator.Manager, auditSvc *audit.Service, segmentCache *cache.Cache, store storage.ObjectStore, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		catalog:   catalogSvc,
		manager:   manager,
		auditSvc:  auditSvc,
		cache:     segmentCache,
		store:     store,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all handlers on the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		// Playback surface needs no credentials.
		r.Get("/public/stations", a.handlePublicStations)
		r.Get("/streams/{stationID}/now-playing", a.handleNowPlaying)
		r.Get("/streams/{stationID}/{bitrate}/{sequence}", a.handleSegment)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Route("/stations", func(r chi.Router) {
				r.Get("/", a.handleStationsList)
				r.Post("/", a.handleStationsCreate)

				r.Route("/{stationID}", func(r chi.Router) {
					r.Get("/", a.handleStationsGet)
					r.Put("/", a.handleStationsUpdate)
					r.Delete("/", a.handleStationsDelete)

					r.Post("/start", a.handleStationStart)
					r.Post("/stop", a.handleStationStop)

					r.Get("/status", a.handleStationStatus)
					r.Get("/status/history", a.handleStatusHistory)
					r.Get("/schedule", a.handleStationSchedule)
					r.Get("/fragments", a.handleFragmentsList)
					r.Post("/fragments", a.handleFragmentsCreate)
					r.Get("/plays", a.handleRecentPlays)
					r.Get("/audit", a.handleAuditHistory)
				})
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handlePublicStations(w http.ResponseWriter, r *http.Request) {
	stations, err := a.catalog.EnabledStations(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list public stations failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	type publicStation struct {
		ID          string             `json:"id"`
		Name        string             `json:"name"`
		Slug        string             `json:"slug"`
		Description string             `json:"description,omitempty"`
		Status      streamstate.Status `json:"status"`
	}

	out := make([]publicStation, 0, len(stations))
	for _, station := range stations {
		ps := publicStation{
			ID:          station.ID,
			Name:        station.Name,
			Slug:        station.Slug,
			Description: station.Description,
			Status:      streamstate.StatusOffline,
		}
		if runner, ok := a.manager.Runner(station.ID); ok {
			ps.Status = runner.Status()
		}
		out = append(out, ps)
	}

	if a.cache != nil {
		ids := make([]string, 0, len(stations))
		for _, station := range stations {
			ids = append(ids, station.ID)
		}
		_ = a.cache.SetStationIDs(r.Context(), ids)
	}

	writeJSON(w, http.StatusOK, out)
}

// knownStation consults the cached enabled-station set. Only a populated
// cache entry can reject: a miss means unknown to the cache, not unknown
// to the catalog.
func (a *API) knownStation(r *http.Request, stationID string) bool {
	if a.cache == nil {
		return true
	}
	ids, ok := a.cache.GetStationIDs(r.Context())
	if !ok {
		return true
	}
	for _, id := range ids {
		if id == stationID {
			return true
		}
	}
	return false
}

func (a *API) handleStationsList(w http.ResponseWriter, r *http.Request) {
	stations, err := a.catalog.ListStations(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list stations failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

type stationRequest struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Timezone    string  `json:"timezone"`
	Language    string  `json:"language"`
	VoiceID     string  `json:"voice_id"`
	SpeechGain  float64 `json:"speech_gain"`
	Enabled     bool    `json:"enabled"`
}

func (a *API) handleStationsCreate(w http.ResponseWriter, r *http.Request) {
	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	station := models.Station{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Timezone:    req.Timezone,
		Language:    req.Language,
		VoiceID:     req.VoiceID,
		SpeechGain:  req.SpeechGain,
		Enabled:     req.Enabled,
	}
	if err := a.catalog.CreateStation(r.Context(), &station); err != nil {
		a.logger.Error().Err(err).Msg("create station failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if a.cache != nil {
		a.cache.InvalidateStations(r.Context())
	}
	writeJSON(w, http.StatusCreated, station)
}

func (a *API) handleStationsGet(w http.ResponseWriter, r *http.Request) {
	station, err := a.catalog.GetStation(r.Context(), chi.URLParam(r, "stationID"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, station)
}

func (a *API) handleStationsUpdate(w http.ResponseWriter, r *http.Request) {
	station, err := a.catalog.GetStation(r.Context(), chi.URLParam(r, "stationID"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name != "" {
		station.Name = req.Name
	}
	if req.Slug != "" {
		station.Slug = req.Slug
	}
	if req.Description != "" {
		station.Description = req.Description
	}
	if req.Timezone != "" {
		station.Timezone = req.Timezone
	}
	if req.Language != "" {
		station.Language = req.Language
	}
	if req.VoiceID != "" {
		station.VoiceID = req.VoiceID
	}
	if req.SpeechGain > 0 {
		station.SpeechGain = req.SpeechGain
	}
	station.Enabled = req.Enabled

	if err := a.catalog.UpdateStation(r.Context(), station); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if a.cache != nil {
		a.cache.InvalidateStations(r.Context())
	}
	writeJSON(w, http.StatusOK, station)
}

func (a *API) handleStationsDelete(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")
	a.manager.StopStation(stationID)
	if err := a.catalog.DeleteStation(r.Context(), stationID); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if a.cache != nil {
		a.cache.InvalidateStations(r.Context())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleStationStart(w http.ResponseWriter, r *http.Request) {
	station, err := a.catalog.GetStation(r.Context(), chi.URLParam(r, "stationID"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if err := a.manager.StartStation(r.Context(), *station); err != nil {
		a.logger.Error().Err(err).Str("station", station.ID).Msg("start station failed")
		writeError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (a *API) handleStationStop(w http.ResponseWriter, r *http.Request) {
	a.manager.StopStation(chi.URLParam(r, "stationID"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (a *API) handleStationStatus(w http.ResponseWriter, r *http.Request) {
	runner, ok := a.manager.Runner(chi.URLParam(r, "stationID"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_running")
		return
	}
	writeJSON(w, http.StatusOK, runner.Snapshot())
}

func (a *API) handleStatusHistory(w http.ResponseWriter, r *http.Request) {
	runner, ok := a.manager.Runner(chi.URLParam(r, "stationID"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_running")
		return
	}
	writeJSON(w, http.StatusOK, runner.StatusHistory())
}

func (a *API) handleStationSchedule(w http.ResponseWriter, r *http.Request) {
	runner, ok := a.manager.Runner(chi.URLParam(r, "stationID"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_running")
		return
	}
	writeJSON(w, http.StatusOK, runner.Schedule())
}

func (a *API) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")
	if !a.knownStation(r, stationID) {
		writeError(w, http.StatusNotFound, "unknown_station")
		return
	}

	if a.cache != nil {
		if np, ok := a.cache.GetNowPlaying(r.Context(), stationID); ok {
			writeJSON(w, http.StatusOK, np)
			return
		}
	}

	runner, ok := a.manager.Runner(stationID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_running")
		return
	}
	snap := runner.Snapshot()
	if snap.NowPlaying == nil {
		writeError(w, http.StatusNotFound, "nothing_playing")
		return
	}
	writeJSON(w, http.StatusOK, snap.NowPlaying)
}

// handleSegment serves one produced segment's bytes. The cache is tried
// first; a runner lookup both answers the miss and backfills the cache,
// and the segment archive serves anything that already fell out of the
// delivery buffers (or was produced by another node).
func (a *API) handleSegment(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")
	bitrate, err := strconv.Atoi(chi.URLParam(r, "bitrate"))
	if err != nil || bitrate <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_bitrate")
		return
	}
	sequence, err := strconv.ParseInt(chi.URLParam(r, "sequence"), 10, 64)
	if err != nil || sequence < 0 {
		writeError(w, http.StatusBadRequest, "invalid_sequence")
		return
	}
	if !a.knownStation(r, stationID) {
		writeError(w, http.StatusNotFound, "unknown_station")
		return
	}

	if a.cache != nil {
		if data, ok := a.cache.GetSegment(r.Context(), stationID, bitrate, sequence); ok {
			writeSegment(w, data)
			return
		}
	}

	if runner, ok := a.manager.Runner(stationID); ok {
		if seg := runner.FindSegment(bitrate, sequence); seg != nil {
			if a.cache != nil {
				_ = a.cache.SetSegment(r.Context(), stationID, bitrate, sequence, seg.Data)
			}
			writeSegment(w, seg.Data)
			return
		}
	}

	if a.store != nil {
		data, err := a.store.Get(r.Context(), storage.SegmentKey(stationID, bitrate, sequence))
		if err == nil {
			writeSegment(w, data)
			return
		}
		if !errors.Is(err, storage.ErrNotFound) {
			a.logger.Warn().Err(err).Str("station", stationID).Msg("segment archive read failed")
		}
	}

	writeError(w, http.StatusNotFound, "segment_not_found")
}

func writeSegment(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "video/mp2t")
	_, _ = w.Write(data)
}

type fragmentRequest struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	GenreID    string `json:"genre_id"`
	LabelID    string `json:"label_id"`
	Duration   int    `json:"duration_seconds"`
	Path       string `json:"path"`
	StorageKey string `json:"storage_key"`
}

func (a *API) handleFragmentsList(w http.ResponseWriter, r *http.Request) {
	frags, err := a.catalog.ListFragments(r.Context(), chi.URLParam(r, "stationID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, frags)
}

func (a *API) handleFragmentsCreate(w http.ResponseWriter, r *http.Request) {
	var req fragmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title_required")
		return
	}

	frag := models.SoundFragment{
		ID:         uuid.NewString(),
		StationID:  chi.URLParam(r, "stationID"),
		Title:      req.Title,
		Artist:     req.Artist,
		Album:      req.Album,
		GenreID:    req.GenreID,
		LabelID:    req.LabelID,
		Duration:   req.Duration,
		Path:       req.Path,
		StorageKey: req.StorageKey,
	}
	if err := a.catalog.CreateFragment(r.Context(), &frag); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, frag)
}

func (a *API) handleRecentPlays(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	plays, err := a.catalog.RecentPlays(r.Context(), chi.URLParam(r, "stationID"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, plays)
}

func (a *API) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := a.auditSvc.StationHistory(r.Context(), chi.URLParam(r, "stationID"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
