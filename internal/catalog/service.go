/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog owns the persistent program material: stations, sound
// fragments, scenes, prompts, and play history. Song selection for the
// playout pipeline happens here.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
	"github.com/friendsincode/skald_radio/internal/timeline"
)

// RotationWindow is how long a fragment is excluded from automatic
// selection after it last played.
const RotationWindow = 2 * time.Hour

// ErrNoCandidates indicates a scene's sourcing produced no playable songs.
var ErrNoCandidates = errors.New("catalog: no candidate fragments for scene")

// Service provides catalog access and song selection.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// New creates a catalog service.
func New(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// CreateStation persists a new station. A missing ID is generated.
func (s *Service) CreateStation(ctx context.Context, station *models.Station) error {
	if station.ID == "" {
		station.ID = uuid.NewString()
	}
	if station.Name == "" {
		return fmt.Errorf("catalog: station name is required")
	}
	if station.SpeechGain == 0 {
		station.SpeechGain = 1.0
	}
	if err := s.db.WithContext(ctx).Create(station).Error; err != nil {
		return fmt.Errorf("catalog: create station: %w", err)
	}
	s.publish(events.EventStationCreated, station.ID)
	return nil
}

// UpdateStation saves changes to an existing station.
func (s *Service) UpdateStation(ctx context.Context, station *models.Station) error {
	if station.ID == "" {
		return fmt.Errorf("catalog: station id is required")
	}
	if err := s.db.WithContext(ctx).Save(station).Error; err != nil {
		return fmt.Errorf("catalog: update station: %w", err)
	}
	s.publish(events.EventStationUpdated, station.ID)
	return nil
}

// DeleteStation removes a station and its scenes.
func (s *Service) DeleteStation(ctx context.Context, stationID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("station_id = ?", stationID).Delete(&models.Scene{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Station{}, "id = ?", stationID).Error
	})
	if err != nil {
		return fmt.Errorf("catalog: delete station: %w", err)
	}
	s.publish(events.EventStationDeleted, stationID)
	return nil
}

// GetStation loads a station by ID.
func (s *Service) GetStation(ctx context.Context, stationID string) (*models.Station, error) {
	var station models.Station
	if err := s.db.WithContext(ctx).First(&station, "id = ?", stationID).Error; err != nil {
		return nil, err
	}
	return &station, nil
}

// ListStations returns all stations, enabled first.
func (s *Service) ListStations(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	err := s.db.WithContext(ctx).Order("enabled DESC, name ASC").Find(&stations).Error
	return stations, err
}

// EnabledStations returns stations that should be running.
func (s *Service) EnabledStations(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("name ASC").Find(&stations).Error
	return stations, err
}

// SpeechGain reports the gain applied to spoken intros for a station.
func (s *Service) SpeechGain(ctx context.Context, stationID string) (float64, error) {
	station, err := s.GetStation(ctx, stationID)
	if err != nil {
		return 0, err
	}
	if station.SpeechGain <= 0 {
		return 1.0, nil
	}
	return station.SpeechGain, nil
}

// CreateFragment persists a sound fragment.
func (s *Service) CreateFragment(ctx context.Context, frag *models.SoundFragment) error {
	if frag.ID == "" {
		frag.ID = uuid.NewString()
	}
	if frag.Title == "" {
		return fmt.Errorf("catalog: fragment title is required")
	}
	if err := s.db.WithContext(ctx).Create(frag).Error; err != nil {
		return fmt.Errorf("catalog: create fragment: %w", err)
	}
	return nil
}

// GetFragment loads one fragment by ID.
func (s *Service) GetFragment(ctx context.Context, fragmentID string) (*models.SoundFragment, error) {
	var frag models.SoundFragment
	if err := s.db.WithContext(ctx).First(&frag, "id = ?", fragmentID).Error; err != nil {
		return nil, err
	}
	return &frag, nil
}

// ListFragments returns a station's fragments ordered by title.
func (s *Service) ListFragments(ctx context.Context, stationID string) ([]models.SoundFragment, error) {
	var frags []models.SoundFragment
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("title ASC").
		Find(&frags).Error
	return frags, err
}

// CreateScene persists a scene.
func (s *Service) CreateScene(ctx context.Context, scene *models.Scene) error {
	if scene.ID == "" {
		scene.ID = uuid.NewString()
	}
	if scene.Sourcing == "" {
		scene.Sourcing = models.SourcingGenerated
	}
	if err := s.db.WithContext(ctx).Create(scene).Error; err != nil {
		return fmt.Errorf("catalog: create scene: %w", err)
	}
	return nil
}

// ScenesForStation returns a station's scenes in day order.
func (s *Service) ScenesForStation(ctx context.Context, stationID string) ([]models.Scene, error) {
	var scenes []models.Scene
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("position ASC, start_second ASC").
		Find(&scenes).Error
	return scenes, err
}

// CreatePrompt persists a spoken-insert prompt.
func (s *Service) CreatePrompt(ctx context.Context, prompt *models.Prompt) error {
	if prompt.ID == "" {
		prompt.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(prompt).Error; err != nil {
		return fmt.Errorf("catalog: create prompt: %w", err)
	}
	return nil
}

// PromptText returns the template text for a prompt, or "" when the
// prompt does not exist.
func (s *Service) PromptText(ctx context.Context, promptID string) (string, error) {
	if promptID == "" {
		return "", nil
	}
	var prompt models.Prompt
	err := s.db.WithContext(ctx).First(&prompt, "id = ?", promptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return prompt.Text, nil
}

// NextSongs selects up to count songs for a scene according to its
// sourcing mode. Recently played fragments are excluded when enough
// other candidates exist.
func (s *Service) NextSongs(ctx context.Context, scene *models.Scene, count int) ([]timeline.Asset, error) {
	if count <= 0 {
		return nil, nil
	}

	var (
		frags []models.SoundFragment
		err   error
	)

	switch scene.Sourcing {
	case models.SourcingExplicit:
		frags, err = s.explicitFragments(ctx, scene)
	case models.SourcingSearch:
		frags, err = s.queryFragments(ctx, scene.StationID, count, func(q *gorm.DB) *gorm.DB {
			like := "%" + scene.SourcingValue + "%"
			return q.Where("title LIKE ? OR artist LIKE ?", like, like)
		})
	case models.SourcingGenre:
		frags, err = s.queryFragments(ctx, scene.StationID, count, func(q *gorm.DB) *gorm.DB {
			return q.Where("genre_id = ?", scene.SourcingValue)
		})
	case models.SourcingLabel:
		frags, err = s.queryFragments(ctx, scene.StationID, count, func(q *gorm.DB) *gorm.DB {
			return q.Where("label_id = ?", scene.SourcingValue)
		})
	case models.SourcingGenerated:
		frags, err = s.queryFragments(ctx, scene.StationID, count, nil)
	default:
		return nil, fmt.Errorf("catalog: unknown sourcing %q", scene.Sourcing)
	}
	if err != nil {
		return nil, err
	}
	if len(frags) == 0 {
		return nil, ErrNoCandidates
	}

	if len(frags) > count {
		frags = frags[:count]
	}

	assets := make([]timeline.Asset, 0, len(frags))
	for _, f := range frags {
		assets = append(assets, timeline.Asset{
			ID:       f.ID,
			Title:    f.Title,
			Artist:   f.Artist,
			Path:     f.Path,
			Duration: f.Duration,
		})
	}
	return assets, nil
}

// explicitFragments loads the scene's fixed list in its declared order.
// Missing IDs are skipped with a warning; rotation exclusion does not
// apply to explicit lists.
func (s *Service) explicitFragments(ctx context.Context, scene *models.Scene) ([]models.SoundFragment, error) {
	ids := scene.ExplicitFragmentIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	var loaded []models.SoundFragment
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&loaded).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.SoundFragment, len(loaded))
	for _, f := range loaded {
		byID[f.ID] = f
	}

	ordered := make([]models.SoundFragment, 0, len(ids))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			s.logger.Warn().Str("scene_id", scene.ID).Str("fragment_id", id).Msg("explicit fragment not found, skipping")
			continue
		}
		ordered = append(ordered, f)
	}
	return ordered, nil
}

// queryFragments runs a filtered selection with rotation exclusion. When
// the exclusion starves the result below count, it is retried without
// the exclusion so a thin catalog still plays.
func (s *Service) queryFragments(ctx context.Context, stationID string, count int, filter func(*gorm.DB) *gorm.DB) ([]models.SoundFragment, error) {
	run := func(excludeRecent bool) ([]models.SoundFragment, error) {
		q := s.db.WithContext(ctx).Where("station_id = ?", stationID)
		if filter != nil {
			q = filter(q)
		}
		if excludeRecent {
			cutoff := time.Now().Add(-RotationWindow)
			q = q.Where("last_played IS NULL OR last_played < ?", cutoff)
		}
		var frags []models.SoundFragment
		// "IS NOT NULL" sorts never-played rows first on every dialect.
		err := q.Order("last_played IS NOT NULL, last_played ASC, play_count ASC").
			Limit(count).
			Find(&frags).Error
		return frags, err
	}

	frags, err := run(true)
	if err != nil {
		return nil, err
	}
	if len(frags) >= count {
		return frags, nil
	}

	// Thin catalog: let recently played material back in.
	return run(false)
}

// RecordPlay appends a play history row and updates rotation bookkeeping.
func (s *Service) RecordPlay(ctx context.Context, stationID, fragmentID, sceneID string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.PlayHistory{
			ID:         uuid.NewString(),
			StationID:  stationID,
			FragmentID: fragmentID,
			SceneID:    sceneID,
			PlayedAt:   now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.SoundFragment{}).
			Where("id = ?", fragmentID).
			Updates(map[string]any{
				"last_played": now,
				"play_count":  gorm.Expr("play_count + 1"),
			}).Error
	})
}

// RecentPlays returns the station's play history newest first.
func (s *Service) RecentPlays(ctx context.Context, stationID string, limit int) ([]models.PlayHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var plays []models.PlayHistory
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("played_at DESC").
		Limit(limit).
		Find(&plays).Error
	return plays, err
}

func (s *Service) publish(eventType events.EventType, stationID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, events.Payload{"station_id": stationID})
}
