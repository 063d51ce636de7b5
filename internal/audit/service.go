/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/models"
)

// Service persists audit entries for stream lifecycle events it observes
// on the bus.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to relevant events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	statusChange := s.bus.Subscribe(events.EventStatusChange)
	sceneChange := s.bus.Subscribe(events.EventSceneChange)
	scheduleRebuild := s.bus.Subscribe(events.EventScheduleRebuild)
	stationCreated := s.bus.Subscribe(events.EventStationCreated)
	stationUpdated := s.bus.Subscribe(events.EventStationUpdated)
	stationDeleted := s.bus.Subscribe(events.EventStationDeleted)

	go func() {
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("audit service stopped")
				return
			case p := <-statusChange:
				s.record(ctx, models.AuditActionStatusChange, p)
			case p := <-sceneChange:
				s.record(ctx, models.AuditActionSceneChange, p)
			case p := <-scheduleRebuild:
				s.record(ctx, models.AuditActionScheduleRebuild, p)
			case p := <-stationCreated:
				s.record(ctx, models.AuditActionStationCreate, p)
			case p := <-stationUpdated:
				s.record(ctx, models.AuditActionStationUpdate, p)
			case p := <-stationDeleted:
				s.record(ctx, models.AuditActionStationDelete, p)
			}
		}
	}()
}

// Record writes an audit entry directly, outside the event path.
func (s *Service) Record(ctx context.Context, action models.AuditAction, stationID string, details map[string]any) {
	entry := models.AuditLog{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Details:   details,
	}
	if stationID != "" {
		entry.StationID = &stationID
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logger.Warn().Err(err).Str("action", string(action)).Msg("failed to persist audit entry")
	}
}

func (s *Service) record(ctx context.Context, action models.AuditAction, payload events.Payload) {
	stationID, _ := payload["station_id"].(string)
	s.Record(ctx, action, stationID, payload)
}

// StationHistory returns a station's audit entries, newest first.
func (s *Service) StationHistory(ctx context.Context, stationID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
