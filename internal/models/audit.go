/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

const (
	AuditActionStatusChange    AuditAction = "stream.status_change"
	AuditActionSceneChange     AuditAction = "stream.scene_change"
	AuditActionScheduleRebuild AuditAction = "stream.schedule_rebuild"
	AuditActionStationCreate   AuditAction = "station.create"
	AuditActionStationUpdate   AuditAction = "station.update"
	AuditActionStationDelete   AuditAction = "station.delete"
)

// AuditLog records stream lifecycle transitions and catalog mutations.
type AuditLog struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	Timestamp time.Time      `gorm:"index:idx_audit_timestamp;not null"`
	StationID *string        `gorm:"type:uuid;index:idx_audit_station"` // NULL if platform-wide
	Action    AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null"`
	Details   map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
