/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage abstracts where produced audio artifacts live: a local
// filesystem tree for single-node deployments, or an S3-compatible bucket
// when segments must be shared across delivery nodes.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ObjectStore abstracts object storage operations.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// SegmentKey is the canonical object key for one produced segment.
// Producers and delivery nodes must agree on it.
func SegmentKey(stationID string, bitrate int, sequence int64) string {
	return fmt.Sprintf("segments/%s/%d/%d.ts", stationID, bitrate, sequence)
}
