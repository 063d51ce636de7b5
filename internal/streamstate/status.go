/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package streamstate tracks a station stream's lifecycle status and its
// audited transition history. The recorder never rejects a transition;
// whether a transition is sensible is the orchestrator's call.
package streamstate

import (
	"sync"
	"time"
)

// Status enumerates the stream lifecycle states.
type Status string

const (
	StatusOffline        Status = "offline"
	StatusWarmingUp      Status = "warming_up"
	StatusOnline         Status = "on_line"
	StatusQueueSaturated Status = "queue_saturated"
	StatusIdle           Status = "idle"
	StatusSystemError    Status = "system_error"
)

// ChangeRecord is one entry in the transition history.
type ChangeRecord struct {
	At  time.Time
	Old Status
	New Status
}

// Recorder holds the current status and its ordered history. The station
// orchestrator is the only writer; reads return copies, so the lock here
// guards reader snapshots, not concurrent writers.
type Recorder struct {
	mu        sync.RWMutex
	current   Status
	startTime time.Time
	history   []ChangeRecord
	now       func() time.Time
	onChange  func(ChangeRecord)
}

// NewRecorder creates a recorder starting in the given status with no
// history. The first actual transition stamps the stream's start time.
func NewRecorder(initial Status) *Recorder {
	return &Recorder{current: initial, now: time.Now}
}

// OnChange registers a callback invoked after each recorded transition.
// Must be set before the recorder is in use.
func (r *Recorder) OnChange(fn func(ChangeRecord)) {
	r.onChange = fn
}

// SetStatus records a transition. Setting the current status again is a
// no-op and appends nothing.
func (r *Recorder) SetStatus(next Status) bool {
	r.mu.Lock()
	if next == r.current {
		r.mu.Unlock()
		return false
	}

	record := ChangeRecord{At: r.now(), Old: r.current, New: next}
	r.history = append(r.history, record)
	r.current = next
	if r.startTime.IsZero() {
		r.startTime = record.At
	}
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(record)
	}
	return true
}

// Current returns the present status.
func (r *Recorder) Current() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// StartTime returns the timestamp of the first-ever transition, or the
// zero time when nothing has happened yet.
func (r *Recorder) StartTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startTime
}

// History returns a copy of the transition records in order.
func (r *Recorder) History() []ChangeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ChangeRecord(nil), r.history...)
}
