/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package streamstate

import (
	"testing"
	"time"
)

func TestSetStatusRecordsTransition(t *testing.T) {
	r := NewRecorder(StatusOffline)

	if !r.SetStatus(StatusWarmingUp) {
		t.Fatal("expected transition to be recorded")
	}
	if r.Current() != StatusWarmingUp {
		t.Fatalf("current = %s, want warming_up", r.Current())
	}

	history := r.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].Old != StatusOffline || history[0].New != StatusWarmingUp {
		t.Fatalf("unexpected record %+v", history[0])
	}
}

func TestSetStatusSameValueIsNoOp(t *testing.T) {
	r := NewRecorder(StatusOffline)
	r.SetStatus(StatusOnline)

	if r.SetStatus(StatusOnline) {
		t.Fatal("repeated status must not record")
	}
	if len(r.History()) != 1 {
		t.Fatalf("history length = %d, want 1", len(r.History()))
	}
}

func TestFirstTransitionSetsStartTimeOnce(t *testing.T) {
	r := NewRecorder(StatusOffline)
	times := []time.Time{
		time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC),
	}
	i := 0
	r.now = func() time.Time { t := times[i]; i++; return t }

	if !r.StartTime().IsZero() {
		t.Fatal("start time must be unset before any transition")
	}

	r.SetStatus(StatusWarmingUp)
	r.SetStatus(StatusOnline)

	if !r.StartTime().Equal(times[0]) {
		t.Fatalf("start time = %v, want %v", r.StartTime(), times[0])
	}
	if len(r.History()) != 2 {
		t.Fatalf("history length = %d, want 2", len(r.History()))
	}
}

func TestNoTransitionIsRejected(t *testing.T) {
	r := NewRecorder(StatusOnline)

	// Backwards and arbitrary transitions are recorded, never rejected.
	for _, s := range []Status{StatusOffline, StatusSystemError, StatusIdle, StatusOnline} {
		r.SetStatus(s)
	}
	if len(r.History()) != 4 {
		t.Fatalf("history length = %d, want 4", len(r.History()))
	}
}

func TestOnChangeCallback(t *testing.T) {
	r := NewRecorder(StatusOffline)
	var got []ChangeRecord
	r.OnChange(func(rec ChangeRecord) { got = append(got, rec) })

	r.SetStatus(StatusWarmingUp)
	r.SetStatus(StatusWarmingUp)
	r.SetStatus(StatusOnline)

	if len(got) != 2 {
		t.Fatalf("callback count = %d, want 2", len(got))
	}
	if got[1].Old != StatusWarmingUp || got[1].New != StatusOnline {
		t.Fatalf("unexpected callback record %+v", got[1])
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	r := NewRecorder(StatusOffline)
	r.SetStatus(StatusOnline)

	h := r.History()
	h[0].New = StatusSystemError

	if r.History()[0].New != StatusOnline {
		t.Fatal("history snapshot must not alias internal state")
	}
}
