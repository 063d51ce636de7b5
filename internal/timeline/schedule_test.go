/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

import (
	"testing"
	"time"
)

func TestNewStreamScheduleOrdersByStart(t *testing.T) {
	entries := []*LiveScene{
		scene("late", 18, 3600),
		scene("early", 6, 3600),
		scene("mid", 12, 3600),
	}

	s := NewStreamSchedule(entries, at(0, 0))

	got := []string{s.Entries[0].SceneID, s.Entries[1].SceneID, s.Entries[2].SceneID}
	want := []string{"early", "mid", "late"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestEstimatedEndTime(t *testing.T) {
	s := NewStreamSchedule([]*LiveScene{
		scene("a", 8, 4*3600),
		scene("b", 12, 6*3600),
	}, at(0, 0))

	if got := s.EstimatedEndTime(); !got.Equal(at(18, 0)) {
		t.Fatalf("estimated end = %v, want 18:00", got)
	}

	empty := NewStreamSchedule(nil, at(0, 0))
	if !empty.EstimatedEndTime().IsZero() {
		t.Fatal("empty schedule should have zero end time")
	}
}

func TestDerivedCounters(t *testing.T) {
	a := scene("a", 8, 3600)
	b := scene("b", 9, 3600)
	AssignSongs(a, []Asset{asset("s1", 100), asset("s2", 100)}, AssignPolicy{TargetCount: 2})
	AssignSongs(b, []Asset{asset("s3", 100)}, AssignPolicy{TargetCount: 1})

	s := NewStreamSchedule([]*LiveScene{a, b}, at(0, 0))

	if s.SceneCount() != 2 {
		t.Fatalf("scene count = %d, want 2", s.SceneCount())
	}
	if s.TotalSongs() != 3 {
		t.Fatalf("total songs = %d, want 3", s.TotalSongs())
	}
}

func TestDayFraction(t *testing.T) {
	sc := scene("quarter", 0, 6*3600)
	if got := sc.DayFraction(); got != 0.25 {
		t.Fatalf("day fraction = %f, want 0.25", got)
	}
}

func TestDeliveryState(t *testing.T) {
	sc := scene("block", 10, 3600)
	ds := NewDeliveryState(sc)

	if ds.LastSongIndex != -1 {
		t.Fatalf("fresh cursor index = %d, want -1", ds.LastSongIndex)
	}
	if ds.Expired(at(10, 30)) {
		t.Fatal("cursor should not be expired inside the window")
	}
	if !ds.Expired(at(11, 0)) {
		t.Fatal("cursor should expire at the scheduled end")
	}
	if !ds.Matches(sc) {
		t.Fatal("cursor should match its scene")
	}

	ds.Advance(0, at(10, 5))
	if ds.LastSongIndex != 0 || !ds.LastDeliveredAt.Equal(at(10, 5)) {
		t.Fatal("advance did not record delivery")
	}

	open := scene("open", 12, 0)
	if NewDeliveryState(open).Expired(at(23, 59).Add(24 * time.Hour)) {
		t.Fatal("open-ended scene cursor must never expire")
	}
}
