/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

import (
	"testing"
	"time"
)

func asset(id string, duration int) Asset {
	return Asset{ID: id, Title: id, Artist: "artist", Path: "/media/" + id + ".mp3", Duration: duration}
}

func TestAssignSongs_ChainsScheduledStarts(t *testing.T) {
	sc := scene("block", 10, 3600)

	AssignSongs(sc, []Asset{asset("s1", 200), asset("s2", 150)}, AssignPolicy{})

	if len(sc.Songs) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(sc.Songs))
	}
	if !sc.Songs[0].ScheduledStart.Equal(at(10, 0)) {
		t.Errorf("first song start = %v, want 10:00", sc.Songs[0].ScheduledStart)
	}
	want := at(10, 0).Add(200 * time.Second)
	if !sc.Songs[1].ScheduledStart.Equal(want) {
		t.Errorf("second song start = %v, want %v", sc.Songs[1].ScheduledStart, want)
	}
}

func TestAssignSongs_UnknownDurationFallsBackTo180(t *testing.T) {
	sc := scene("block", 10, 3600)

	AssignSongs(sc, []Asset{asset("unknown", 0)}, AssignPolicy{})

	if sc.Songs[0].Duration != DefaultSongDuration {
		t.Fatalf("duration = %d, want %d", sc.Songs[0].Duration, DefaultSongDuration)
	}
}

func TestAssignSongs_StopsWhenDurationFilled(t *testing.T) {
	sc := scene("block", 10, 400)

	appended := AssignSongs(sc, []Asset{asset("s1", 200), asset("s2", 200), asset("s3", 200)}, AssignPolicy{})

	// The third song would start at +400s, past the scene end.
	if appended != 2 {
		t.Fatalf("appended = %d, want 2", appended)
	}
}

func TestAssignSongs_TargetCountPolicy(t *testing.T) {
	sc := scene("block", 10, 0) // open-ended

	assets := []Asset{asset("s1", 100), asset("s2", 100), asset("s3", 100), asset("s4", 100)}
	appended := AssignSongs(sc, assets, AssignPolicy{TargetCount: 3})

	if appended != 3 || len(sc.Songs) != 3 {
		t.Fatalf("appended = %d, len = %d, want 3", appended, len(sc.Songs))
	}
}

func TestAssignSongs_AppendOnlyNeverReorders(t *testing.T) {
	sc := scene("block", 10, 0)
	AssignSongs(sc, []Asset{asset("s1", 100), asset("s2", 100)}, AssignPolicy{TargetCount: 2})

	existing := []string{sc.Songs[0].ID, sc.Songs[1].ID}

	// Re-running assignment appends after the chain, never reorders.
	AssignSongs(sc, []Asset{asset("s3", 100)}, AssignPolicy{TargetCount: 3})

	if sc.Songs[0].ID != existing[0] || sc.Songs[1].ID != existing[1] {
		t.Fatal("existing entries were reordered")
	}
	if len(sc.Songs) != 3 {
		t.Fatalf("len = %d, want 3", len(sc.Songs))
	}
	wantStart := at(10, 0).Add(200 * time.Second)
	if !sc.Songs[2].ScheduledStart.Equal(wantStart) {
		t.Errorf("appended song start = %v, want %v", sc.Songs[2].ScheduledStart, wantStart)
	}
}

func TestMarkPlayedFlipsExactlyOnce(t *testing.T) {
	entry := NewSongEntry(asset("s1", 100), at(10, 0))

	if !entry.MarkPlayed() {
		t.Fatal("first MarkPlayed should flip")
	}
	if entry.MarkPlayed() {
		t.Fatal("second MarkPlayed should be a no-op")
	}
	if !entry.Played {
		t.Fatal("played flag should remain set")
	}
}

func TestRemainingSeconds(t *testing.T) {
	sc := scene("block", 10, 600)
	if got := RemainingSeconds(sc); got != 600 {
		t.Fatalf("remaining = %d, want 600", got)
	}

	AssignSongs(sc, []Asset{asset("s1", 250)}, AssignPolicy{})
	if got := RemainingSeconds(sc); got != 350 {
		t.Fatalf("remaining = %d, want 350", got)
	}

	open := scene("open", 10, 0)
	if got := RemainingSeconds(open); got != 0 {
		t.Fatalf("open-ended remaining = %d, want 0", got)
	}
}
