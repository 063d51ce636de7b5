/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

import "time"

// ResolveActiveScene returns the scene that should be playing at now, or
// nil when no scene's window contains it. A nil result means the schedule
// needs rebuilding; the caller logs and decides, it must not crash.
//
// Entries are iterated in schedule order and the first match wins. A
// scene is active at time-of-day T when:
//
//   - its end is explicit and T falls in [start, end), or
//   - its end is implicit and the next entry's start (wrapping to the
//     first entry for the last scene) serves as the end, or
//   - the effective end crosses midnight (end <= start), in which case
//     the scene is active when T >= start OR T < end.
//
// A single open-ended scene is therefore always active: its implicit end
// wraps to its own start.
func ResolveActiveScene(now time.Time, entries []*LiveScene) *LiveScene {
	if len(entries) == 0 {
		return nil
	}

	nowSec := secondOfDay(now)

	for i, entry := range entries {
		start := secondOfDay(entry.ScheduledStart)

		var end int
		if entry.HasExplicitEnd() {
			end = (start + entry.DurationSeconds) % secondsPerDay
		} else {
			next := entries[(i+1)%len(entries)]
			end = secondOfDay(next.ScheduledStart)
		}

		if activeAt(nowSec, start, end) {
			return entry
		}
	}
	return nil
}

// ResolveOneShot picks the scene to play for a one-time program. Before
// anything has started it returns the first scene; afterwards it resumes
// the scene in flight, else advances to the first not-yet-started one.
func ResolveOneShot(entries []*LiveScene) *LiveScene {
	if len(entries) == 0 {
		return nil
	}

	started := false
	for _, entry := range entries {
		if entry.ActualStart != nil {
			started = true
			break
		}
	}
	if !started {
		return entries[0]
	}

	for _, entry := range entries {
		if entry.ActualStart != nil && entry.ActualEnd == nil {
			return entry
		}
	}
	for _, entry := range entries {
		if entry.ActualStart == nil {
			return entry
		}
	}
	return nil
}

// activeAt applies the window rule, including the midnight wraparound.
func activeAt(now, start, end int) bool {
	if end <= start {
		return now >= start || now < end
	}
	return now >= start && now < end
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
