/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

// AssignPolicy controls when song assignment stops.
type AssignPolicy struct {
	// TargetCount stops assignment once the scene holds this many songs.
	// 0 means fill by scene duration instead.
	TargetCount int
}

// AssignSongs appends song entries to the scene until its duration is
// filled (or the policy's target count is reached), chaining each entry's
// scheduled start from the previous entry's end. Entries already assigned
// are never reordered or removed. Returns the number of entries appended.
func AssignSongs(scene *LiveScene, assets []Asset, policy AssignPolicy) int {
	appended := 0
	for _, asset := range assets {
		if policy.TargetCount > 0 {
			if len(scene.Songs) >= policy.TargetCount {
				break
			}
		} else if scene.HasExplicitEnd() {
			if !scene.NextSongStart().Before(scene.ScheduledEnd()) {
				break
			}
		}

		entry := NewSongEntry(asset, scene.NextSongStart())
		scene.Songs = append(scene.Songs, entry)
		appended++
	}
	return appended
}

// RemainingSeconds reports how much of an explicit scene window is not yet
// covered by assigned songs. Implicit-end scenes report 0.
func RemainingSeconds(scene *LiveScene) int {
	if !scene.HasExplicitEnd() {
		return 0
	}
	remaining := int(scene.ScheduledEnd().Sub(scene.NextSongStart()).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
