/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package segmenter

import (
	"strings"
	"testing"
)

func TestBuildSliceArgs(t *testing.T) {
	args := BuildSliceArgs(
		"/media/a.mp3", "/out/dir", "ab12cd34",
		128000, 10,
		"loudnorm=I=-16:TP=-1.5:LRA=11",
		Metadata{Title: "Aurora", Artist: "Skald"},
		"/out/dir/ab12cd34_manifest.txt",
	)

	wantPairs := map[string]string{
		"-i":                 "/media/a.mp3",
		"-ar":                "44100",
		"-ac":                "2",
		"-c:a":               "aac",
		"-b:a":               "128000",
		"-af":                "loudnorm=I=-16:TP=-1.5:LRA=11",
		"-f":                 "segment",
		"-segment_time":      "10",
		"-segment_list":      "/out/dir/ab12cd34_manifest.txt",
		"-segment_list_type": "flat",
	}
	for flag, want := range wantPairs {
		if got := argValue(args, flag); got != want {
			t.Errorf("%s = %q, want %q", flag, got, want)
		}
	}

	pattern := args[len(args)-1]
	if !strings.HasPrefix(pattern, "/out/dir/ab12cd34_") || !strings.Contains(pattern, "%05d") {
		t.Errorf("chunk pattern = %q, want zero-padded sequence under the run dir", pattern)
	}

	foundTitle, foundArtist := false, false
	for i, a := range args {
		if a == "-metadata" && i+1 < len(args) {
			if args[i+1] == "title=Aurora" {
				foundTitle = true
			}
			if args[i+1] == "artist=Skald" {
				foundArtist = true
			}
		}
	}
	if !foundTitle || !foundArtist {
		t.Error("expected embedded title and artist tags")
	}
}

func TestBuildSliceArgsOmitsEmptyFilterChain(t *testing.T) {
	args := BuildSliceArgs("/a.mp3", "/out", "x", 64000, 10, "", Metadata{}, "/out/m.txt")
	for _, a := range args {
		if a == "-af" {
			t.Fatal("empty filter chain must not emit -af")
		}
	}
}

func TestQueueFIFOAndLookup(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 3; i++ {
		q.Push(&Segment{SequenceIndex: i, Sequence: int64(100 + i)})
	}

	if q.Peek().SequenceIndex != 0 {
		t.Fatal("peek must return the oldest segment")
	}
	if s := q.FindBySequence(102); s == nil || s.SequenceIndex != 2 {
		t.Fatal("lookup by sequence failed")
	}
	if got := q.Pop().SequenceIndex; got != 0 {
		t.Fatalf("pop = %d, want 0", got)
	}
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
	if snap := q.Snapshot(); len(snap) != 2 || snap[0].SequenceIndex != 1 {
		t.Fatal("snapshot must preserve order without draining")
	}
	q.Pop()
	q.Pop()
	if q.Pop() != nil || q.Peek() != nil {
		t.Fatal("empty queue must return nil")
	}
}
