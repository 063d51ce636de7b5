/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package segmenter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// fakeTranscoder emulates the external process: it writes chunk files
// matching the requested pattern plus the flat manifest listing them.
type fakeTranscoder struct {
	chunks      int
	failBitrate int
	calls       [][]string
}

func (f *fakeTranscoder) Run(_ context.Context, args []string) error {
	f.calls = append(f.calls, args)

	bitrate := argValue(args, "-b:a")
	if f.failBitrate != 0 && bitrate == strconv.Itoa(f.failBitrate) {
		return fmt.Errorf("simulated encoder failure")
	}

	manifestPath := argValue(args, "-segment_list")
	pattern := args[len(args)-1]

	manifest := ""
	for i := 0; i < f.chunks; i++ {
		path := fmt.Sprintf(pattern, i)
		if err := os.WriteFile(path, []byte(fmt.Sprintf("chunk-%s-%d", bitrate, i)), 0o644); err != nil {
			return err
		}
		manifest += filepath.Base(path) + "\n"
	}
	return os.WriteFile(manifestPath, []byte(manifest), 0o644)
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newTestEngine(t *testing.T, tr Transcoder) *Engine {
	t.Helper()
	e := New(tr, t.TempDir(), 10, "loudnorm=I=-16:TP=-1.5:LRA=11", zerolog.Nop())
	e.now = func() time.Time { return time.Date(2026, 5, 1, 14, 30, 0, 0, time.UTC) }
	return e
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("not-really-audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSliceProducesQueuePerBitrate(t *testing.T) {
	tr := &fakeTranscoder{chunks: 10}
	e := newTestEngine(t, tr)
	source := writeSource(t)
	meta := Metadata{Title: "Aurora", Artist: "Skald"}

	producedBefore := map[int]float64{}
	for _, bitrate := range []int{64000, 128000} {
		producedBefore[bitrate] = testutil.ToFloat64(telemetry.SegmentsProducedTotal.WithLabelValues(strconv.Itoa(bitrate)))
	}

	result, err := e.Slice(context.Background(), source, meta, []int{64000, 128000})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("result bitrates = %d, want 2", len(result))
	}
	// Each materialized segment is counted exactly once, here and nowhere
	// downstream.
	for bitrate, before := range producedBefore {
		after := testutil.ToFloat64(telemetry.SegmentsProducedTotal.WithLabelValues(strconv.Itoa(bitrate)))
		if got := after - before; got != 10 {
			t.Fatalf("bitrate %d produced counter delta = %v, want 10", bitrate, got)
		}
	}
	for _, bitrate := range []int{64000, 128000} {
		q, ok := result[bitrate]
		if !ok {
			t.Fatalf("missing queue for %d", bitrate)
		}
		if q.Len() != 10 {
			t.Fatalf("bitrate %d queue length = %d, want 10", bitrate, q.Len())
		}
		wallClock := time.Date(2026, 5, 1, 14, 30, 0, 0, time.UTC).Unix()
		for i := 0; i < 10; i++ {
			s := q.Pop()
			if s.SequenceIndex != i {
				t.Fatalf("sequence index = %d, want %d", s.SequenceIndex, i)
			}
			if s.Sequence != wallClock+int64(i) {
				t.Fatalf("sequence = %d, want %d", s.Sequence, wallClock+int64(i))
			}
			if s.Duration != 10 {
				t.Fatalf("duration = %d, want 10", s.Duration)
			}
			if len(s.Data) == 0 {
				t.Fatal("segment bytes not materialized")
			}
		}
	}
}

func TestSliceIsolatesBitrateFailure(t *testing.T) {
	tr := &fakeTranscoder{chunks: 3, failBitrate: 128000}
	e := newTestEngine(t, tr)

	result, err := e.Slice(context.Background(), writeSource(t), Metadata{Title: "x"}, []int{64000, 128000})
	if err != nil {
		t.Fatalf("slice must not fail overall: %v", err)
	}

	if _, ok := result[128000]; ok {
		t.Fatal("failed bitrate must be absent from the result map")
	}
	if q, ok := result[64000]; !ok || q.Len() != 3 {
		t.Fatal("sibling bitrate must be unaffected")
	}
}

func TestSliceConfigurationErrors(t *testing.T) {
	e := newTestEngine(t, &fakeTranscoder{chunks: 1})

	if _, err := e.Slice(context.Background(), writeSource(t), Metadata{}, nil); err == nil {
		t.Fatal("empty bitrate list must be a fatal configuration error")
	}
	if _, err := e.Slice(context.Background(), "/nonexistent/file.mp3", Metadata{}, []int{64000}); err == nil {
		t.Fatal("unreadable source must be a fatal configuration error")
	}
}

func TestSliceWritesDateHourPartitionedDirs(t *testing.T) {
	tr := &fakeTranscoder{chunks: 1}
	e := newTestEngine(t, tr)

	_, err := e.Slice(context.Background(), writeSource(t), Metadata{Title: "My Song!", Artist: "The Band"}, []int{64000})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}

	dir := filepath.Join(e.outputRoot, "2026-05-01", "14", "The_Band_My_Song_64k")
	if _, statErr := os.Stat(dir); statErr != nil {
		t.Fatalf("expected partitioned dir %s: %v", dir, statErr)
	}
}

func TestReadManifestSkipsBlankLines(t *testing.T) {
	e := newTestEngine(t, &fakeTranscoder{})
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest.txt")
	content := "a_00000.ts\n\n  \na_00001.ts\na_00002.ts\n"
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	infos, err := e.ReadManifest(manifest, Metadata{Title: "t"})
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("infos = %d, want 3", len(infos))
	}
	for i, info := range infos {
		if info.SequenceIndex != i {
			t.Fatalf("manifest position must drive sequence index: got %d at %d", info.SequenceIndex, i)
		}
		if filepath.Dir(info.Path) != dir {
			t.Fatalf("relative manifest entries must resolve against the manifest dir")
		}
	}
}

func TestSliceSkipsChunksMissingOnDisk(t *testing.T) {
	// Manifest references a chunk the encoder never wrote: skipped with a
	// warning, not fatal.
	tr := &manifestOnlyTranscoder{listed: 4, written: 3}
	e := newTestEngine(t, tr)

	result, err := e.Slice(context.Background(), writeSource(t), Metadata{Title: "x"}, []int{64000})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if got := result[64000].Len(); got != 3 {
		t.Fatalf("queue length = %d, want 3", got)
	}
}

type manifestOnlyTranscoder struct {
	listed  int
	written int
}

func (m *manifestOnlyTranscoder) Run(_ context.Context, args []string) error {
	manifestPath := argValue(args, "-segment_list")
	pattern := args[len(args)-1]

	manifest := ""
	for i := 0; i < m.listed; i++ {
		path := fmt.Sprintf(pattern, i)
		if i < m.written {
			if err := os.WriteFile(path, []byte("chunk"), 0o644); err != nil {
				return err
			}
		}
		manifest += filepath.Base(path) + "\n"
	}
	return os.WriteFile(manifestPath, []byte(manifest), 0o644)
}

func TestPrepareDayDirs(t *testing.T) {
	e := newTestEngine(t, &fakeTranscoder{})

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := e.PrepareDayDirs(now); err != nil {
		t.Fatalf("prepare day dirs: %v", err)
	}
	for _, hour := range []string{"00", "09", "23"} {
		dir := filepath.Join(e.outputRoot, "2026-05-01", hour)
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected hour bucket %s: %v", dir, err)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		title, artist, want string
	}{
		{"My Song", "The Band", "The_Band_My_Song"},
		{"Weird/Name: #1?", "A*B", "A_B_Weird_Name_1"},
		{"", "", "untitled"},
	}
	for _, tc := range tests {
		if got := SanitizeName(tc.title, tc.artist); got != tc.want {
			t.Errorf("SanitizeName(%q, %q) = %q, want %q", tc.title, tc.artist, got, tc.want)
		}
	}
}
