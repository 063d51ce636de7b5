/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mixer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeTranscoder struct {
	calls   [][]string
	failOn  string // substring of any arg that triggers failure
	written []string
}

func (f *fakeTranscoder) Run(_ context.Context, args []string) error {
	f.calls = append(f.calls, args)
	for _, a := range args {
		if f.failOn != "" && strings.Contains(a, f.failOn) {
			return fmt.Errorf("simulated process failure")
		}
	}
	// The output path is the final argument for every builder.
	out := args[len(args)-1]
	f.written = append(f.written, out)
	return os.WriteFile(out, []byte("rendered"), 0o644)
}

type fakeProber struct {
	duration float64
	err      error
}

func (f *fakeProber) ProbeDuration(context.Context, string) (float64, error) {
	return f.duration, f.err
}

type fakeGains struct {
	gain float64
	err  error
}

func (f *fakeGains) SpeechGain(context.Context, string) (float64, error) {
	return f.gain, f.err
}

func newTestEngine(t *testing.T, tr Transcoder, prober DurationProber, gains GainSource) *Engine {
	t.Helper()
	return New(tr, prober, gains, t.TempDir(), zerolog.Nop())
}

func TestConcatenateDirectConcat(t *testing.T) {
	tr := &fakeTranscoder{}
	e := newTestEngine(t, tr, &fakeProber{duration: 10}, nil)
	out := filepath.Join(t.TempDir(), "out.wav")

	got, err := e.Concatenate(context.Background(), "/speech.wav", "/song.mp3", out, DirectConcat, Params{Gain: 0.7})
	if err != nil {
		t.Fatalf("concatenate: %v", err)
	}
	if got != out {
		t.Fatalf("returned path = %q, want %q", got, out)
	}
	if len(tr.calls) != 1 {
		t.Fatalf("calls = %d, want 1 single-pass invocation", len(tr.calls))
	}
}

func TestConcatenateCrossfadeProbesUnknownDuration(t *testing.T) {
	tr := &fakeTranscoder{}
	prober := &fakeProber{duration: 180}
	e := newTestEngine(t, tr, prober, nil)
	out := filepath.Join(t.TempDir(), "out.wav")

	if _, err := e.Concatenate(context.Background(), "/a.wav", "/b.wav", out, Crossfade, Params{Duration: 3}); err != nil {
		t.Fatalf("concatenate: %v", err)
	}

	filter := argValue(tr.calls[0], "-filter_complex")
	if !strings.Contains(filter, "st=177") {
		t.Fatalf("filter %q: fade must start at firstDuration-crossfade", filter)
	}
}

func TestConcatenateSimulatedCrossfadeCleansIntermediates(t *testing.T) {
	tr := &fakeTranscoder{}
	e := newTestEngine(t, tr, &fakeProber{duration: 60}, nil)
	out := filepath.Join(t.TempDir(), "out.wav")

	if _, err := e.Concatenate(context.Background(), "/a.wav", "/b.wav", out, SimulatedCrossfade, Params{Duration: 2, FirstDuration: 60}); err != nil {
		t.Fatalf("concatenate: %v", err)
	}

	if len(tr.calls) != 3 {
		t.Fatalf("calls = %d, want 3 (two intermediates + sum)", len(tr.calls))
	}
	assertTempRootEmpty(t, e)
}

func TestConcatenateSilenceGapCleansIntermediates(t *testing.T) {
	tr := &fakeTranscoder{}
	e := newTestEngine(t, tr, &fakeProber{}, nil)
	out := filepath.Join(t.TempDir(), "out.wav")

	if _, err := e.Concatenate(context.Background(), "/a.wav", "/b.wav", out, SilenceGap, Params{Duration: 1.5}); err != nil {
		t.Fatalf("concatenate: %v", err)
	}
	assertTempRootEmpty(t, e)
}

func TestConcatenateCleansIntermediatesOnFailure(t *testing.T) {
	// The sum pass fails; the already-rendered intermediates must still be
	// removed.
	tr := &fakeTranscoder{failOn: "amix"}
	e := newTestEngine(t, tr, &fakeProber{duration: 60}, nil)

	_, err := e.Concatenate(context.Background(), "/a.wav", "/b.wav", filepath.Join(t.TempDir(), "out.wav"), SimulatedCrossfade, Params{Duration: 2, FirstDuration: 60})
	if err == nil {
		t.Fatal("expected failure")
	}
	assertTempRootEmpty(t, e)
}

func TestConcatenateWrapsFailuresInMergeError(t *testing.T) {
	tr := &fakeTranscoder{failOn: "concat"}
	e := newTestEngine(t, tr, &fakeProber{}, nil)

	_, err := e.Concatenate(context.Background(), "/a.wav", "/b.wav", "/out.wav", DirectConcat, Params{})
	if err == nil {
		t.Fatal("expected failure")
	}

	var merr *MergeError
	if !errors.As(err, &merr) {
		t.Fatalf("error %v must be a MergeError", err)
	}
	if merr.Strategy != DirectConcat {
		t.Fatalf("strategy = %s, want direct_concat", merr.Strategy)
	}
	if merr.Unwrap() == nil {
		t.Fatal("original cause must be preserved")
	}
}

func TestConcatenateUnknownStrategy(t *testing.T) {
	e := newTestEngine(t, &fakeTranscoder{}, &fakeProber{}, nil)
	if _, err := e.Concatenate(context.Background(), "/a", "/b", "/out", Strategy("bogus"), Params{}); err == nil {
		t.Fatal("unknown strategy must fail")
	}
}

func TestMergeSpeechOverSongUsesStationGain(t *testing.T) {
	tr := &fakeTranscoder{}
	e := newTestEngine(t, tr, &fakeProber{}, &fakeGains{gain: 0.65})
	out := filepath.Join(t.TempDir(), "out.wav")

	if _, err := e.MergeSpeechOverSong(context.Background(), "station-1", "/intro.wav", "/song.mp3", out); err != nil {
		t.Fatalf("merge speech: %v", err)
	}

	if !strings.Contains(argValue(tr.calls[0], "-filter_complex"), "volume=0.65") {
		t.Fatal("station speech gain must drive the filter graph")
	}
}

func TestMergeSpeechOverSongGainLookupFailure(t *testing.T) {
	e := newTestEngine(t, &fakeTranscoder{}, &fakeProber{}, &fakeGains{err: fmt.Errorf("station missing")})

	_, err := e.MergeSpeechOverSong(context.Background(), "station-1", "/intro.wav", "/song.mp3", "/out.wav")
	var merr *MergeError
	if !errors.As(err, &merr) {
		t.Fatalf("error %v must be a MergeError", err)
	}
}

func assertTempRootEmpty(t *testing.T, e *Engine) {
	t.Helper()
	entries, err := os.ReadDir(e.tempRoot)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "skald_") {
			t.Fatalf("temp file %s was not cleaned up", entry.Name())
		}
	}
}
