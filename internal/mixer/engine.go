/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mixer combines two audio inputs (typically synthesized speech
// and a song) into one output file using one of five strategies. Every
// external-process failure is wrapped into a MergeError; the engine never
// retries. Calls block for the length of the external process, so run
// them on a dedicated worker pool, not a latency-sensitive loop.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// MergeError wraps a failed merge with its underlying cause.
type MergeError struct {
	Strategy Strategy
	Err      error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s: %v", e.Strategy, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// Transcoder is the external process contract.
type Transcoder interface {
	Run(ctx context.Context, args []string) error
}

// DurationProber reports a source file's duration in seconds.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// GainSource resolves a station's configured speech gain.
type GainSource interface {
	SpeechGain(ctx context.Context, stationID string) (float64, error)
}

// Engine executes merge strategies against the external transcoder.
type Engine struct {
	transcoder Transcoder
	prober     DurationProber
	gains      GainSource
	tempRoot   string
	logger     zerolog.Logger
}

// New creates a mixing engine. gains may be nil when MergeSpeechOverSong
// is not used.
func New(transcoder Transcoder, prober DurationProber, gains GainSource, tempRoot string, logger zerolog.Logger) *Engine {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	return &Engine{
		transcoder: transcoder,
		prober:     prober,
		gains:      gains,
		tempRoot:   tempRoot,
		logger:     logger.With().Str("component", "mixer").Logger(),
	}
}

// Concatenate combines first and second into outputPath using the given
// strategy and returns outputPath. Intermediate files are deleted on
// completion regardless of success; deletion failures are logged only.
func (e *Engine) Concatenate(ctx context.Context, first, second, outputPath string, strategy Strategy, p Params) (string, error) {
	var err error
	switch strategy {
	case DirectConcat:
		err = e.transcoder.Run(ctx, BuildDirectConcatArgs(first, second, outputPath, p.Gain))
	case VolumeConcat:
		err = e.transcoder.Run(ctx, BuildVolumeConcatArgs(first, second, outputPath, p.Gain))
	case Crossfade:
		err = e.crossfade(ctx, first, second, outputPath, p)
	case SimulatedCrossfade:
		err = e.simulatedCrossfade(ctx, first, second, outputPath, p)
	case SilenceGap:
		err = e.silenceGap(ctx, first, second, outputPath, p)
	default:
		err = fmt.Errorf("unknown strategy %q", strategy)
	}

	if err != nil {
		telemetry.MixFailuresTotal.WithLabelValues(string(strategy)).Inc()
		var merr *MergeError
		if errors.As(err, &merr) {
			return "", err
		}
		return "", &MergeError{Strategy: strategy, Err: err}
	}
	return outputPath, nil
}

// MergeSpeechOverSong is the simplified DirectConcat variant used for
// spoken intros: it looks up the invoking station's configured speech
// gain before building the filter graph.
func (e *Engine) MergeSpeechOverSong(ctx context.Context, stationID, speechPath, songPath, outputPath string) (string, error) {
	gain := 1.0
	if e.gains != nil {
		g, err := e.gains.SpeechGain(ctx, stationID)
		if err != nil {
			return "", &MergeError{Strategy: DirectConcat, Err: fmt.Errorf("speech gain for station %s: %w", stationID, err)}
		}
		gain = g
	}
	return e.Concatenate(ctx, speechPath, songPath, outputPath, DirectConcat, Params{Gain: gain})
}

func (e *Engine) firstDuration(ctx context.Context, first string, p Params) (float64, error) {
	if p.FirstDuration > 0 {
		return p.FirstDuration, nil
	}
	return e.prober.ProbeDuration(ctx, first)
}

func (e *Engine) crossfade(ctx context.Context, first, second, outputPath string, p Params) error {
	firstDur, err := e.firstDuration(ctx, first, p)
	if err != nil {
		return err
	}
	start := CrossfadeStart(firstDur, p.Duration)
	return e.transcoder.Run(ctx, BuildCrossfadeArgs(first, second, outputPath, start, p.Duration))
}

func (e *Engine) simulatedCrossfade(ctx context.Context, first, second, outputPath string, p Params) error {
	firstDur, err := e.firstDuration(ctx, first, p)
	if err != nil {
		return err
	}
	start := CrossfadeStart(firstDur, p.Duration)

	fadedFirst := e.tempFile("faded_first", ".wav")
	delayedSecond := e.tempFile("delayed_second", ".wav")
	defer e.removeTemp(fadedFirst, delayedSecond)

	if err := e.transcoder.Run(ctx, BuildFadeOutArgs(first, fadedFirst, start, p.Duration)); err != nil {
		return err
	}
	if err := e.transcoder.Run(ctx, BuildDelayFadeInArgs(second, delayedSecond, start, p.Duration)); err != nil {
		return err
	}
	return e.transcoder.Run(ctx, BuildSumArgs(fadedFirst, delayedSecond, outputPath))
}

func (e *Engine) silenceGap(ctx context.Context, first, second, outputPath string, p Params) error {
	silence := e.tempFile("silence", ".wav")
	listPath := e.tempFile("concat_list", ".txt")
	defer e.removeTemp(silence, listPath)

	if err := e.transcoder.Run(ctx, BuildSilenceArgs(p.Duration, silence)); err != nil {
		return err
	}

	list := fmt.Sprintf("file '%s'\nfile '%s'\nfile '%s'\n", first, silence, second)
	if err := os.WriteFile(listPath, []byte(list), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	return e.transcoder.Run(ctx, BuildConcatListArgs(listPath, outputPath))
}

func (e *Engine) tempFile(label, ext string) string {
	return filepath.Join(e.tempRoot, fmt.Sprintf("skald_%s_%s%s", label, uuid.NewString()[:8], ext))
}

// removeTemp deletes intermediates best-effort; failure is logged, never
// propagated.
func (e *Engine) removeTemp(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			e.logger.Warn().Err(err).Str("path", path).Msg("failed to remove temp file")
		}
	}
}
