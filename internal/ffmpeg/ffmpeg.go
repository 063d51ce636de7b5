/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ffmpeg wraps the external transcoding process. The binary is
// treated as a black box: callers build argument lists, the runner
// executes them and reports exit status, scanning stderr for diagnostics.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Runner executes transcoder and probe invocations.
type Runner struct {
	ffmpegBin  string
	ffprobeBin string
	logger     zerolog.Logger
}

// NewRunner creates a runner for the configured binaries.
func NewRunner(ffmpegBin, ffprobeBin string, logger zerolog.Logger) *Runner {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &Runner{
		ffmpegBin:  ffmpegBin,
		ffprobeBin: ffprobeBin,
		logger:     logger.With().Str("component", "ffmpeg").Logger(),
	}
}

// Run invokes the transcoder with the given arguments and waits for it to
// exit. On failure the error carries the exit status and the tail of
// stderr. No internal timeout is imposed; bound the context upstream.
func (r *Runner) Run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.ffmpegBin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug().Strs("args", args).Msg("invoking transcoder")

	if err := cmd.Run(); err != nil {
		tail := stderrTail(&stderr, 8)
		r.logger.Warn().Err(err).Str("stderr", tail).Msg("transcoder failed")
		return fmt.Errorf("transcoder exited: %w (stderr: %s)", err, tail)
	}
	return nil
}

// ProbeDuration returns the source duration in seconds, as reported by
// the probe binary. Returns 0 with an error when the file is unreadable.
func (r *Runner) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, r.ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}

	value := strings.TrimSpace(string(out))
	duration, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("probe %s: parse duration %q: %w", path, value, err)
	}
	return duration, nil
}

// stderrTail returns the last n non-blank lines of the transcoder output.
func stderrTail(buf *bytes.Buffer, n int) string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
