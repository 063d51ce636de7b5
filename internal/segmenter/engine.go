/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package segmenter slices finished audio files into fixed-duration
// chunks at several target bitrates. Each bitrate runs as an independent
// unit of work against the same immutable source: one failing bitrate
// leaves its map entry absent and never disturbs its siblings.
package segmenter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/telemetry"
)

// Metadata tags a sliced source for naming and embedded tags.
type Metadata struct {
	Title  string
	Artist string
}

// SegmentInfo describes one emitted chunk before its bytes are loaded.
// SequenceIndex is the 0-based manifest position; the manifest order, not
// the filename, is authoritative.
type SegmentInfo struct {
	Path          string
	Metadata      Metadata
	Duration      int
	SequenceIndex int
}

// Segment is a delivery-ready chunk: bytes in memory plus the sequence
// number used downstream for cache and delivery addressing.
type Segment struct {
	Data          []byte
	Metadata      Metadata
	Duration      int
	SequenceIndex int
	Bitrate       int
	Sequence      int64
}

// Transcoder is the external process contract the engine invokes per
// bitrate.
type Transcoder interface {
	Run(ctx context.Context, args []string) error
}

// Engine slices sources according to a fixed segment duration and a
// configurable per-bitrate filter chain.
type Engine struct {
	transcoder      Transcoder
	outputRoot      string
	segmentDuration int
	filterChain     string
	logger          zerolog.Logger
	now             func() time.Time
}

// New creates a segmentation engine.
func New(transcoder Transcoder, outputRoot string, segmentDuration int, filterChain string, logger zerolog.Logger) *Engine {
	return &Engine{
		transcoder:      transcoder,
		outputRoot:      outputRoot,
		segmentDuration: segmentDuration,
		filterChain:     filterChain,
		logger:          logger.With().Str("component", "segmenter").Logger(),
		now:             time.Now,
	}
}

// PrepareDayDirs pre-creates the current day's 24 hour buckets so the
// first write of each hour pays no mkdir latency.
func (e *Engine) PrepareDayDirs(now time.Time) error {
	day := now.Format("2006-01-02")
	for hour := 0; hour < 24; hour++ {
		dir := filepath.Join(e.outputRoot, day, fmt.Sprintf("%02d", hour))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare hour bucket %s: %w", dir, err)
		}
	}
	return nil
}

// Slice cuts the source into fixed-duration chunks at every requested
// bitrate concurrently and returns a map from bitrate to the ordered
// queue of delivery-ready segments. A bitrate whose transcode fails is
// simply absent from the map. Missing source or an empty bitrate list is
// a configuration error and fails the whole call.
func (e *Engine) Slice(ctx context.Context, sourcePath string, meta Metadata, bitrates []int) (map[int]*Queue, error) {
	if len(bitrates) == 0 {
		return nil, fmt.Errorf("slice %s: no bitrates configured", sourcePath)
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, fmt.Errorf("slice: source unreadable: %w", err)
	}

	results := make(map[int]*Queue, len(bitrates))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, bitrate := range bitrates {
		wg.Add(1)
		go func(bitrate int) {
			defer wg.Done()

			queue, err := e.sliceBitrate(ctx, sourcePath, meta, bitrate)
			if err != nil {
				telemetry.SegmentationFailuresTotal.WithLabelValues(strconv.Itoa(bitrate)).Inc()
				e.logger.Warn().Err(err).
					Int("bitrate", bitrate).
					Str("source", sourcePath).
					Msg("bitrate segmentation failed")
				return
			}

			mu.Lock()
			results[bitrate] = queue
			mu.Unlock()
		}(bitrate)
	}
	wg.Wait()

	return results, nil
}

func (e *Engine) sliceBitrate(ctx context.Context, sourcePath string, meta Metadata, bitrate int) (*Queue, error) {
	now := e.now()
	dir := e.segmentDir(now, meta, bitrate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create segment dir: %w", err)
	}

	baseID := uuid.NewString()[:8]
	manifestPath := filepath.Join(dir, baseID+"_manifest.txt")
	args := BuildSliceArgs(sourcePath, dir, baseID, bitrate, e.segmentDuration, e.filterChain, meta, manifestPath)

	if err := e.transcoder.Run(ctx, args); err != nil {
		return nil, fmt.Errorf("transcode bitrate %d: %w", bitrate, err)
	}

	infos, err := e.ReadManifest(manifestPath, meta)
	if err != nil {
		return nil, err
	}

	queue := NewQueue()
	wallClock := now.Unix()
	for _, info := range infos {
		segment, err := e.materialize(info, bitrate, wallClock)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("path", info.Path).
				Int("index", info.SequenceIndex).
				Msg("skipping unreadable segment")
			continue
		}
		queue.Push(segment)
		telemetry.SegmentsProducedTotal.WithLabelValues(strconv.Itoa(bitrate)).Inc()
	}
	return queue, nil
}

// ReadManifest parses the flat manifest line by line. Each non-blank line
// becomes one SegmentInfo; the 0-based line position is the sequence
// index. Lines naming files outside the manifest's directory are treated
// relative to it.
func (e *Engine) ReadManifest(manifestPath string, meta Metadata) ([]SegmentInfo, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	dir := filepath.Dir(manifestPath)
	var infos []SegmentInfo
	index := 0
	for _, line := range strings.Split(string(data), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		infos = append(infos, SegmentInfo{
			Path:          path,
			Metadata:      meta,
			Duration:      e.segmentDuration,
			SequenceIndex: index,
		})
		index++
	}
	return infos, nil
}

// materialize loads the chunk bytes and stamps the delivery sequence
// number, derived monotonically from wall clock seconds plus the chunk's
// manifest position.
func (e *Engine) materialize(info SegmentInfo, bitrate int, wallClockSeconds int64) (*Segment, error) {
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, err
	}
	return &Segment{
		Data:          data,
		Metadata:      info.Metadata,
		Duration:      info.Duration,
		SequenceIndex: info.SequenceIndex,
		Bitrate:       bitrate,
		Sequence:      wallClockSeconds + int64(info.SequenceIndex),
	}, nil
}

// segmentDir returns the date/hour-partitioned output directory for one
// bitrate run: outputRoot/yyyy-MM-dd/HH/<sanitized>_<bitrate>k.
func (e *Engine) segmentDir(now time.Time, meta Metadata, bitrate int) string {
	name := fmt.Sprintf("%s_%dk", SanitizeName(meta.Title, meta.Artist), bitrate/1000)
	return filepath.Join(e.outputRoot, now.Format("2006-01-02"), now.Format("15"), name)
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SanitizeName folds title and artist into a filesystem-safe directory
// component.
func SanitizeName(title, artist string) string {
	joined := strings.TrimSpace(artist + "_" + title)
	safe := unsafeNameChars.ReplaceAllString(joined, "_")
	safe = strings.Trim(safe, "_")
	if safe == "" {
		safe = "untitled"
	}
	if len(safe) > 64 {
		safe = safe[:64]
	}
	return safe
}
