/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package segmenter

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// BuildSliceArgs constructs the transcoder argument list for one bitrate
// run: resample to 44.1 kHz stereo, encode AAC at the target bitrate,
// apply the loudness filter chain, embed title/artist tags, and emit
// fixed-duration chunks plus a flat manifest of their filenames.
//
// Pure function so argument construction is testable without invoking the
// external process.
func BuildSliceArgs(sourcePath, dir, baseID string, bitrate, segmentDuration int, filterChain string, meta Metadata, manifestPath string) []string {
	chunkPattern := filepath.Join(dir, baseID+"_%05d.ts")

	args := []string{
		"-y",
		"-i", sourcePath,
		"-vn",
		"-ar", "44100",
		"-ac", "2",
		"-c:a", "aac",
		"-b:a", strconv.Itoa(bitrate),
	}
	if filterChain != "" {
		args = append(args, "-af", filterChain)
	}
	args = append(args,
		"-metadata", fmt.Sprintf("title=%s", meta.Title),
		"-metadata", fmt.Sprintf("artist=%s", meta.Artist),
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentDuration),
		"-segment_list", manifestPath,
		"-segment_list_type", "flat",
		chunkPattern,
	)
	return args
}
