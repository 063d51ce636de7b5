/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mixer

import (
	"fmt"
	"strconv"
)

// Strategy selects how two audio inputs are combined.
type Strategy string

const (
	// DirectConcat scales the first input by a gain factor, resamples both
	// to a common format, and concatenates them back to back.
	DirectConcat Strategy = "direct_concat"
	// SilenceGap inserts a synthesized silence clip between the inputs.
	SilenceGap Strategy = "silence_gap"
	// Crossfade fades the first input out over its final seconds while the
	// second fades in, both summed in a single filter graph.
	Crossfade Strategy = "crossfade"
	// SimulatedCrossfade produces the crossfade effect from two
	// independently rendered intermediates, for inputs where the
	// single-pass graph is unreliable.
	SimulatedCrossfade Strategy = "simulated_crossfade"
	// VolumeConcat behaves like DirectConcat but targets a compressed
	// output codec instead of lossless PCM.
	VolumeConcat Strategy = "volume_concat"
)

// Params carries the caller-supplied numeric inputs for a merge.
type Params struct {
	// Gain scales the first input for the concat strategies. 0 means 1.0.
	Gain float64
	// Duration is the silence length or crossfade length in seconds.
	Duration float64
	// FirstDuration is the known length of the first input in seconds.
	// 0 means unknown; the engine probes it when a strategy needs it.
	FirstDuration float64
}

// CrossfadeStart returns where the first input's fade-out (and the second
// input's delayed fade-in) begins.
func CrossfadeStart(firstDuration, crossfadeDuration float64) float64 {
	start := firstDuration - crossfadeDuration
	if start < 0 {
		return 0
	}
	return start
}

const outputFormat = "aresample=44100,aformat=sample_fmts=s16:channel_layouts=stereo"

// BuildDirectConcatArgs builds the single-pass gain+concat graph with a
// lossless PCM target.
func BuildDirectConcatArgs(first, second, output string, gain float64) []string {
	return append(concatGraphArgs(first, second, gain),
		"-c:a", "pcm_s16le",
		output,
	)
}

// BuildVolumeConcatArgs builds the same graph as BuildDirectConcatArgs
// with a compressed output codec.
func BuildVolumeConcatArgs(first, second, output string, gain float64) []string {
	return append(concatGraphArgs(first, second, gain),
		"-c:a", "aac",
		"-b:a", "192k",
		output,
	)
}

func concatGraphArgs(first, second string, gain float64) []string {
	if gain == 0 {
		gain = 1.0
	}
	filter := fmt.Sprintf(
		"[0:a]volume=%s,%s[a0];[1:a]%s[a1];[a0][a1]concat=n=2:v=0:a=1[out]",
		formatFloat(gain), outputFormat, outputFormat,
	)
	return []string{
		"-y",
		"-i", first,
		"-i", second,
		"-filter_complex", filter,
		"-map", "[out]",
		"-ar", "44100",
		"-ac", "2",
	}
}

// BuildCrossfadeArgs builds the single-pass crossfade graph. The first
// input fades out over duration seconds ending at its natural end; the
// second is delayed so its fade-in begins exactly where the fade-out
// begins, and both are summed.
func BuildCrossfadeArgs(first, second, output string, fadeStart, duration float64) []string {
	delayMs := int(fadeStart * 1000)
	filter := fmt.Sprintf(
		"[0:a]%s,afade=t=out:st=%s:d=%s[a0];[1:a]%s,adelay=%d|%d,afade=t=in:st=%s:d=%s[a1];[a0][a1]amix=inputs=2:duration=longest:normalize=0[out]",
		outputFormat, formatFloat(fadeStart), formatFloat(duration),
		outputFormat, delayMs, delayMs, formatFloat(fadeStart), formatFloat(duration),
	)
	return []string{
		"-y",
		"-i", first,
		"-i", second,
		"-filter_complex", filter,
		"-map", "[out]",
		"-ar", "44100",
		"-ac", "2",
		"-c:a", "pcm_s16le",
		output,
	}
}

// BuildSilenceArgs synthesizes a silence clip of the given length.
func BuildSilenceArgs(duration float64, output string) []string {
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=stereo",
		"-t", formatFloat(duration),
		"-c:a", "pcm_s16le",
		output,
	}
}

// BuildConcatListArgs concatenates the files named in a generated
// input-list file.
func BuildConcatListArgs(listPath, output string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-ar", "44100",
		"-ac", "2",
		"-c:a", "pcm_s16le",
		output,
	}
}

// BuildFadeOutArgs renders the first simulated-crossfade intermediate:
// the first input with its tail fade applied.
func BuildFadeOutArgs(input, output string, fadeStart, duration float64) []string {
	filter := fmt.Sprintf("%s,afade=t=out:st=%s:d=%s", outputFormat, formatFloat(fadeStart), formatFloat(duration))
	return []string{
		"-y",
		"-i", input,
		"-af", filter,
		"-c:a", "pcm_s16le",
		output,
	}
}

// BuildDelayFadeInArgs renders the second simulated-crossfade
// intermediate: the second input delayed to the fade point with its
// fade-in applied.
func BuildDelayFadeInArgs(input, output string, delaySeconds, duration float64) []string {
	delayMs := int(delaySeconds * 1000)
	filter := fmt.Sprintf("%s,adelay=%d|%d,afade=t=in:st=%s:d=%s", outputFormat, delayMs, delayMs, formatFloat(delaySeconds), formatFloat(duration))
	return []string{
		"-y",
		"-i", input,
		"-af", filter,
		"-c:a", "pcm_s16le",
		output,
	}
}

// BuildSumArgs sums the two rendered intermediates.
func BuildSumArgs(first, second, output string) []string {
	return []string{
		"-y",
		"-i", first,
		"-i", second,
		"-filter_complex", "[0:a][1:a]amix=inputs=2:duration=longest:normalize=0[out]",
		"-map", "[out]",
		"-ar", "44100",
		"-ac", "2",
		"-c:a", "pcm_s16le",
		output,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
