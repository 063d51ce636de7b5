/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package tts synthesizes speech for station intros and announcements.
package tts

import (
	"context"
	"time"
)

// VoiceProfile specifies voice characteristics for synthesis.
type VoiceProfile struct {
	// ID is the vendor voice identifier.
	ID string `json:"id"`
	// Language is the voice's primary language (BCP 47 tag).
	Language string `json:"language"`
}

// Result is a synthesized utterance written to a local audio file.
type Result struct {
	// Path points at the produced audio file. The caller owns the file
	// and removes it when mixing is done.
	Path string `json:"path"`
	// Duration of the synthesized audio, zero when unknown.
	Duration time.Duration `json:"duration"`
}

// Synthesizer converts text to speech audio.
type Synthesizer interface {
	// Synthesize generates audio from text using the specified voice.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (Result, error)
}
