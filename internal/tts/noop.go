/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package tts

import (
	"context"
	"fmt"
)

// Noop is a synthesizer that always fails. It is used when no vendor is
// configured; callers degrade to playing songs without spoken intros.
type Noop struct{}

func (Noop) Synthesize(ctx context.Context, text string, voice VoiceProfile) (Result, error) {
	return Result{}, fmt.Errorf("tts: no synthesizer configured")
}
