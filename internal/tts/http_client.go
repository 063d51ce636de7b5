/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPClient talks to a speech synthesis vendor over a JSON API. The
// vendor returns encoded audio bytes which are written to a temp file
// for the mixing pipeline to pick up.
type HTTPClient struct {
	endpoint string
	apiKey   string
	tempRoot string
	client   *http.Client
	logger   zerolog.Logger
}

// NewHTTPClient creates a vendor-backed synthesizer.
func NewHTTPClient(endpoint, apiKey, tempRoot string, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		tempRoot: tempRoot,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "tts").Logger(),
	}
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	VoiceID  string `json:"voice_id"`
	Language string `json:"language,omitempty"`
	Format   string `json:"format"`
}

// Synthesize posts the text to the vendor and writes the returned audio
// to a temp file under tempRoot.
func (c *HTTPClient) Synthesize(ctx context.Context, text string, voice VoiceProfile) (Result, error) {
	if text == "" {
		return Result{}, fmt.Errorf("tts: empty text")
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:     text,
		VoiceID:  voice.ID,
		Language: voice.Language,
		Format:   "mp3",
	})
	if err != nil {
		return Result{}, fmt.Errorf("tts: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("tts: vendor returned %d: %s", resp.StatusCode, payload)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("tts: read response: %w", err)
	}
	if len(audio) == 0 {
		return Result{}, fmt.Errorf("tts: vendor returned empty audio")
	}

	path := filepath.Join(c.tempRoot, "skald_tts_"+uuid.NewString()[:8]+".mp3")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return Result{}, fmt.Errorf("tts: write audio file: %w", err)
	}

	c.logger.Debug().
		Str("voice", voice.ID).
		Int("bytes", len(audio)).
		Dur("elapsed", time.Since(start)).
		Msg("synthesized speech")

	return Result{Path: path}, nil
}
