/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus onto NATS so other
// instances and delivery-layer consumers can observe stream lifecycle
// events.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_radio/internal/events"
)

// SubjectPrefix is prepended to every published event type.
const SubjectPrefix = "skald.events."

// bridged event types forwarded to NATS.
var bridgedEvents = []events.EventType{
	events.EventStatusChange,
	events.EventSceneChange,
	events.EventScheduleRebuild,
	events.EventNowPlaying,
	events.EventMixDegraded,
}

type message struct {
	Type      events.EventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   events.Payload   `json:"payload"`
}

// Bridge subscribes to the local bus and republishes onto NATS subjects.
type Bridge struct {
	conn   *nats.Conn
	bus    *events.Bus
	logger zerolog.Logger
}

// NewBridge connects to NATS. Connection failure is returned to the
// caller; the local bus keeps working without the bridge.
func NewBridge(natsURL string, bus *events.Bus, logger zerolog.Logger) (*Bridge, error) {
	conn, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", natsURL, err)
	}

	return &Bridge{
		conn:   conn,
		bus:    bus,
		logger: logger.With().Str("component", "eventbus").Logger(),
	}, nil
}

// Run forwards bridged events until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	b.logger.Info().Msg("event bridge started")

	var wg sync.WaitGroup
	for _, et := range bridgedEvents {
		sub := b.bus.Subscribe(et)
		wg.Add(1)
		go func(et events.EventType, sub events.Subscriber) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					b.publish(et, payload)
				}
			}
		}(et, sub)
	}
	wg.Wait()
	b.close()
}

func (b *Bridge) publish(eventType events.EventType, payload events.Payload) {
	msg := message{Type: eventType, Timestamp: time.Now().UTC(), Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Warn().Err(err).Str("event", string(eventType)).Msg("failed to encode event")
		return
	}

	subject := SubjectPrefix + string(eventType)
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

func (b *Bridge) close() {
	if err := b.conn.Drain(); err != nil {
		b.logger.Warn().Err(err).Msg("nats drain failed")
	}
	b.logger.Info().Msg("event bridge stopped")
}
