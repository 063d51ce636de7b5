/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventStatusChange    EventType = "stream.status_change"
	EventSceneChange     EventType = "stream.scene_change"
	EventScheduleRebuild EventType = "stream.schedule_rebuild"
	EventNowPlaying      EventType = "stream.now_playing"
	EventSegmentBatch    EventType = "stream.segment_batch"
	EventMixDegraded     EventType = "stream.mix_degraded"
	EventStationCreated  EventType = "catalog.station_created"
	EventStationUpdated  EventType = "catalog.station_updated"
	EventStationDeleted  EventType = "catalog.station_deleted"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber for event type.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, s := range subs {
		if s == sub {
			b.subs[eventType] = append(subs[:i], subs[i+1:]...)
			close(s)
			return
		}
	}
}

// Publish sends payload to subscribers. Slow subscribers are skipped
// rather than blocking the publisher.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}
