/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package segmenter

import "sync"

// Queue is a concurrency-safe FIFO of delivery-ready segments, suitable
// for direct hand-off to a per-station, per-bitrate delivery buffer.
type Queue struct {
	mu    sync.Mutex
	items []*Segment
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a segment.
func (q *Queue) Push(s *Segment) {
	q.mu.Lock()
	q.items = append(q.items, s)
	q.mu.Unlock()
}

// Pop removes and returns the oldest segment, or nil when empty.
func (q *Queue) Pop() *Segment {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	s := q.items[0]
	q.items = q.items[1:]
	return s
}

// Peek returns the oldest segment without removing it, or nil when empty.
func (q *Queue) Peek() *Segment {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns the queued segments in order without draining them.
func (q *Queue) Snapshot() []*Segment {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Segment(nil), q.items...)
}

// FindBySequence returns the queued segment with the given sequence
// number, or nil.
func (q *Queue) FindBySequence(sequence int64) *Segment {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, s := range q.items {
		if s.Sequence == sequence {
			return s
		}
	}
	return nil
}
