// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package status carries ordered progress events from the engine to any
// presentation layer. Implements: prd004-status (R1-R3);
//
//	docs/ARCHITECTURE § Status Channel.
package status

import (
	"sync"
	"time"

	"github.com/pdiddy/bioscout/pkg/types"
)

// Level classifies an event for rendering.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// Event is one entry in the pipeline's progress stream (R1.1).
type Event struct {
	// Time is when the event was published.
	Time time.Time `json:"time"`

	// Level classifies the event.
	Level Level `json:"level"`

	// Source is the database the event concerns, if any.
	Source types.Source `json:"source,omitempty"`

	// Message is the human-readable event text.
	Message string `json:"message"`
}

// Bus fans events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses events rather than stalling
// the engine (R2.1). A nil *Bus accepts and discards all publishes, so
// components carry an optional bus without nil checks (R2.2).
type Bus struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new consumer and returns its event channel.
// buffer is the channel capacity; zero or negative selects a default
// of 64. The channel is closed by Close.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish appends an event to the stream. Slow or abandoned consumers
// are skipped, never waited on.
func (b *Bus) Publish(level Level, source types.Source, message string) {
	if b == nil {
		return
	}
	ev := Event{Time: time.Now(), Level: level, Source: source, Message: message}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Infof publishes an info-level event.
func (b *Bus) Infof(source types.Source, message string) {
	b.Publish(Info, source, message)
}

// Close terminates all subscriber channels. Publish after Close is a
// no-op; a second Close is a no-op.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
