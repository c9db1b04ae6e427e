// Package changefeed carries "something changed" signals from writers to
// whoever needs to refresh. Events are unordered and may be duplicated or
// coalesced; consumers must treat them purely as invalidation.
package changefeed

import (
	"context"
	"sync"
	"time"
)

const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

const subscriberBuffer = 16

type Event struct {
	Table string    `json:"table"`
	Op    string    `json:"op"`
	ID    string    `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type subscriber struct {
	ch     chan Event
	tables map[string]bool
}

// Feed is an in-process fan-out of events.
type Feed struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[*subscriber]struct{})}
}

// Publish never blocks. A subscriber whose buffer is full already has a
// refresh pending, so the event is dropped for it.
func (f *Feed) Publish(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil
	}
	for s := range f.subs {
		if len(s.tables) > 0 && !s.tables[ev.Table] {
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of events for the given tables (all tables
// when none are given) and a cancel func that closes it.
func (f *Feed) Subscribe(tables ...string) (<-chan Event, func()) {
	s := &subscriber{
		ch:     make(chan Event, subscriberBuffer),
		tables: make(map[string]bool, len(tables)),
	}
	for _, t := range tables {
		s.tables[t] = true
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[s]; ok {
				delete(f.subs, s)
				close(s.ch)
			}
		})
	}
}

// Close closes every subscriber channel. Later publishes are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for s := range f.subs {
		close(s.ch)
		delete(f.subs, s)
	}
}
