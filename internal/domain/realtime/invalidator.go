package realtime

import (
	"context"

	"go.uber.org/zap"

	"advisoryhub/internal/changefeed"
)

// Invalidator turns change feed events into refresh messages. Clients
// reload the affected table; the event itself carries no data.
type Invalidator struct {
	events <-chan changefeed.Event
	cancel func()
	hub    *Hub
	log    *zap.Logger
}

func NewInvalidator(feed *changefeed.Feed, hub *Hub, log *zap.Logger, tables ...string) *Invalidator {
	if log == nil {
		log = zap.NewNop()
	}
	events, cancel := feed.Subscribe(tables...)
	return &Invalidator{events: events, cancel: cancel, hub: hub, log: log}
}

// Run forwards events until ctx is done or the feed is closed.
func (inv *Invalidator) Run(ctx context.Context) {
	defer inv.cancel()
	for {
		select {
		case ev, ok := <-inv.events:
			if !ok {
				return
			}
			inv.hub.Broadcast(Event{Type: EventRefresh, Table: ev.Table, Op: ev.Op, ID: ev.ID})
			inv.log.Debug("refresh broadcast", zap.String("table", ev.Table), zap.String("op", ev.Op))
		case <-ctx.Done():
			return
		}
	}
}
