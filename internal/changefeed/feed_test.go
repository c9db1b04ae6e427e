package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFeed_FiltersByTable(t *testing.T) {
	f := NewFeed()
	defer f.Close()

	contentCh, cancelContent := f.Subscribe("content")
	defer cancelContent()
	allCh, cancelAll := f.Subscribe()
	defer cancelAll()

	ctx := context.Background()
	require.NoError(t, f.Publish(ctx, Event{Table: "categories", Op: OpInsert, ID: "c1"}))
	require.NoError(t, f.Publish(ctx, Event{Table: "content", Op: OpDelete, ID: "x1"}))

	ev := <-contentCh
	assert.Equal(t, "content", ev.Table)
	assert.Equal(t, OpDelete, ev.Op)
	assert.False(t, ev.At.IsZero())

	assert.Equal(t, "categories", (<-allCh).Table)
	assert.Equal(t, "content", (<-allCh).Table)

	select {
	case ev := <-contentCh:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	f := NewFeed()
	defer f.Close()

	ch, cancel := f.Subscribe("content")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			_ = f.Publish(context.Background(), Event{Table: "content", Op: OpUpdate})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestFeed_CancelAndClose(t *testing.T) {
	f := NewFeed()

	ch, cancel := f.Subscribe()
	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)

	ch2, _ := f.Subscribe()
	f.Close()
	_, ok = <-ch2
	assert.False(t, ok)

	assert.NoError(t, f.Publish(context.Background(), Event{Table: "content"}))

	ch3, cancel3 := f.Subscribe()
	defer cancel3()
	_, ok = <-ch3
	assert.False(t, ok)
}

func TestDecodeNotification(t *testing.T) {
	ev, err := DecodeNotification(`{"table":"content","op":"insert","id":"abc","at":"2026-01-02T03:04:05Z"}`)
	require.NoError(t, err)
	assert.Equal(t, "content", ev.Table)
	assert.Equal(t, OpInsert, ev.Op)
	assert.Equal(t, "abc", ev.ID)

	_, err = DecodeNotification(`{"op":"insert"}`)
	assert.Error(t, err)
	_, err = DecodeNotification(`not json`)
	assert.Error(t, err)
}
