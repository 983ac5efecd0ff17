/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPhotoUploaded)

	bus.Publish(EventPhotoUploaded, Payload{"image_id": "abc"})

	select {
	case payload := <-sub:
		if payload["image_id"] != "abc" {
			t.Fatalf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventImageServed)

	// Overflow the buffer; publishes must drop instead of blocking.
	for i := 0; i < 64; i++ {
		bus.Publish(EventImageServed, Payload{"n": i})
	}

	if len(sub) != cap(sub) {
		t.Fatalf("expected a full buffer, got %d", len(sub))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlaylistStopped)
	bus.Unsubscribe(EventPlaylistStopped, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}

	// A publish after unsubscribe must not panic.
	bus.Publish(EventPlaylistStopped, Payload{})
}
