package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestJoinAndPublish(t *testing.T) {
	h := New()
	ch := h.Join("event-1")
	defer h.Leave("event-1", ch)

	h.Publish("event-1", "songRequested", map[string]string{"songId": "abc"})

	select {
	case evt := <-ch:
		if evt.Type != "songRequested" {
			t.Errorf("event type = %q, want songRequested", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRoomIsolation(t *testing.T) {
	h := New()
	ch1 := h.Join("event-1")
	ch2 := h.Join("event-2")
	defer h.Leave("event-1", ch1)
	defer h.Leave("event-2", ch2)

	h.Publish("event-1", "songVoted", nil)

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("event-1 subscriber did not receive event")
	}

	select {
	case evt := <-ch2:
		t.Errorf("event-2 subscriber received %+v, want nothing", evt)
	default:
	}
}

func TestFanOutToAllSubscribers(t *testing.T) {
	h := New()
	const n = 5
	chans := make([]chan Event, n)
	for i := range chans {
		chans[i] = h.Join("event-1")
	}

	h.Publish("event-1", "currentTrackChanged", nil)

	for i, ch := range chans {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i)
		}
		h.Leave("event-1", ch)
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := New()
	ch := h.Join("event-1")
	h.Leave("event-1", ch)

	h.Publish("event-1", "songRequested", nil)

	select {
	case evt := <-ch:
		t.Errorf("received %+v after leaving", evt)
	default:
	}
	if size := h.RoomSize("event-1"); size != 0 {
		t.Errorf("RoomSize = %d after last leave, want 0", size)
	}
}

func TestPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	h := New()
	ch := h.Join("event-1")
	defer h.Leave("event-1", ch)

	done := make(chan struct{})
	go func() {
		// Well past the subscriber buffer; must not block
		for i := 0; i < subscriberBuffer*4; i++ {
			h.Publish("event-1", "songVoted", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}

	if got := len(ch); got != subscriberBuffer {
		t.Errorf("buffered events = %d, want %d", got, subscriberBuffer)
	}
}

func TestPublishToEmptyRoom(t *testing.T) {
	h := New()
	// Must not panic or create room state
	h.Publish("nobody-home", "songRequested", nil)
	if size := h.RoomSize("nobody-home"); size != 0 {
		t.Errorf("RoomSize = %d, want 0", size)
	}
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := fmt.Sprintf("event-%d", i%4)
			ch := h.Join(room)
			h.Publish(room, "songVoted", nil)
			h.Leave(room, ch)
		}(i)
	}

	wg.Wait()
}
