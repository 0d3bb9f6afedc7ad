package notify

import (
	"testing"
	"time"
)

func recvOne(t *testing.T, s *Subscriber) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishRouting(t *testing.T) {
	h := NewHub()
	convSub := h.Subscribe([]string{TopicConversation("c1")}, 0)
	userSub := h.Subscribe([]string{TopicUser("u1"), TopicPresence}, 0)

	h.Publish(Event{Topic: TopicConversation("c1"), Kind: "message.sent", EntityID: "m1"})
	ev := recvOne(t, convSub)
	if ev.Kind != "message.sent" || ev.EntityID != "m1" {
		t.Fatalf("wrong event: %+v", ev)
	}
	if ev.At == 0 {
		t.Fatal("publish did not stamp At")
	}

	// events for other topics never cross over
	select {
	case ev := <-userSub.Events():
		t.Fatalf("unexpected event on user sub: %+v", ev)
	default:
	}

	h.Publish(Event{Topic: TopicPresence, Kind: "presence.heartbeat", EntityID: "u2"})
	if ev := recvOne(t, userSub); ev.Topic != TopicPresence {
		t.Fatalf("wrong topic: %+v", ev)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	s := h.Subscribe([]string{TopicPresence}, 0)
	if h.SubscriberCount(TopicPresence) != 1 {
		t.Fatal("expected one subscriber")
	}
	h.Unsubscribe(s)
	if h.SubscriberCount(TopicPresence) != 0 {
		t.Fatal("subscriber not removed")
	}
	if _, open := <-s.Events(); open {
		t.Fatal("channel not closed")
	}
	// publishing after unsubscribe must not panic
	h.Publish(Event{Topic: TopicPresence, Kind: "presence.heartbeat"})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	s := h.Subscribe([]string{TopicPresence}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// second publish overflows the buffer and must return anyway
		h.Publish(Event{Topic: TopicPresence, Kind: "a"})
		h.Publish(Event{Topic: TopicPresence, Kind: "b"})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if ev := recvOne(t, s); ev.Kind != "a" {
		t.Fatalf("expected first event, got %+v", ev)
	}
}
