package eventbus

import "testing"

func TestPublishFanOut(t *testing.T) {
	b := New()
	a, unsubA := b.Subscribe(1)
	c, unsubC := b.Subscribe(1)
	defer unsubC()

	b.Publish(Event{Type: "broadcast.started"})
	if e := <-a; e.Type != "broadcast.started" || e.Time.IsZero() {
		t.Fatalf("a got %+v", e)
	}
	if e := <-c; e.Type != "broadcast.started" {
		t.Fatalf("c got %+v", e)
	}

	unsubA()
	unsubA()
	if _, ok := <-a; ok {
		t.Fatal("unsubscribed channel should be closed")
	}
	b.Publish(Event{Type: "after"})
	if e := <-c; e.Type != "after" {
		t.Fatalf("c got %+v", e)
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "one"})
	b.Publish(Event{Type: "two"})
	if got := b.Dropped(); got != 1 {
		t.Fatalf("dropped=%d, want 1", got)
	}
}
