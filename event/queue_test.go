package event

import (
	"sync"
	"testing"
	"time"

	"github.com/lixenwraith/beatframe/parameter"
)

func TestQueuePushConsumeFIFO(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 10; i++ {
		q.Push(Event{Type: TypeBeat, Payload: &BeatPayload{BPM: float64(100 + i)}})
	}

	events := q.Consume()
	if len(events) != 10 {
		t.Fatalf("expected 10 events, got %d", len(events))
	}
	for i, ev := range events {
		p := ev.Payload.(*BeatPayload)
		if p.BPM != float64(100+i) {
			t.Errorf("event %d out of order: BPM = %v", i, p.BPM)
		}
	}

	if got := q.Consume(); got != nil {
		t.Errorf("expected empty queue after consume, got %d events", len(got))
	}
}

func TestQueueLen(t *testing.T) {
	q := NewQueue()
	if q.Len() != 0 {
		t.Fatalf("new queue Len = %d, want 0", q.Len())
	}
	q.Push(Event{Type: TypeMood})
	q.Push(Event{Type: TypeBeat})
	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}
}

func TestQueueOverflowKeepsNewest(t *testing.T) {
	q := NewQueue()
	total := parameter.MusicEventQueueSize + 50
	for i := 0; i < total; i++ {
		q.Push(Event{Type: TypeBeat, Payload: &BeatPayload{BPM: float64(i)}})
	}

	events := q.Consume()
	if len(events) > parameter.MusicEventQueueSize {
		t.Fatalf("consumed %d events, ring capacity is %d", len(events), parameter.MusicEventQueueSize)
	}
	// Oldest events must have been overwritten
	first := events[0].Payload.(*BeatPayload)
	if first.BPM < 50 {
		t.Errorf("expected oldest events overwritten, first BPM = %v", first.BPM)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	producers := 8
	perProducer := 20

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(Event{Type: TypeMood, Payload: &MoodPayload{Timestamp: time.Now()}})
			}
		}()
	}
	wg.Wait()

	total := 0
	for {
		batch := q.Consume()
		if batch == nil {
			break
		}
		total += len(batch)
	}
	if total != producers*perProducer {
		t.Errorf("consumed %d events, want %d", total, producers*perProducer)
	}
}
