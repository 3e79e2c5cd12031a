// Package eventstest records published events in memory.
package eventstest

import (
	"context"
	"sync"
)

type Event struct {
	Topic string
	Key   string
	Body  map[string]any
}

type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	body, _ := event.(map[string]any)
	r.events = append(r.events, Event{Topic: topic, Key: key, Body: body})
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the "type" field of every event sent to topic, in order.
func (r *Recorder) Types(topic string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Topic == topic {
			t, _ := e.Body["type"].(string)
			out = append(out, t)
		}
	}
	return out
}
