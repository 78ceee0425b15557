package events

import (
	"context"
	"encoding/json"
	"sync"
)

// Published is a recorded event for assertions.
type Published struct {
	Topic   string
	Key     string
	Payload json.RawMessage
}

// InMemoryPublisher records published events. Used in tests and when no
// broker is configured.
type InMemoryPublisher struct {
	mu     sync.RWMutex
	events []Published
}

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (p *InMemoryPublisher) Publish(ctx context.Context, topic, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{Topic: topic, Key: key, Payload: body})
}

// ByTopic returns recorded events for a topic.
func (p *InMemoryPublisher) ByTopic(topic string) []Published {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Published
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// All returns every recorded event.
func (p *InMemoryPublisher) All() []Published {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Published, len(p.events))
	copy(out, p.events)
	return out
}
