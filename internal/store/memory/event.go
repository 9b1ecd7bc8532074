package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/openleague/draftauction/internal/event"
)

// EventStore implements event.Store in memory.
type EventStore struct {
	c *core
}

func (s *EventStore) Append(_ context.Context, events ...event.Event) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	for _, e := range events {
		e.ID = uuid.NewString()
		e.CreatedAt = s.c.clock.Now().UTC()
		s.c.events = append(s.c.events, e)
	}
	return nil
}

func (s *EventStore) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()

	var result []event.Event
	for _, e := range s.c.events {
		if e.AggregateID == aggregateID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *EventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()

	var result []event.Event
	for _, e := range s.c.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result, nil
}
