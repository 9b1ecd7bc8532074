// Package memory provides an in-memory store driver with the same
// conditional-write semantics as the Postgres driver. It backs unit
// tests and local development; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/openleague/draftauction/internal/clock"
	"github.com/openleague/draftauction/internal/config"
	"github.com/openleague/draftauction/internal/event"
	"github.com/openleague/draftauction/internal/store"
)

func init() {
	store.Register("memory", func(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		return Open(clk), nil
	})
}

// Open returns Repositories backed by a fresh in-memory state.
func Open(clk clock.Clock) *store.Repositories {
	c := &core{
		lots:     make(map[string]*store.Lot),
		teams:    make(map[string]*store.Team),
		sessions: make(map[string]*store.Session),
		clock:    clk,
	}
	return &store.Repositories{
		Lots:     &LotRepo{c},
		Teams:    &TeamRepo{c},
		Sessions: &SessionRepo{c},
		Events:   &EventStore{c},
		Closer:   nopCloser{},
		Ping:     func(context.Context) error { return nil },
	}
}

// core holds all state under one lock so compound operations
// (open, settle, release, reset) are atomic, mirroring the Postgres
// driver's transactions.
type core struct {
	mu       sync.RWMutex
	lots     map[string]*store.Lot
	teams    map[string]*store.Team
	sessions map[string]*store.Session
	events   []event.Event
	clock    clock.Clock
}

// activeSession returns the single active session, if any. Caller holds the lock.
func (c *core) activeSession() *store.Session {
	for _, s := range c.sessions {
		if s.Status == store.SessionActive {
			return s
		}
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
