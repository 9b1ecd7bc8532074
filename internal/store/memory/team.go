package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/openleague/draftauction/internal/store"
)

// TeamRepo implements store.TeamRepository in memory.
type TeamRepo struct {
	c *core
}

func (r *TeamRepo) Create(_ context.Context, t *store.Team) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	for _, existing := range r.c.teams {
		if existing.Name == t.Name {
			return fmt.Errorf("team %q: %w", t.Name, store.ErrConflict)
		}
	}

	now := r.c.clock.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	r.c.teams[t.ID] = &cp
	return nil
}

func (r *TeamRepo) GetByID(_ context.Context, id string) (*store.Team, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	t, ok := r.c.teams[id]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", id, store.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *TeamRepo) List(_ context.Context) ([]store.Team, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	teams := make([]store.Team, 0, len(r.c.teams))
	for _, t := range r.c.teams {
		teams = append(teams, *t)
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Balance != teams[j].Balance {
			return teams[i].Balance > teams[j].Balance
		}
		return teams[i].Name < teams[j].Name
	})
	return teams, nil
}

func (r *TeamRepo) AdjustBalance(_ context.Context, id string, delta int64) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	t, ok := r.c.teams[id]
	if !ok {
		return fmt.Errorf("team %s: %w", id, store.ErrNotFound)
	}
	if t.Balance+delta < 0 {
		return fmt.Errorf("debiting team %s by %d: %w", id, -delta, store.ErrInsufficientFunds)
	}
	t.Balance += delta
	t.UpdatedAt = r.c.clock.Now().UTC()
	return nil
}
