package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/openleague/draftauction/internal/store"
)

// LotRepo implements store.LotRepository in memory.
type LotRepo struct {
	c *core
}

func (r *LotRepo) Create(_ context.Context, l *store.Lot) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	now := r.c.clock.Now().UTC()
	l.ID = uuid.NewString()
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = store.LotUnlisted
	}
	cp := *l
	r.c.lots[l.ID] = &cp
	return nil
}

func (r *LotRepo) GetByID(_ context.Context, id string) (*store.Lot, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	l, ok := r.c.lots[id]
	if !ok {
		return nil, fmt.Errorf("lot %s: %w", id, store.ErrNotFound)
	}
	cp := *l
	return &cp, nil
}

func (r *LotRepo) List(_ context.Context) ([]store.Lot, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	lots := make([]store.Lot, 0, len(r.c.lots))
	for _, l := range r.c.lots {
		lots = append(lots, *l)
	}
	sortLots(lots)
	return lots, nil
}

func (r *LotRepo) ListUnauctioned(_ context.Context, limit int) ([]store.Lot, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	var lots []store.Lot
	for _, l := range r.c.lots {
		if l.Status == store.LotUnlisted || l.Status == store.LotUnsold {
			lots = append(lots, *l)
		}
	}
	sortLots(lots)
	if len(lots) > limit {
		lots = lots[:limit]
	}
	return lots, nil
}

func (r *LotRepo) Release(_ context.Context, id string, refund bool) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	l, ok := r.c.lots[id]
	if !ok {
		return fmt.Errorf("lot %s: %w", id, store.ErrNotFound)
	}
	if l.Status == store.LotActive {
		return fmt.Errorf("lot %s is under auction: %w", id, store.ErrConflict)
	}

	if refund && l.OwnerTeamID != nil && l.SalePrice != nil {
		if team, ok := r.c.teams[*l.OwnerTeamID]; ok {
			team.Balance += *l.SalePrice
			team.UpdatedAt = r.c.clock.Now().UTC()
		}
	}

	l.OwnerTeamID = nil
	l.SalePrice = nil
	l.Status = store.LotUnlisted
	l.UpdatedAt = r.c.clock.Now().UTC()
	return nil
}

func (r *LotRepo) Assign(_ context.Context, id, teamID string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	l, ok := r.c.lots[id]
	if !ok {
		return fmt.Errorf("lot %s: %w", id, store.ErrNotFound)
	}
	if l.Status == store.LotActive || l.OwnerTeamID != nil {
		return fmt.Errorf("lot %s is owned or under auction: %w", id, store.ErrConflict)
	}

	price := int64(0)
	l.OwnerTeamID = &teamID
	l.SalePrice = &price
	l.Status = store.LotSold
	l.UpdatedAt = r.c.clock.Now().UTC()
	return nil
}

func sortLots(lots []store.Lot) {
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].Tier != lots[j].Tier {
			return lots[i].Tier < lots[j].Tier
		}
		return lots[i].Name < lots[j].Name
	})
}
