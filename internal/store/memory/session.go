package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openleague/draftauction/internal/store"
)

// SessionRepo implements store.SessionRepository in memory. The single
// core lock stands in for the Postgres driver's transactions: each
// compound operation observes and mutates state atomically.
type SessionRepo struct {
	c *core
}

func (r *SessionRepo) Current(_ context.Context) (*store.Session, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	s := r.c.activeSession()
	if s == nil {
		return nil, fmt.Errorf("no active session: %w", store.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (r *SessionRepo) Open(_ context.Context, lot *store.Lot, deadline time.Time) (*store.Session, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	if r.c.activeSession() != nil {
		return nil, fmt.Errorf("another session is active: %w", store.ErrConflict)
	}

	l, ok := r.c.lots[lot.ID]
	if !ok {
		return nil, fmt.Errorf("lot %s: %w", lot.ID, store.ErrNotFound)
	}
	if l.Status != store.LotUnlisted && l.Status != store.LotUnsold {
		return nil, fmt.Errorf("lot %s is not startable: %w", lot.ID, store.ErrConflict)
	}

	for id, s := range r.c.sessions {
		if s.LotID == lot.ID && s.Status != store.SessionActive {
			delete(r.c.sessions, id)
		}
	}

	l.Status = store.LotActive
	l.UpdatedAt = r.c.clock.Now().UTC()

	s := &store.Session{
		ID:         uuid.NewString(),
		LotID:      l.ID,
		CurrentBid: l.MinBid,
		Deadline:   deadline,
		Status:     store.SessionActive,
		CreatedAt:  r.c.clock.Now().UTC(),
	}
	r.c.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (r *SessionRepo) Raise(_ context.Context, sessionID, teamID string, amount, prev int64) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	s, ok := r.c.sessions[sessionID]
	if !ok || s.Status != store.SessionActive || s.CurrentBid != prev {
		return fmt.Errorf("bid raise on session %s lost its gate: %w", sessionID, store.ErrConflict)
	}
	s.CurrentBid = amount
	s.LeadingTeamID = &teamID
	return nil
}

func (r *SessionRepo) Settle(_ context.Context, sessionID string) (*store.Settlement, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	s, ok := r.c.sessions[sessionID]
	if !ok || s.Status != store.SessionActive {
		return nil, fmt.Errorf("session %s already settled: %w", sessionID, store.ErrConflict)
	}

	l, ok := r.c.lots[s.LotID]
	if !ok || l.Status != store.LotActive {
		return nil, fmt.Errorf("lot %s not active during settlement of session %s", s.LotID, sessionID)
	}

	now := r.c.clock.Now().UTC()
	settlement := &store.Settlement{SessionID: sessionID, LotID: s.LotID}

	if s.LeadingTeamID != nil {
		team, ok := r.c.teams[*s.LeadingTeamID]
		if !ok {
			return nil, fmt.Errorf("team %s: %w", *s.LeadingTeamID, store.ErrNotFound)
		}
		if team.Balance < s.CurrentBid {
			return nil, fmt.Errorf("debiting team %s by %d: %w", team.ID, s.CurrentBid, store.ErrInsufficientFunds)
		}

		team.Balance -= s.CurrentBid
		team.UpdatedAt = now

		price := s.CurrentBid
		owner := team.ID
		l.Status = store.LotSold
		l.OwnerTeamID = &owner
		l.SalePrice = &price
		l.UpdatedAt = now

		s.Status = store.SessionSold
		settlement.Sold = true
		settlement.TeamID = owner
		settlement.Price = price
	} else {
		l.Status = store.LotUnsold
		l.UpdatedAt = now
		s.Status = store.SessionUnsold
	}
	s.SettledAt = &now

	return settlement, nil
}

func (r *SessionRepo) Reset(_ context.Context) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	r.c.sessions = make(map[string]*store.Session)
	now := r.c.clock.Now().UTC()
	for _, l := range r.c.lots {
		l.Status = store.LotUnlisted
		l.OwnerTeamID = nil
		l.SalePrice = nil
		l.UpdatedAt = now
	}
	return nil
}
