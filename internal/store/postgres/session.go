package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openleague/draftauction/internal/clock"
	"github.com/openleague/draftauction/internal/store"
)

// SessionRepo implements store.SessionRepository with sqlx. Every write
// that moves a session or lot out of 'active' is conditional on the row
// still being active, so concurrent settles race safely: exactly one
// wins, losers observe store.ErrConflict.
type SessionRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewSessionRepo returns a new SessionRepo.
func NewSessionRepo(db *sqlx.DB, clk clock.Clock) *SessionRepo {
	return &SessionRepo{db: db, clock: clk}
}

func (r *SessionRepo) Current(ctx context.Context) (*store.Session, error) {
	var s store.Session
	err := r.db.GetContext(ctx, &s, `SELECT * FROM sessions WHERE status = 'active'`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no active session: %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting current session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) Open(ctx context.Context, lot *store.Lot, deadline time.Time) (*store.Session, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Mark the lot active first. The partial unique index on active lots
	// turns a concurrent start into a unique violation here.
	result, err := tx.ExecContext(ctx,
		`UPDATE lots SET status = 'active', updated_at = $1
		 WHERE id = $2 AND status IN ('unlisted', 'unsold')`,
		r.clock.Now().UTC(), lot.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("another lot is under auction: %w", store.ErrConflict)
		}
		return nil, fmt.Errorf("marking lot active: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("lot %s is not startable: %w", lot.ID, store.ErrConflict)
	}

	// Re-auctioning an unsold lot: discard its stale terminal record.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE lot_id = $1 AND status <> 'active'`, lot.ID,
	); err != nil {
		return nil, fmt.Errorf("discarding stale session: %w", err)
	}

	s := &store.Session{
		LotID:      lot.ID,
		CurrentBid: lot.MinBid,
		Deadline:   deadline,
		Status:     store.SessionActive,
		CreatedAt:  r.clock.Now().UTC(),
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO sessions (lot_id, current_bid, deadline, status, created_at)
		 VALUES ($1, $2, $3, 'active', $4) RETURNING id`,
		s.LotID, s.CurrentBid, s.Deadline, s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("another session is active: %w", store.ErrConflict)
		}
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing open: %w", err)
	}
	return s, nil
}

func (r *SessionRepo) Raise(ctx context.Context, sessionID, teamID string, amount, prev int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET current_bid = $1, leading_team_id = $2
		 WHERE id = $3 AND status = 'active' AND current_bid = $4`,
		amount, teamID, sessionID, prev,
	)
	if err != nil {
		return fmt.Errorf("raising bid: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("bid raise on session %s lost its gate: %w", sessionID, store.ErrConflict)
	}
	return nil
}

func (r *SessionRepo) Settle(ctx context.Context, sessionID string) (*store.Settlement, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The status transition is the mutual-exclusion token: only one
	// concurrent settle sees a row here.
	var (
		lotID  string
		leader sql.NullString
		bid    int64
	)
	err = tx.QueryRowContext(ctx,
		`UPDATE sessions
		 SET status = CASE WHEN leading_team_id IS NULL THEN 'unsold' ELSE 'sold' END,
		     settled_at = $1
		 WHERE id = $2 AND status = 'active'
		 RETURNING lot_id, leading_team_id, current_bid`,
		r.clock.Now().UTC(), sessionID,
	).Scan(&lotID, &leader, &bid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s already settled: %w", sessionID, store.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("settling session: %w", err)
	}

	settlement := &store.Settlement{SessionID: sessionID, LotID: lotID}

	if leader.Valid {
		result, execErr := tx.ExecContext(ctx,
			`UPDATE lots SET status = 'sold', owner_team_id = $1, sale_price = $2, updated_at = $3
			 WHERE id = $4 AND status = 'active'`,
			leader.String, bid, r.clock.Now().UTC(), lotID,
		)
		if execErr != nil {
			return nil, fmt.Errorf("transferring lot ownership: %w", execErr)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("lot %s not active during settlement of session %s", lotID, sessionID)
		}

		result, execErr = tx.ExecContext(ctx,
			`UPDATE teams SET balance = balance - $1, updated_at = $2
			 WHERE id = $3 AND balance >= $1`,
			bid, r.clock.Now().UTC(), leader.String,
		)
		if execErr != nil {
			return nil, fmt.Errorf("debiting team wallet: %w", execErr)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("debiting team %s by %d: %w", leader.String, bid, store.ErrInsufficientFunds)
		}

		settlement.Sold = true
		settlement.TeamID = leader.String
		settlement.Price = bid
	} else {
		result, execErr := tx.ExecContext(ctx,
			`UPDATE lots SET status = 'unsold', updated_at = $1
			 WHERE id = $2 AND status = 'active'`,
			r.clock.Now().UTC(), lotID,
		)
		if execErr != nil {
			return nil, fmt.Errorf("marking lot unsold: %w", execErr)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("lot %s not active during settlement of session %s", lotID, sessionID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing settlement: %w", err)
	}
	return settlement, nil
}

func (r *SessionRepo) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE lots SET status = 'unlisted', owner_team_id = NULL, sale_price = NULL, updated_at = $1`,
		r.clock.Now().UTC(),
	); err != nil {
		return fmt.Errorf("resetting lots: %w", err)
	}

	return tx.Commit()
}
