package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openleague/draftauction/internal/clock"
	"github.com/openleague/draftauction/internal/store"
)

// LotRepo implements store.LotRepository with sqlx.
type LotRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewLotRepo returns a new LotRepo.
func NewLotRepo(db *sqlx.DB, clk clock.Clock) *LotRepo {
	return &LotRepo{db: db, clock: clk}
}

func (r *LotRepo) Create(ctx context.Context, l *store.Lot) error {
	now := r.clock.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = store.LotUnlisted
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO lots (name, rating, tier, min_bid, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		l.Name, l.Rating, l.Tier, l.MinBid, l.Status, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("creating lot: %w", err)
	}
	return nil
}

func (r *LotRepo) GetByID(ctx context.Context, id string) (*store.Lot, error) {
	var l store.Lot
	err := r.db.GetContext(ctx, &l, `SELECT * FROM lots WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lot %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting lot: %w", err)
	}
	return &l, nil
}

func (r *LotRepo) List(ctx context.Context) ([]store.Lot, error) {
	var lots []store.Lot
	err := r.db.SelectContext(ctx, &lots, `SELECT * FROM lots ORDER BY tier ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	return lots, nil
}

func (r *LotRepo) ListUnauctioned(ctx context.Context, limit int) ([]store.Lot, error) {
	var lots []store.Lot
	err := r.db.SelectContext(ctx, &lots,
		`SELECT * FROM lots WHERE status IN ('unlisted', 'unsold')
		 ORDER BY tier ASC, name ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing unauctioned lots: %w", err)
	}
	return lots, nil
}

func (r *LotRepo) Release(ctx context.Context, id string, refund bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the row so a concurrent release re-reads the cleared owner
	// and cannot credit the refund a second time.
	var l store.Lot
	err = tx.GetContext(ctx, &l, `SELECT * FROM lots WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lot %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting lot: %w", err)
	}
	if l.Status == store.LotActive {
		return fmt.Errorf("lot %s is under auction: %w", id, store.ErrConflict)
	}

	if refund && l.OwnerTeamID != nil && l.SalePrice != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE teams SET balance = balance + $1, updated_at = $2 WHERE id = $3`,
			*l.SalePrice, r.clock.Now().UTC(), *l.OwnerTeamID,
		); err != nil {
			return fmt.Errorf("refunding team %s: %w", *l.OwnerTeamID, err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE lots SET owner_team_id = NULL, sale_price = NULL, status = 'unlisted', updated_at = $1
		 WHERE id = $2 AND status <> 'active'`,
		r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("releasing lot: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("lot %s went active during release: %w", id, store.ErrConflict)
	}

	return tx.Commit()
}

func (r *LotRepo) Assign(ctx context.Context, id, teamID string) error {
	// Forced assignment records a zero sale price: the wallet is not
	// debited, but sold lots always carry an owner and a price.
	result, err := r.db.ExecContext(ctx,
		`UPDATE lots SET owner_team_id = $1, sale_price = 0, status = 'sold', updated_at = $2
		 WHERE id = $3 AND status <> 'active' AND owner_team_id IS NULL`,
		teamID, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("assigning lot: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("lot %s is owned or under auction: %w", id, store.ErrConflict)
	}
	return nil
}
