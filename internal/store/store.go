package store

import (
	"context"
	"errors"
	"time"
)

// Lot auction statuses.
const (
	LotUnlisted = "unlisted"
	LotActive   = "active"
	LotSold     = "sold"
	LotUnsold   = "unsold"
)

// Session statuses. A session leaves "active" exactly once, through Settle.
const (
	SessionActive = "active"
	SessionSold   = "sold"
	SessionUnsold = "unsold"
)

// Sentinel errors shared by all store drivers.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional write loses its gate:
	// another active session exists, the status already moved, or the
	// expected current bid changed underneath a raise.
	ErrConflict = errors.New("conflicting concurrent update")
	// ErrInsufficientFunds is returned when a debit would take a team
	// balance below zero. The enclosing transaction is rolled back.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Lot is a player available to be auctioned to a team.
type Lot struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Rating      int        `db:"rating"`
	Tier        string     `db:"tier"` // ordered pool tier, "A".."F"
	MinBid      int64      `db:"min_bid"`
	OwnerTeamID *string    `db:"owner_team_id"`
	SalePrice   *int64     `db:"sale_price"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Team is a bidding team with a spendable balance.
type Team struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Session is the live record of the currently (or most recently)
// auctioned lot. At most one session is active at any instant.
type Session struct {
	ID            string     `db:"id"`
	LotID         string     `db:"lot_id"`
	CurrentBid    int64      `db:"current_bid"`
	LeadingTeamID *string    `db:"leading_team_id"`
	Deadline      time.Time  `db:"deadline"`
	Status        string     `db:"status"`
	CreatedAt     time.Time  `db:"created_at"`
	SettledAt     *time.Time `db:"settled_at"`
}

// Expired reports whether the session's deadline has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Deadline)
}

// Settlement is the terminal result of a session.
type Settlement struct {
	SessionID string
	LotID     string
	Sold      bool
	TeamID    string
	Price     int64
}

// LotRepository defines lot persistence operations.
type LotRepository interface {
	Create(ctx context.Context, l *Lot) error
	GetByID(ctx context.Context, id string) (*Lot, error)
	List(ctx context.Context) ([]Lot, error)
	// ListUnauctioned returns lots eligible for a future auction
	// (unlisted or unsold), ordered by tier then name, capped at limit.
	ListUnauctioned(ctx context.Context, limit int) ([]Lot, error)
	// Release clears ownership and returns the lot to unlisted,
	// optionally crediting the recorded sale price back to the owner.
	// Fails with ErrConflict if the lot is currently active.
	Release(ctx context.Context, id string, refund bool) error
	// Assign force-assigns an unowned, non-active lot to a team with no
	// wallet debit. Fails with ErrConflict on double ownership.
	Assign(ctx context.Context, id, teamID string) error
}

// TeamRepository defines team persistence operations.
type TeamRepository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id string) (*Team, error)
	List(ctx context.Context) ([]Team, error)
	// AdjustBalance applies a signed delta. A delta that would take the
	// balance negative fails with ErrInsufficientFunds and changes nothing.
	AdjustBalance(ctx context.Context, id string, delta int64) error
}

// SessionRepository defines auction session persistence. The compound
// operations (Open, Raise, Settle, Reset) each execute as one atomic
// unit with conditional status-gated writes.
type SessionRepository interface {
	// Current returns the single active session, or ErrNotFound.
	Current(ctx context.Context) (*Session, error)
	// Open creates an active session for the lot (current bid = min bid,
	// no leader) and marks the lot active, discarding any stale terminal
	// session for the same lot. ErrConflict if another session is active
	// or the lot is not startable.
	Open(ctx context.Context, lot *Lot, deadline time.Time) (*Session, error)
	// Raise is a compare-and-swap on the current bid: it replaces the
	// leading team and bid only while the session is still active and
	// the stored bid equals prev. ErrConflict when the gate is lost.
	Raise(ctx context.Context, sessionID, teamID string, amount, prev int64) error
	// Settle moves an active session to sold/unsold, updates the lot and
	// debits the leading team's wallet in the same transaction.
	// ErrConflict if the session already left active (lost race).
	Settle(ctx context.Context, sessionID string) (*Settlement, error)
	// Reset deletes all session records and returns every lot to
	// unlisted with no owner and no sale price. Balances are untouched.
	Reset(ctx context.Context) error
}
