// Package auction implements the live sequential player auction: one
// lot is on the block at a time, teams bid against a fixed deadline,
// and settlement transfers ownership and debits the winning wallet
// exactly once. All timing is lazy: deadlines are data, checked on the
// next observing call, never by a background timer.
package auction

import (
	"errors"

	"github.com/openleague/draftauction/internal/store"
)

// Errors returned by auction operations.
var (
	// ErrAuctionBusy means an unexpired session is already active.
	ErrAuctionBusy = errors.New("another auction is in progress")
	// ErrAlreadyAuctioned means the lot was already sold to a team.
	ErrAlreadyAuctioned = errors.New("lot has already been sold")
	// ErrNoActiveAuction means there is no live session to bid on.
	ErrNoActiveAuction = errors.New("no auction is in progress")
	// ErrBidTooLow means the bid does not strictly exceed the current bid.
	ErrBidTooLow = errors.New("bid must exceed the current bid")
	// ErrAlreadyLeading rejects a team raising against itself.
	ErrAlreadyLeading = errors.New("team is already the leading bidder")
	// ErrInsufficientFunds means the team cannot afford the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNotFound means the referenced lot or team does not exist.
	ErrNotFound = errors.New("not found")
	// ErrLotUnderAuction rejects administrative changes to a live lot.
	ErrLotUnderAuction = errors.New("lot is currently under auction")
	// ErrAlreadyOwned rejects assignment of a lot that has an owner.
	ErrAlreadyOwned = errors.New("lot already has an owner")
)

// Result classifies a finalize outcome.
type Result string

const (
	// Sold: the leading team won the lot at the current bid.
	Sold Result = "sold"
	// Unsold: the deadline passed with no bids.
	Unsold Result = "unsold"
	// NoOp: nothing to settle, or a concurrent settle already won.
	NoOp Result = "noop"
)

// Outcome is the result of a finalize call.
type Outcome struct {
	Result Result
	TeamID string
	Price  int64
}

// Status is the engine's read view: either an active session with its
// lot, or an idle view previewing the next eligible lots.
type Status struct {
	Session  *store.Session
	Lot      *store.Lot
	NextLots []store.Lot
}

// Idle reports whether no auction is currently live.
func (s *Status) Idle() bool { return s.Session == nil }
