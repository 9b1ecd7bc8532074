package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	AuctionStarted     Type = "auction.started"
	AuctionBidAccepted Type = "auction.bid_accepted"
	AuctionSold        Type = "auction.sold"
	AuctionUnsold      Type = "auction.unsold"
	AuctionsReset      Type = "auctions.reset"

	LotReleased Type = "lot.released"
	LotAssigned Type = "lot.assigned"

	TeamRegistered  Type = "team.registered"
	BalanceAdjusted Type = "balance.adjusted"
)

// Event is a single audit record. The event log is append-only and
// best-effort: it is never the source of truth for auction state.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// AuctionStartedData is the payload for AuctionStarted events.
type AuctionStartedData struct {
	LotID    string    `json:"lot_id"`
	MinBid   int64     `json:"min_bid"`
	Deadline time.Time `json:"deadline"`
}

// BidAcceptedData is the payload for AuctionBidAccepted events.
type BidAcceptedData struct {
	TeamID string `json:"team_id"`
	Amount int64  `json:"amount"`
}

// AuctionSoldData is the payload for AuctionSold events.
type AuctionSoldData struct {
	LotID  string `json:"lot_id"`
	TeamID string `json:"team_id"`
	Price  int64  `json:"price"`
}

// AuctionUnsoldData is the payload for AuctionUnsold events.
type AuctionUnsoldData struct {
	LotID string `json:"lot_id"`
}

// LotReleasedData is the payload for LotReleased events.
type LotReleasedData struct {
	Refund bool `json:"refund"`
}

// LotAssignedData is the payload for LotAssigned events.
type LotAssignedData struct {
	TeamID string `json:"team_id"`
}

// TeamRegisteredData is the payload for TeamRegistered events.
type TeamRegisteredData struct {
	Name           string `json:"name"`
	OpeningBalance int64  `json:"opening_balance"`
}

// BalanceAdjustedData is the payload for BalanceAdjusted events.
type BalanceAdjustedData struct {
	TeamID string `json:"team_id"`
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}
