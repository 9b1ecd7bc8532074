package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openleague/draftauction/internal/event"
	"github.com/openleague/draftauction/internal/store"
)

// Release undoes a sale: ownership is cleared, the lot returns to
// unlisted, and with refund the recorded sale price is credited back.
// A lot currently on the block cannot be released.
func (m *Manager) Release(ctx context.Context, lotID string, refund bool) error {
	ctx, span := m.tracer.Start(ctx, "Manager.Release",
		trace.WithAttributes(
			attribute.String("lot_id", lotID),
			attribute.Bool("refund", refund),
		),
	)
	defer span.End()

	err := m.lots.Release(ctx, lotID, refund)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, store.ErrConflict) {
		return ErrLotUnderAuction
	}
	if err != nil {
		return fmt.Errorf("releasing lot: %w", err)
	}

	data, _ := json.Marshal(event.LotReleasedData{Refund: refund})
	m.record(ctx, event.Event{AggregateID: lotID, Type: event.LotReleased, Data: data})

	m.logger.InfoContext(ctx, "lot released",
		slog.String("lot_id", lotID),
		slog.Bool("refund", refund),
	)
	return nil
}

// Assign force-assigns a lot to a team outside the bidding flow with no
// wallet debit. Double ownership and live lots are refused.
func (m *Manager) Assign(ctx context.Context, lotID, teamID string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.Assign",
		trace.WithAttributes(
			attribute.String("lot_id", lotID),
			attribute.String("team_id", teamID),
		),
	)
	defer span.End()

	if _, err := m.teams.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	err := m.lots.Assign(ctx, lotID, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, store.ErrConflict) {
		return ErrAlreadyOwned
	}
	if err != nil {
		return fmt.Errorf("assigning lot: %w", err)
	}

	data, _ := json.Marshal(event.LotAssignedData{TeamID: teamID})
	m.record(ctx, event.Event{AggregateID: lotID, Type: event.LotAssigned, Data: data})

	m.logger.InfoContext(ctx, "lot assigned",
		slog.String("lot_id", lotID),
		slog.String("team_id", teamID),
	)
	return nil
}

// Reset clears all session records and returns every lot to unlisted.
// Used between tournament phases; balances are untouched.
func (m *Manager) Reset(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "Manager.Reset")
	defer span.End()

	if err := m.sessions.Reset(ctx); err != nil {
		return fmt.Errorf("resetting auctions: %w", err)
	}

	m.record(ctx, event.Event{AggregateID: "auctions", Type: event.AuctionsReset, Data: json.RawMessage(`{}`)})

	m.logger.InfoContext(ctx, "auctions reset")
	return nil
}
