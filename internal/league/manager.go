// Package league manages the bidding teams and their wallets outside
// the live auction: registration, balance administration and catalog
// growth. The auction engine itself never goes through this package.
package league

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

// Errors returned by league operations.
var (
	ErrTeamExists        = errors.New("team name already registered")
	ErrTeamNotFound      = errors.New("team not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Manager handles team and catalog administration.
type Manager struct {
	teams  store.TeamRepository
	lots   store.LotRepository
	events event.Store
	logger *slog.Logger
	tracer trace.Tracer
}

// NewManager returns a new league Manager.
func NewManager(teams store.TeamRepository, lots store.LotRepository, events event.Store, logger *slog.Logger, tp trace.TracerProvider) *Manager {
	return &Manager{
		teams:  teams,
		lots:   lots,
		events: events,
		logger: logger,
		tracer: tp.Tracer("github.com/openleague/draftauction/internal/league"),
	}
}

// RegisterTeam registers a new team with an opening balance.
func (m *Manager) RegisterTeam(ctx context.Context, name string, openingBalance int64) (*store.Team, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.RegisterTeam",
		trace.WithAttributes(
			attribute.String("name", name),
			attribute.Int64("opening_balance", openingBalance),
		),
	)
	defer span.End()

	if openingBalance < 0 {
		return nil, fmt.Errorf("opening balance must not be negative, got %d", openingBalance)
	}

	t := &store.Team{Name: name, Balance: openingBalance}
	err := m.teams.Create(ctx, t)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrTeamExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating team: %w", err)
	}

	data, _ := json.Marshal(event.TeamRegisteredData{Name: name, OpeningBalance: openingBalance})
	m.record(ctx, event.Event{AggregateID: t.ID, Type: event.TeamRegistered, Data: data})

	m.logger.InfoContext(ctx, "team registered",
		slog.String("team_id", t.ID),
		slog.String("name", name),
		slog.Int64("opening_balance", openingBalance),
	)
	return t, nil
}

// GetTeam returns a team by id.
func (m *Manager) GetTeam(ctx context.Context, id string) (*store.Team, error) {
	t, err := m.teams.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTeamNotFound
	}
	return t, err
}

// ListTeams returns all teams, richest first.
func (m *Manager) ListTeams(ctx context.Context) ([]store.Team, error) {
	return m.teams.List(ctx)
}

// AdjustBalance applies a signed administrative correction to a team's
// wallet. A debit past zero is rejected.
func (m *Manager) AdjustBalance(ctx context.Context, teamID string, delta int64, reason string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.AdjustBalance",
		trace.WithAttributes(
			attribute.String("team_id", teamID),
			attribute.Int64("delta", delta),
		),
	)
	defer span.End()

	err := m.teams.AdjustBalance(ctx, teamID, delta)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTeamNotFound
	}
	if errors.Is(err, store.ErrInsufficientFunds) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("adjusting balance: %w", err)
	}

	data, _ := json.Marshal(event.BalanceAdjustedData{TeamID: teamID, Delta: delta, Reason: reason})
	m.record(ctx, event.Event{AggregateID: teamID, Type: event.BalanceAdjusted, Data: data})

	m.logger.InfoContext(ctx, "balance adjusted",
		slog.String("team_id", teamID),
		slog.Int64("delta", delta),
		slog.String("reason", reason),
	)
	return nil
}

// AddLot adds a player lot to the catalog.
func (m *Manager) AddLot(ctx context.Context, name, tier string, rating int, minBid int64) (*store.Lot, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.AddLot",
		trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("tier", tier),
		),
	)
	defer span.End()

	if minBid < 0 {
		return nil, fmt.Errorf("minimum bid must not be negative, got %d", minBid)
	}

	l := &store.Lot{Name: name, Tier: tier, Rating: rating, MinBid: minBid}
	if err := m.lots.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("creating lot: %w", err)
	}

	m.logger.InfoContext(ctx, "lot added",
		slog.String("lot_id", l.ID),
		slog.String("name", name),
		slog.String("tier", tier),
		slog.Int64("min_bid", minBid),
	)
	return l, nil
}

// ListLots returns the full catalog ordered by tier then name.
func (m *Manager) ListLots(ctx context.Context) ([]store.Lot, error) {
	return m.lots.List(ctx)
}

func (m *Manager) record(ctx context.Context, e event.Event) {
	if err := m.events.Append(ctx, e); err != nil {
		m.logger.ErrorContext(ctx, "failed to append audit event",
			slog.String("type", string(e.Type)),
			slog.Any("error", err),
		)
	}
}
