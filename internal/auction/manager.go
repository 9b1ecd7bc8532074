package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openleague/draftauction/internal/clock"
	"github.com/openleague/draftauction/internal/config"
	"github.com/openleague/draftauction/internal/event"
	"github.com/openleague/draftauction/internal/store"
)

// raiseAttempts bounds the re-read loop when a bid's compare-and-swap
// loses to a concurrent raise.
const raiseAttempts = 3

// Manager coordinates the auction lifecycle. It holds no auction state
// of its own: every decision is made against the durable store, so any
// number of replicas can serve requests concurrently.
type Manager struct {
	lots     store.LotRepository
	teams    store.TeamRepository
	sessions store.SessionRepository
	events   event.Store
	logger   *slog.Logger
	tracer   trace.Tracer
	clock    clock.Clock

	countdown    time.Duration
	previewLimit int
}

// NewManager creates a new auction Manager.
func NewManager(repos *store.Repositories, cfg config.AuctionConfig, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Manager {
	return &Manager{
		lots:         repos.Lots,
		teams:        repos.Teams,
		sessions:     repos.Sessions,
		events:       repos.Events,
		logger:       logger,
		tracer:       tp.Tracer("github.com/openleague/draftauction/internal/auction"),
		clock:        clk,
		countdown:    cfg.Countdown,
		previewLimit: cfg.PreviewLimit,
	}
}

// Start opens an auction for the lot. Any expired active session is
// swept first, so a stuck auction never blocks the next one.
func (m *Manager) Start(ctx context.Context, lotID string) (*store.Session, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Start",
		trace.WithAttributes(attribute.String("lot_id", lotID)),
	)
	defer span.End()

	m.sweep(ctx)

	lot, err := m.lots.GetByID(ctx, lotID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lot.Status == store.LotSold || lot.OwnerTeamID != nil {
		return nil, ErrAlreadyAuctioned
	}
	if lot.Status == store.LotActive {
		return nil, ErrAuctionBusy
	}

	s, err := m.sessions.Open(ctx, lot, m.clock.Now().Add(m.countdown))
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrAuctionBusy
	}
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}

	data, _ := json.Marshal(event.AuctionStartedData{
		LotID:    lot.ID,
		MinBid:   lot.MinBid,
		Deadline: s.Deadline,
	})
	m.record(ctx, event.Event{AggregateID: s.ID, Type: event.AuctionStarted, Data: data})

	m.logger.InfoContext(ctx, "auction started",
		slog.String("session_id", s.ID),
		slog.String("lot_id", lot.ID),
		slog.String("lot_name", lot.Name),
		slog.Int64("min_bid", lot.MinBid),
		slog.Time("deadline", s.Deadline),
	)
	return s, nil
}

// Status returns the live session, or an idle preview of upcoming lots.
// An expired session is swept before reporting.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Status")
	defer span.End()

	m.sweep(ctx)

	s, err := m.sessions.Current(ctx)
	if errors.Is(err, store.ErrNotFound) {
		next, listErr := m.lots.ListUnauctioned(ctx, m.previewLimit)
		if listErr != nil {
			return nil, fmt.Errorf("listing next lots: %w", listErr)
		}
		return &Status{NextLots: next}, nil
	}
	if err != nil {
		return nil, err
	}

	lot, err := m.lots.GetByID(ctx, s.LotID)
	if err != nil {
		return nil, fmt.Errorf("getting lot for session %s: %w", s.ID, err)
	}
	return &Status{Session: s, Lot: lot}, nil
}

// Bid places a bid for the team on the live session. The raise is a
// compare-and-swap on the stored current bid; a lost race re-reads and
// re-validates.
func (m *Manager) Bid(ctx context.Context, teamID string, amount int64) (int64, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Bid",
		trace.WithAttributes(
			attribute.String("team_id", teamID),
			attribute.Int64("amount", amount),
		),
	)
	defer span.End()

	for attempt := 0; attempt < raiseAttempts; attempt++ {
		s, err := m.sessions.Current(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrNoActiveAuction
		}
		if err != nil {
			return 0, err
		}

		// A deadline that passed un-swept still closes the auction to
		// bids; settle it on the way out.
		if s.Expired(m.clock.Now()) {
			m.settleExpired(ctx, s)
			return 0, ErrNoActiveAuction
		}

		if amount <= s.CurrentBid {
			return 0, ErrBidTooLow
		}
		if s.LeadingTeamID != nil && *s.LeadingTeamID == teamID {
			return 0, ErrAlreadyLeading
		}

		team, err := m.teams.GetByID(ctx, teamID)
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		if team.Balance < amount {
			return 0, ErrInsufficientFunds
		}

		err = m.sessions.Raise(ctx, s.ID, teamID, amount, s.CurrentBid)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("raising bid: %w", err)
		}

		data, _ := json.Marshal(event.BidAcceptedData{TeamID: teamID, Amount: amount})
		m.record(ctx, event.Event{AggregateID: s.ID, Type: event.AuctionBidAccepted, Data: data})

		m.logger.InfoContext(ctx, "bid accepted",
			slog.String("session_id", s.ID),
			slog.String("team_id", teamID),
			slog.Int64("amount", amount),
		)
		return amount, nil
	}

	// The current bid kept moving underneath us; by now it can only
	// have passed the offered amount.
	return 0, ErrBidTooLow
}

// Finalize settles the live session. Without force it settles only an
// expired session and returns NoOp otherwise. Exactly one of any number
// of concurrent finalize calls settles; the rest observe NoOp.
func (m *Manager) Finalize(ctx context.Context, force bool) (*Outcome, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Finalize",
		trace.WithAttributes(attribute.Bool("force", force)),
	)
	defer span.End()

	s, err := m.sessions.Current(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return &Outcome{Result: NoOp}, nil
	}
	if err != nil {
		return nil, err
	}
	if !force && !s.Expired(m.clock.Now()) {
		return &Outcome{Result: NoOp}, nil
	}

	return m.settle(ctx, s)
}

// sweep settles a stuck session (deadline elapsed, never finalized) as
// a side effect of a later call. Losing the settle race to another
// handler is fine: the session is gone either way.
func (m *Manager) sweep(ctx context.Context) {
	s, err := m.sessions.Current(ctx)
	if err != nil {
		return
	}
	if !s.Expired(m.clock.Now()) {
		return
	}
	m.logger.InfoContext(ctx, "sweeping stuck session",
		slog.String("session_id", s.ID),
		slog.Time("deadline", s.Deadline),
	)
	m.settleExpired(ctx, s)
}

func (m *Manager) settleExpired(ctx context.Context, s *store.Session) {
	if _, err := m.settle(ctx, s); err != nil {
		m.logger.ErrorContext(ctx, "failed to settle expired session",
			slog.String("session_id", s.ID),
			slog.Any("error", err),
		)
	}
}

func (m *Manager) settle(ctx context.Context, s *store.Session) (*Outcome, error) {
	settlement, err := m.sessions.Settle(ctx, s.ID)
	if errors.Is(err, store.ErrConflict) {
		// Another finalize won the status gate.
		return &Outcome{Result: NoOp}, nil
	}
	if errors.Is(err, store.ErrInsufficientFunds) {
		return nil, ErrInsufficientFunds
	}
	if err != nil {
		return nil, fmt.Errorf("settling session %s: %w", s.ID, err)
	}

	if settlement.Sold {
		data, _ := json.Marshal(event.AuctionSoldData{
			LotID:  settlement.LotID,
			TeamID: settlement.TeamID,
			Price:  settlement.Price,
		})
		m.record(ctx, event.Event{AggregateID: s.ID, Type: event.AuctionSold, Data: data})

		m.logger.InfoContext(ctx, "auction settled: sold",
			slog.String("session_id", s.ID),
			slog.String("lot_id", settlement.LotID),
			slog.String("team_id", settlement.TeamID),
			slog.Int64("price", settlement.Price),
		)
		return &Outcome{Result: Sold, TeamID: settlement.TeamID, Price: settlement.Price}, nil
	}

	data, _ := json.Marshal(event.AuctionUnsoldData{LotID: settlement.LotID})
	m.record(ctx, event.Event{AggregateID: s.ID, Type: event.AuctionUnsold, Data: data})

	m.logger.InfoContext(ctx, "auction settled: unsold",
		slog.String("session_id", s.ID),
		slog.String("lot_id", settlement.LotID),
	)
	return &Outcome{Result: Unsold}, nil
}

// record appends an audit event. The log is best-effort and never fails
// the operation that produced it.
func (m *Manager) record(ctx context.Context, e event.Event) {
	if err := m.events.Append(ctx, e); err != nil {
		m.logger.ErrorContext(ctx, "failed to append audit event",
			slog.String("type", string(e.Type)),
			slog.Any("error", err),
		)
	}
}
