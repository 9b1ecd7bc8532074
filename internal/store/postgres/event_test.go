package postgres_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/openleague/draftauction/internal/event"
)

func TestEventStore_AppendAndLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sessionID := "session-001"
	// Separate appends so created_at ordering is meaningful.
	first := event.Event{AggregateID: sessionID, Type: event.AuctionStarted, Data: json.RawMessage(`{"lot_id":"l1","min_bid":90000}`)}
	second := event.Event{AggregateID: sessionID, Type: event.AuctionBidAccepted, Data: json.RawMessage(`{"team_id":"t1","amount":95000}`)}
	if err := f.events.Append(ctx, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := f.events.Append(ctx, second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	loaded, err := f.events.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Load returned %d events, want 2", len(loaded))
	}
	if loaded[0].Type != event.AuctionStarted || loaded[1].Type != event.AuctionBidAccepted {
		t.Errorf("types = [%q, %q], want [started, bid_accepted]", loaded[0].Type, loaded[1].Type)
	}
	if loaded[0].ID == "" || loaded[0].CreatedAt.IsZero() {
		t.Error("loaded event missing id or timestamp")
	}

	var payload event.BidAcceptedData
	if err := json.Unmarshal(loaded[1].Data, &payload); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	if payload.TeamID != "t1" || payload.Amount != 95000 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestEventStore_LoadByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events := []event.Event{
		{AggregateID: "s1", Type: event.AuctionStarted, Data: json.RawMessage(`{}`)},
		{AggregateID: "s1", Type: event.AuctionSold, Data: json.RawMessage(`{}`)},
		{AggregateID: "s2", Type: event.AuctionStarted, Data: json.RawMessage(`{}`)},
	}
	if err := f.events.Append(ctx, events...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	started, err := f.events.LoadByType(ctx, event.AuctionStarted)
	if err != nil {
		t.Fatalf("LoadByType: %v", err)
	}
	if len(started) != 2 {
		t.Fatalf("LoadByType returned %d events, want 2", len(started))
	}
	for _, e := range started {
		if e.Type != event.AuctionStarted {
			t.Errorf("event type = %q, want %q", e.Type, event.AuctionStarted)
		}
	}

	none, err := f.events.LoadByType(ctx, event.AuctionsReset)
	if err != nil {
		t.Fatalf("LoadByType: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("LoadByType(reset) returned %d events, want 0", len(none))
	}
}
