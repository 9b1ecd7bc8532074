package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/openleague/draftauction/internal/api"
	"github.com/openleague/draftauction/internal/auction"
	"github.com/openleague/draftauction/internal/clock"
	"github.com/openleague/draftauction/internal/config"
	"github.com/openleague/draftauction/internal/league"
	"github.com/openleague/draftauction/internal/store"
	"github.com/openleague/draftauction/internal/store/memory"
)

// server wires the full stack behind an httptest server: memory store,
// auction engine, league manager, JSON handlers.
type server struct {
	ts    *httptest.Server
	repos *store.Repositories
	clk   *clock.Mock
}

func newServer(t *testing.T) *server {
	t.Helper()
	clk := clock.NewMock(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	repos := memory.Open(clk)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tp := noop.NewTracerProvider()

	cfg := config.AuctionConfig{Countdown: 30 * time.Second, PreviewLimit: 10}
	engine := auction.NewManager(repos, cfg, logger, tp, clk)
	lg := league.NewManager(repos.Teams, repos.Lots, repos.Events, logger, tp)

	mux := http.NewServeMux()
	api.NewHandler(engine, lg, logger).Register(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return &server{ts: ts, repos: repos, clk: clk}
}

// do sends a JSON request and decodes the JSON response into out (if
// out is non-nil), returning the status code.
func (s *server) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *server) addTeam(t *testing.T, name string, balance int64) string {
	t.Helper()
	var team struct {
		ID string `json:"id"`
	}
	code := s.do(t, http.MethodPost, "/teams", map[string]any{
		"name": name, "opening_balance": balance,
	}, &team)
	if code != http.StatusCreated {
		t.Fatalf("POST /teams returned %d", code)
	}
	return team.ID
}

func (s *server) addLot(t *testing.T, name, tier string, minBid int64) string {
	t.Helper()
	var lot struct {
		ID string `json:"id"`
	}
	code := s.do(t, http.MethodPost, "/lots", map[string]any{
		"name": name, "tier": tier, "rating": 90, "min_bid": minBid,
	}, &lot)
	if code != http.StatusCreated {
		t.Fatalf("POST /lots returned %d", code)
	}
	return lot.ID
}

func TestAuctionFlow(t *testing.T) {
	s := newServer(t)
	teamID := s.addTeam(t, "Red Bull", 1000000)
	lotID := s.addLot(t, "Verstappen", "A", 90000)

	// Start.
	var started struct {
		SessionID string    `json:"session_id"`
		Deadline  time.Time `json:"deadline"`
	}
	if code := s.do(t, http.MethodPost, "/auction/start", map[string]any{"lot_id": lotID}, &started); code != http.StatusCreated {
		t.Fatalf("start returned %d", code)
	}
	if started.SessionID == "" {
		t.Fatal("start returned no session id")
	}

	// Status shows an active auction at the minimum bid.
	var status struct {
		Active *struct {
			LotName       string  `json:"lot_name"`
			CurrentBid    int64   `json:"current_bid"`
			LeadingTeamID *string `json:"leading_team_id"`
		} `json:"active"`
	}
	if code := s.do(t, http.MethodGet, "/auction/status", nil, &status); code != http.StatusOK {
		t.Fatalf("status returned %d", code)
	}
	if status.Active == nil || status.Active.LotName != "Verstappen" || status.Active.CurrentBid != 90000 {
		t.Fatalf("status = %+v", status)
	}

	// An equal bid is rejected, a higher one leads.
	if code := s.do(t, http.MethodPost, "/auction/bid", map[string]any{"team_id": teamID, "amount": 90000}, nil); code != http.StatusBadRequest {
		t.Errorf("equal bid returned %d, want 400", code)
	}
	var bid struct {
		NewCurrentBid int64 `json:"new_current_bid"`
	}
	if code := s.do(t, http.MethodPost, "/auction/bid", map[string]any{"team_id": teamID, "amount": 95000}, &bid); code != http.StatusOK {
		t.Fatalf("bid returned %d", code)
	}
	if bid.NewCurrentBid != 95000 {
		t.Errorf("new_current_bid = %d, want 95000", bid.NewCurrentBid)
	}

	// Force-finalize sells to the leader.
	var final struct {
		Outcome string `json:"outcome"`
		TeamID  string `json:"team_id"`
		Price   int64  `json:"price"`
	}
	if code := s.do(t, http.MethodPost, "/auction/finalize", map[string]any{"force": true}, &final); code != http.StatusOK {
		t.Fatalf("finalize returned %d", code)
	}
	if final.Outcome != "sold" || final.TeamID != teamID || final.Price != 95000 {
		t.Errorf("finalize = %+v", final)
	}

	// The wallet shows the debit.
	var teams []struct {
		ID      string `json:"id"`
		Balance int64  `json:"balance"`
	}
	if code := s.do(t, http.MethodGet, "/teams", nil, &teams); code != http.StatusOK {
		t.Fatalf("list teams returned %d", code)
	}
	if len(teams) != 1 || teams[0].Balance != 905000 {
		t.Errorf("teams = %+v, want one team with balance 905000", teams)
	}
}

func TestStart_Conflicts(t *testing.T) {
	s := newServer(t)
	first := s.addLot(t, "P1", "A", 10000)
	second := s.addLot(t, "P2", "A", 10000)

	if code := s.do(t, http.MethodPost, "/auction/start", map[string]any{"lot_id": first}, nil); code != http.StatusCreated {
		t.Fatalf("start returned %d", code)
	}

	var errResp struct {
		Error string `json:"error"`
	}
	if code := s.do(t, http.MethodPost, "/auction/start", map[string]any{"lot_id": second}, &errResp); code != http.StatusConflict {
		t.Errorf("second start returned %d, want 409", code)
	}
	if errResp.Error == "" {
		t.Error("conflict response has no error message")
	}

	if code := s.do(t, http.MethodPost, "/auction/start", map[string]any{"lot_id": "missing"}, nil); code != http.StatusNotFound {
		t.Errorf("start of missing lot returned %d, want 404", code)
	}
}

func TestBid_ErrorStatuses(t *testing.T) {
	s := newServer(t)
	rich := s.addTeam(t, "Rich", 1000000)
	poor := s.addTeam(t, "Poor", 5000)
	lotID := s.addLot(t, "P1", "A", 10000)

	// No live auction yet.
	if code := s.do(t, http.MethodPost, "/auction/bid", map[string]any{"team_id": rich, "amount": 20000}, nil); code != http.StatusBadRequest {
		t.Errorf("bid with no auction returned %d, want 400", code)
	}

	if code := s.do(t, http.MethodPost, "/auction/start", map[string]any{"lot_id": lotID}, nil); code != http.StatusCreated {
		t.Fatal("start failed")
	}

	if code := s.do(t, http.MethodPost, "/auction/bid", map[string]any{"team_id": poor, "amount": 20000}, nil); code != http.StatusPaymentRequired {
		t.Errorf("over-budget bid returned %d, want 402", code)
	}
	if code := s.do(t, http.MethodPost, "/auction/bid", map[string]any{"team_id": "missing", "amount": 20000}, nil); code != http.StatusNotFound {
		t.Errorf("unknown-team bid returned %d, want 404", code)
	}

	if code := s.do(t, http.MethodPost, "/auction/bid", map[string]any{"team_id": rich, "amount": 20000}, nil); code != http.StatusOK {
		t.Fatal("valid bid failed")
	}
	if code := s.do(t, http.MethodPost, "/auction/bid", map[string]any{"team_id": rich, "amount": 30000}, nil); code != http.StatusConflict {
		t.Errorf("self-raise returned %d, want 409", code)
	}
}

func TestFinalize_EmptyBodyMeansNoForce(t *testing.T) {
	s := newServer(t)
	lotID := s.addLot(t, "P1", "A", 10000)
	if code := s.do(t, http.MethodPost, "/auction/start", map[string]any{"lot_id": lotID}, nil); code != http.StatusCreated {
		t.Fatal("start failed")
	}

	// No body: not forced, deadline not reached, so nothing settles.
	var final struct {
		Outcome string `json:"outcome"`
	}
	if code := s.do(t, http.MethodPost, "/auction/finalize", nil, &final); code != http.StatusOK {
		t.Fatalf("finalize returned %d", code)
	}
	if final.Outcome != "noop" {
		t.Errorf("outcome = %q, want noop", final.Outcome)
	}
}

func TestFinalize_ChunkedBodyKeepsForce(t *testing.T) {
	s := newServer(t)
	teamID := s.addTeam(t, "T1", 100000)
	lotID := s.addLot(t, "P1", "A", 10000)
	if code := s.do(t, http.MethodPost, "/auction/start", map[string]any{"lot_id": lotID}, nil); code != http.StatusCreated {
		t.Fatal("start failed")
	}
	if code := s.do(t, http.MethodPost, "/auction/bid", map[string]any{"team_id": teamID, "amount": 20000}, nil); code != http.StatusOK {
		t.Fatal("bid failed")
	}

	// Wrapping the reader hides its length, so the client sends the
	// body chunked with no Content-Length header.
	body := io.MultiReader(bytes.NewReader([]byte(`{"force": true}`)))
	req, err := http.NewRequest(http.MethodPost, s.ts.URL+"/auction/finalize", body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finalize returned %d", resp.StatusCode)
	}

	var final struct {
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&final); err != nil {
		t.Fatal(err)
	}
	if final.Outcome != "sold" {
		t.Errorf("outcome = %q, want sold (force dropped from chunked body)", final.Outcome)
	}
}

func TestStatus_IdlePreview(t *testing.T) {
	s := newServer(t)
	s.addLot(t, "Ocon", "B", 20000)
	s.addLot(t, "Hamilton", "A", 90000)

	var status struct {
		Active   *json.RawMessage `json:"active"`
		NextLots []struct {
			Name string `json:"name"`
		} `json:"next_lots"`
	}
	if code := s.do(t, http.MethodGet, "/auction/status", nil, &status); code != http.StatusOK {
		t.Fatalf("status returned %d", code)
	}
	if status.Active != nil {
		t.Error("idle status reported an active auction")
	}
	if len(status.NextLots) != 2 || status.NextLots[0].Name != "Hamilton" {
		t.Errorf("next_lots = %+v, want [Hamilton Ocon]", status.NextLots)
	}
}

func TestAdminEndpoints(t *testing.T) {
	s := newServer(t)
	teamID := s.addTeam(t, "T1", 100000)
	lotID := s.addLot(t, "P1", "A", 10000)

	if code := s.do(t, http.MethodPost, "/admin/assign", map[string]any{"lot_id": lotID, "team_id": teamID}, nil); code != http.StatusOK {
		t.Fatalf("assign returned %d", code)
	}
	if code := s.do(t, http.MethodPost, "/admin/assign", map[string]any{"lot_id": lotID, "team_id": teamID}, nil); code != http.StatusConflict {
		t.Errorf("double assign returned %d, want 409", code)
	}

	if code := s.do(t, http.MethodPost, "/admin/release", map[string]any{"lot_id": lotID, "refund": true}, nil); code != http.StatusOK {
		t.Fatalf("release returned %d", code)
	}

	if code := s.do(t, http.MethodPost, "/admin/reset", nil, nil); code != http.StatusOK {
		t.Fatalf("reset returned %d", code)
	}

	// After reset the lot is auctionable again.
	if code := s.do(t, http.MethodPost, "/auction/start", map[string]any{"lot_id": lotID}, nil); code != http.StatusCreated {
		t.Errorf("start after reset returned %d, want 201", code)
	}
}

func TestRegisterTeam_Validation(t *testing.T) {
	s := newServer(t)

	if code := s.do(t, http.MethodPost, "/teams", map[string]any{"name": "", "opening_balance": 100}, nil); code != http.StatusBadRequest {
		t.Errorf("empty name returned %d, want 400", code)
	}

	s.addTeam(t, "Ferrari", 100)
	if code := s.do(t, http.MethodPost, "/teams", map[string]any{"name": "Ferrari", "opening_balance": 100}, nil); code != http.StatusConflict {
		t.Errorf("duplicate name returned %d, want 409", code)
	}
}

func TestMalformedBody(t *testing.T) {
	s := newServer(t)

	resp, err := s.ts.Client().Post(s.ts.URL+"/auction/bid", "application/json", bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body returned %d, want 400", resp.StatusCode)
	}
}

func TestListLots(t *testing.T) {
	s := newServer(t)
	for i := 0; i < 3; i++ {
		s.addLot(t, fmt.Sprintf("P%d", i), "C", 1000)
	}

	var lots []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if code := s.do(t, http.MethodGet, "/lots", nil, &lots); code != http.StatusOK {
		t.Fatalf("list lots returned %d", code)
	}
	if len(lots) != 3 {
		t.Errorf("got %d lots, want 3", len(lots))
	}
	for _, l := range lots {
		if l.Status != "unlisted" {
			t.Errorf("lot %s status = %q, want unlisted", l.Name, l.Status)
		}
	}
}
