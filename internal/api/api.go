// Package api exposes the auction engine to the web product as a thin
// JSON surface. It does request decoding, error mapping and nothing
// else; all rules live in the auction and league packages.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/openleague/draftauction/internal/auction"
	"github.com/openleague/draftauction/internal/league"
)

// Handler serves the engine's operations over HTTP.
type Handler struct {
	engine *auction.Manager
	league *league.Manager
	logger *slog.Logger
}

// NewHandler returns a new API Handler.
func NewHandler(engine *auction.Manager, lg *league.Manager, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, league: lg, logger: logger}
}

// Register mounts all routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auction/start", h.startAuction)
	mux.HandleFunc("GET /auction/status", h.auctionStatus)
	mux.HandleFunc("POST /auction/bid", h.submitBid)
	mux.HandleFunc("POST /auction/finalize", h.finalizeAuction)

	mux.HandleFunc("POST /admin/release", h.releaseLot)
	mux.HandleFunc("POST /admin/assign", h.assignLot)
	mux.HandleFunc("POST /admin/reset", h.resetAuctions)

	mux.HandleFunc("POST /teams", h.registerTeam)
	mux.HandleFunc("GET /teams", h.listTeams)
	mux.HandleFunc("POST /lots", h.addLot)
	mux.HandleFunc("GET /lots", h.listLots)
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps engine errors onto HTTP statuses: conflicts are 409,
// user-correctable validation is 400/404/402, anything else is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrNotFound), errors.Is(err, league.ErrTeamNotFound):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrAuctionBusy),
		errors.Is(err, auction.ErrAlreadyAuctioned),
		errors.Is(err, auction.ErrAlreadyLeading),
		errors.Is(err, auction.ErrLotUnderAuction),
		errors.Is(err, auction.ErrAlreadyOwned),
		errors.Is(err, league.ErrTeamExists):
		return http.StatusConflict
	case errors.Is(err, auction.ErrNoActiveAuction), errors.Is(err, auction.ErrBidTooLow):
		return http.StatusBadRequest
	case errors.Is(err, auction.ErrInsufficientFunds), errors.Is(err, league.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeJSON(w, code, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
