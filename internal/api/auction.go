package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/openleague/draftauction/internal/store"
)

type startRequest struct {
	LotID string `json:"lot_id"`
}

type startResponse struct {
	SessionID string    `json:"session_id"`
	Deadline  time.Time `json:"deadline"`
}

func (h *Handler) startAuction(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}

	s, err := h.engine.Start(r.Context(), req.LotID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{SessionID: s.ID, Deadline: s.Deadline})
}

type activeView struct {
	SessionID     string    `json:"session_id"`
	LotID         string    `json:"lot_id"`
	LotName       string    `json:"lot_name"`
	CurrentBid    int64     `json:"current_bid"`
	LeadingTeamID *string   `json:"leading_team_id"`
	Deadline      time.Time `json:"deadline"`
}

type lotView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Rating int    `json:"rating"`
	MinBid int64  `json:"min_bid"`
	Status string `json:"status"`
}

type statusResponse struct {
	Active   *activeView `json:"active,omitempty"`
	NextLots []lotView   `json:"next_lots,omitempty"`
}

func (h *Handler) auctionStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if st.Idle() {
		resp := statusResponse{NextLots: make([]lotView, 0, len(st.NextLots))}
		for _, l := range st.NextLots {
			resp.NextLots = append(resp.NextLots, newLotView(l))
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Active: &activeView{
		SessionID:     st.Session.ID,
		LotID:         st.Lot.ID,
		LotName:       st.Lot.Name,
		CurrentBid:    st.Session.CurrentBid,
		LeadingTeamID: st.Session.LeadingTeamID,
		Deadline:      st.Session.Deadline,
	}})
}

type bidRequest struct {
	TeamID string `json:"team_id"`
	Amount int64  `json:"amount"`
}

type bidResponse struct {
	NewCurrentBid int64 `json:"new_current_bid"`
}

func (h *Handler) submitBid(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if !decode(w, r, &req) {
		return
	}

	newBid, err := h.engine.Bid(r.Context(), req.TeamID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bidResponse{NewCurrentBid: newBid})
}

type finalizeRequest struct {
	Force bool `json:"force"`
}

type finalizeResponse struct {
	Outcome string `json:"outcome"`
	TeamID  string `json:"team_id,omitempty"`
	Price   int64  `json:"price,omitempty"`
}

func (h *Handler) finalizeAuction(w http.ResponseWriter, r *http.Request) {
	// The body is optional; a chunked request carries no ContentLength,
	// so attempt the decode and treat EOF as an absent body.
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	outcome, err := h.engine.Finalize(r.Context(), req.Force)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeResponse{
		Outcome: string(outcome.Result),
		TeamID:  outcome.TeamID,
		Price:   outcome.Price,
	})
}

type releaseRequest struct {
	LotID  string `json:"lot_id"`
	Refund bool   `json:"refund"`
}

func (h *Handler) releaseLot(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.engine.Release(r.Context(), req.LotID, req.Refund); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

type assignRequest struct {
	LotID  string `json:"lot_id"`
	TeamID string `json:"team_id"`
}

func (h *Handler) assignLot(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.engine.Assign(r.Context(), req.LotID, req.TeamID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) resetAuctions(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func newLotView(l store.Lot) lotView {
	return lotView{
		ID:     l.ID,
		Name:   l.Name,
		Tier:   l.Tier,
		Rating: l.Rating,
		MinBid: l.MinBid,
		Status: l.Status,
	}
}
