package api

import (
	"net/http"
)

type registerTeamRequest struct {
	Name           string `json:"name"`
	OpeningBalance int64  `json:"opening_balance"`
}

type teamView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

func (h *Handler) registerTeam(w http.ResponseWriter, r *http.Request) {
	var req registerTeamRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "team name is required"})
		return
	}

	t, err := h.league.RegisterTeam(r.Context(), req.Name, req.OpeningBalance)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, teamView{ID: t.ID, Name: t.Name, Balance: t.Balance})
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.league.ListTeams(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]teamView, 0, len(teams))
	for _, t := range teams {
		views = append(views, teamView{ID: t.ID, Name: t.Name, Balance: t.Balance})
	}
	writeJSON(w, http.StatusOK, views)
}

type addLotRequest struct {
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Rating int    `json:"rating"`
	MinBid int64  `json:"min_bid"`
}

func (h *Handler) addLot(w http.ResponseWriter, r *http.Request) {
	var req addLotRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lot name is required"})
		return
	}

	l, err := h.league.AddLot(r.Context(), req.Name, req.Tier, req.Rating, req.MinBid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newLotView(*l))
}

func (h *Handler) listLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.league.ListLots(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]lotView, 0, len(lots))
	for _, l := range lots {
		views = append(views, newLotView(l))
	}
	writeJSON(w, http.StatusOK, views)
}
