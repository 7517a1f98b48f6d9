// Package requests exposes the agent-facing HTTP surface of the marketplace.
// The calling agent is identified by the X-Agent-ID header; authentication
// itself is handled upstream.
package requests

import (
	"encoding/json"
	"net/http"

	"github.com/mbeaufort/loadboard/api/render"
	"github.com/mbeaufort/loadboard/core/market"
	"github.com/mbeaufort/loadboard/core/model"
)

// NewHandler returns the agent-facing routes mounted under /api/requests.
func NewHandler(mgr *market.Manager) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/requests", createRequest(mgr))
	mux.HandleFunc("GET /api/requests", listRequests(mgr))
	mux.HandleFunc("GET /api/requests/{id}/matches", matchProviders(mgr))
	mux.HandleFunc("GET /api/requests/{id}/bids", listBids(mgr))
	mux.HandleFunc("POST /api/requests/{id}/commit", commit(mgr))
	mux.HandleFunc("POST /api/requests/{id}/cancel", cancel(mgr))
	mux.HandleFunc("GET /api/requests/{id}/assignment", assignment(mgr))
	return mux
}

func agentID(r *http.Request) string { return r.Header.Get("X-Agent-ID") }

func createRequest(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in market.RequestInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			render.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		in.AgentID = agentID(r)
		req, err := mgr.CreateRequest(r.Context(), in)
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusCreated, req)
	}
}

func listRequests(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := model.RequestStatus(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			render.JSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
			return
		}
		reqs, err := mgr.ListAgentRequests(r.Context(), agentID(r), status)
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusOK, reqs)
	}
}

func matchProviders(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ranked, err := mgr.MatchProviders(r.Context(), r.PathValue("id"))
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusOK, ranked)
	}
}

func listBids(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ranked, err := mgr.ListBids(r.Context(), agentID(r), r.PathValue("id"))
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusOK, ranked)
	}
}

type commitBody struct {
	BidID string `json:"bid_id"`
}

func commit(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body commitBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BidID == "" {
			render.JSON(w, http.StatusBadRequest, map[string]string{"error": "bid_id required"})
			return
		}
		snap, err := mgr.Commit(r.Context(), agentID(r), r.PathValue("id"), body.BidID)
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusOK, snap)
	}
}

func cancel(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.Cancel(r.Context(), agentID(r), r.PathValue("id")); err != nil {
			render.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// assignment serves the read-only snapshot consumed by the instruction-letter
// renderer and other downstream collaborators.
func assignment(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := mgr.Snapshot(r.Context(), r.PathValue("id"))
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusOK, snap)
	}
}
