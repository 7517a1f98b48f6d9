// Package providers exposes the provider-facing HTTP surface of the
// marketplace. The calling provider is identified by the X-Provider-ID
// header; authentication itself is handled upstream.
package providers

import (
	"encoding/json"
	"net/http"

	"github.com/mbeaufort/loadboard/api/render"
	"github.com/mbeaufort/loadboard/core/market"
)

// NewHandler returns the provider-facing routes mounted under
// /api/providers.
func NewHandler(mgr *market.Manager) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/providers/requests", openRequests(mgr))
	mux.HandleFunc("GET /api/providers/bids", listBids(mgr))
	mux.HandleFunc("POST /api/providers/bids", submitBid(mgr))
	mux.HandleFunc("POST /api/providers/bids/{id}/withdraw", withdrawBid(mgr))
	mux.HandleFunc("POST /api/providers/requests/{id}/pickup", markPickedUp(mgr))
	mux.HandleFunc("POST /api/providers/requests/{id}/delivery", markDelivered(mgr))
	return mux
}

func providerID(r *http.Request) string { return r.Header.Get("X-Provider-ID") }

func openRequests(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		open, err := mgr.OpenRequests(r.Context(), providerID(r))
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusOK, open)
	}
}

func listBids(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bids, err := mgr.ListProviderBids(r.Context(), providerID(r))
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusOK, bids)
	}
}

func submitBid(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in market.BidInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RequestID == "" || in.AmountCents <= 0 {
			render.JSON(w, http.StatusBadRequest, map[string]string{"error": "request_id and a positive amount_cents required"})
			return
		}
		in.ProviderID = providerID(r)
		bid, err := mgr.SubmitBid(r.Context(), in)
		if err != nil {
			render.Error(w, err)
			return
		}
		render.JSON(w, http.StatusCreated, bid)
	}
}

func withdrawBid(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.WithdrawBid(r.Context(), providerID(r), r.PathValue("id")); err != nil {
			render.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func markPickedUp(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.MarkPickedUp(r.Context(), providerID(r), r.PathValue("id")); err != nil {
			render.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func markDelivered(mgr *market.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.MarkDelivered(r.Context(), providerID(r), r.PathValue("id")); err != nil {
			render.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
