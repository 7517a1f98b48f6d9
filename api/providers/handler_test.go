package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mbeaufort/loadboard/core/market"
	"github.com/mbeaufort/loadboard/core/match"
	"github.com/mbeaufort/loadboard/core/model"
	"github.com/mbeaufort/loadboard/core/store"
)

func newHandler(t *testing.T) (http.Handler, *market.Manager) {
	t.Helper()
	dir := market.NewStaticDirectory([]model.Provider{
		{ID: "p1", VehicleTypes: []string{"box_truck"}, ServiceRegions: []string{"north", "south"}},
		{ID: "p2", VehicleTypes: []string{"flatbed"}, ServiceRegions: []string{"north", "south"}},
	})
	mgr, err := market.NewManager(store.NewMemoryStore(), dir, match.CapabilityFilter{},
		match.NewRanker(match.DefaultWeights(), 0.5, 500), nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewHandler(mgr), mgr
}

func doJSON(t *testing.T, h http.Handler, method, path, provider string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Provider-ID", provider)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func openRequest(t *testing.T, mgr *market.Manager) model.ShipmentRequest {
	t.Helper()
	req, err := mgr.CreateRequest(context.Background(), market.RequestInput{
		AgentID:     "agent-1",
		Pickup:      model.Address{Region: "north"},
		Delivery:    model.Address{Region: "south"},
		PickupAt:    time.Now().Add(24 * time.Hour),
		WeightKg:    500,
		VehicleType: "box_truck",
	})
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestOpenRequestsEndpoint(t *testing.T) {
	h, mgr := newHandler(t)
	req := openRequest(t, mgr)

	rec := doJSON(t, h, http.MethodGet, "/api/providers/requests", "p1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("open requests: %d", rec.Code)
	}
	var open []market.OpenRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &open); err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].Request.ID != req.ID {
		t.Fatalf("unexpected open requests: %+v", open)
	}

	// The flatbed provider is not eligible and sees nothing.
	rec = doJSON(t, h, http.MethodGet, "/api/providers/requests", "p2", nil)
	var none []market.OpenRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &none); err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("flatbed provider should see no box_truck requests: %+v", none)
	}

	if rec := doJSON(t, h, http.MethodGet, "/api/providers/requests", "ghost", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown provider should 404, got %d", rec.Code)
	}
}

func TestBidSubmitAndWithdraw(t *testing.T) {
	h, mgr := newHandler(t)
	req := openRequest(t, mgr)

	if rec := doJSON(t, h, http.MethodPost, "/api/providers/bids", "p1", market.BidInput{
		RequestID: req.ID, AmountCents: 0,
	}); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero amount should 400, got %d", rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/providers/bids", "p1", market.BidInput{
		RequestID: req.ID, AmountCents: 20000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	var bid model.Bid
	if err := json.Unmarshal(rec.Body.Bytes(), &bid); err != nil {
		t.Fatal(err)
	}
	if bid.Status != model.BidActive || bid.ProviderID != "p1" {
		t.Fatalf("unexpected bid: %+v", bid)
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/providers/bids/"+bid.ID+"/withdraw", "p2", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign withdraw should 403, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/providers/bids/"+bid.ID+"/withdraw", "p1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("withdraw: %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/providers/bids", "p1", nil)
	var bids []model.Bid
	if err := json.Unmarshal(rec.Body.Bytes(), &bids); err != nil {
		t.Fatal(err)
	}
	if len(bids) != 1 || bids[0].Status != model.BidWithdrawn {
		t.Fatalf("unexpected bids: %+v", bids)
	}
}

func TestPickupAndDeliveryEndpoints(t *testing.T) {
	h, mgr := newHandler(t)
	req := openRequest(t, mgr)
	ctx := context.Background()
	bid, err := mgr.SubmitBid(ctx, market.BidInput{ProviderID: "p1", RequestID: req.ID, AmountCents: 20000})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Commit(ctx, "agent-1", req.ID, bid.ID); err != nil {
		t.Fatal(err)
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/providers/requests/"+req.ID+"/pickup", "p2", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign pickup should 403, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/providers/requests/"+req.ID+"/pickup", "p1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("pickup: %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/providers/requests/"+req.ID+"/delivery", "p1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delivery: %d", rec.Code)
	}
	got, _ := mgr.GetRequest(ctx, req.ID)
	if got.Status != model.StatusCompleted {
		t.Fatalf("request not completed: %s", got.Status)
	}
	// Delivery on a completed request is a lifecycle violation.
	if rec := doJSON(t, h, http.MethodPost, "/api/providers/requests/"+req.ID+"/delivery", "p1", nil); rec.Code != http.StatusConflict {
		t.Fatalf("double delivery should 409, got %d", rec.Code)
	}
}
