package requests

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
	})
	mgr, err := market.NewManager(store.NewMemoryStore(), dir, match.CapabilityFilter{},
		match.NewRanker(match.DefaultWeights(), 0.5, 500), nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewHandler(mgr), mgr
}

func doJSON(t *testing.T, h http.Handler, method, path, agent string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Agent-ID", agent)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createReq(t *testing.T, h http.Handler, agent string) model.ShipmentRequest {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/requests", agent, market.RequestInput{
		Pickup:      model.Address{Region: "north"},
		Delivery:    model.Address{Region: "south"},
		PickupAt:    time.Now().Add(24 * time.Hour),
		WeightKg:    500,
		VehicleType: "box_truck",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	var req model.ShipmentRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &req); err != nil {
		t.Fatal(err)
	}
	return req
}

func TestCreateAndListRequests(t *testing.T) {
	h, _ := newHandler(t)
	req := createReq(t, h, "agent-1")
	if req.Status != model.StatusPending {
		t.Fatalf("created request not PENDING: %s", req.Status)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/requests?status=PENDING", "agent-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var reqs []model.ShipmentRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &reqs); err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 1 || reqs[0].ID != req.ID {
		t.Fatalf("unexpected list: %+v", reqs)
	}

	if rec := doJSON(t, h, http.MethodGet, "/api/requests?status=BOGUS", "agent-1", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus status should 400, got %d", rec.Code)
	}
}

func TestMatchesEndpoint(t *testing.T) {
	h, _ := newHandler(t)
	req := createReq(t, h, "agent-1")

	rec := doJSON(t, h, http.MethodGet, "/api/requests/"+req.ID+"/matches", "agent-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("matches: %d %s", rec.Code, rec.Body.String())
	}
	var ranked []match.RankedProvider
	if err := json.Unmarshal(rec.Body.Bytes(), &ranked); err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 1 || ranked[0].Provider.ID != "p1" {
		t.Fatalf("unexpected matches: %+v", ranked)
	}

	if rec := doJSON(t, h, http.MethodGet, "/api/requests/missing/matches", "agent-1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown request should 404, got %d", rec.Code)
	}
}

func TestCommitEndpointStatusMapping(t *testing.T) {
	h, mgr := newHandler(t)
	req := createReq(t, h, "agent-1")
	bid, err := mgr.SubmitBid(context.Background(), market.BidInput{ProviderID: "p1", RequestID: req.ID, AmountCents: 20000})
	if err != nil {
		t.Fatal(err)
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/requests/"+req.ID+"/commit", "agent-2", commitBody{BidID: bid.ID}); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign agent commit should 403, got %d", rec.Code)
	}
	rec := doJSON(t, h, http.MethodPost, "/api/requests/"+req.ID+"/commit", "agent-1", commitBody{BidID: bid.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("commit: %d %s", rec.Code, rec.Body.String())
	}
	var snap market.AssignmentSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Request.Status != model.StatusAssigned || snap.Bid.ID != bid.ID {
		t.Fatalf("snapshot wrong: %+v", snap)
	}
	// Losing the race maps to 409.
	if rec := doJSON(t, h, http.MethodPost, "/api/requests/"+req.ID+"/commit", "agent-1", commitBody{BidID: bid.ID}); rec.Code != http.StatusConflict {
		t.Fatalf("double commit should 409, got %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/requests/"+req.ID+"/commit", "agent-1", commitBody{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing bid_id should 400, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/requests/"+req.ID+"/assignment", "agent-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("assignment snapshot: %d", rec.Code)
	}
}

func TestCancelEndpoint(t *testing.T) {
	h, _ := newHandler(t)
	req := createReq(t, h, "agent-1")
	if rec := doJSON(t, h, http.MethodPost, "/api/requests/"+req.ID+"/cancel", "agent-1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("cancel: %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/requests/"+req.ID+"/cancel", "agent-1", nil); rec.Code != http.StatusConflict {
		t.Fatalf("cancel of cancelled should 409, got %d", rec.Code)
	}
}
