package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mbeaufort/loadboard/core/model"
)

func testRequest(agent string) model.ShipmentRequest {
	return model.NewShipmentRequest(agent,
		model.Address{Region: "north", Lat: 48.8, Lon: 2.3},
		model.Address{Region: "south", Lat: 43.3, Lon: 5.4},
		time.Now().Add(24*time.Hour), 500, 4, "box_truck", nil)
}

func TestMemoryStoreRequestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r := testRequest("agent-1")
	if err := s.CreateRequest(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetRequest(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AgentID != "agent-1" || got.Status != model.StatusPending {
		t.Errorf("unexpected snapshot: %+v", got)
	}
	if _, err := s.GetRequest(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreSnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r := testRequest("agent-1")
	r.SpecialReqs = []string{"tail-lift"}
	if err := s.CreateRequest(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := s.GetRequest(ctx, r.ID)
	got.SpecialReqs[0] = "mutated"
	got.Status = model.StatusCancelled

	again, _ := s.GetRequest(ctx, r.ID)
	if again.SpecialReqs[0] != "tail-lift" || again.Status != model.StatusPending {
		t.Errorf("stored record mutated through a snapshot: %+v", again)
	}
}

func TestMemoryStoreUpdateRejectionLeavesEntityUntouched(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r := testRequest("agent-1")
	if err := s.CreateRequest(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}
	boom := errors.New("rejected")
	_, err := s.UpdateRequest(ctx, r.ID, func(cur *model.ShipmentRequest) error {
		cur.Status = model.StatusCancelled
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected closure error, got %v", err)
	}
	got, _ := s.GetRequest(ctx, r.ID)
	if got.Status != model.StatusPending {
		t.Errorf("rejected update leaked: %s", got.Status)
	}
}

func TestMemoryStoreBidIndexes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r1, r2 := testRequest("a1"), testRequest("a2")
	if err := s.CreateRequest(ctx, r1); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateRequest(ctx, r2); err != nil {
		t.Fatal(err)
	}
	b1 := model.NewBid(r1.ID, "p1", 20000, model.TimeWindow{}, model.TimeWindow{})
	b2 := model.NewBid(r1.ID, "p2", 18000, model.TimeWindow{}, model.TimeWindow{})
	b3 := model.NewBid(r2.ID, "p1", 30000, model.TimeWindow{}, model.TimeWindow{})
	for _, b := range []model.Bid{b1, b2, b3} {
		if err := s.CreateBid(ctx, b); err != nil {
			t.Fatalf("create bid: %v", err)
		}
	}
	byReq, err := s.ListBidsByRequest(ctx, r1.ID)
	if err != nil || len(byReq) != 2 {
		t.Fatalf("bids by request: %v %d", err, len(byReq))
	}
	byProv, err := s.ListBidsByProvider(ctx, "p1")
	if err != nil || len(byProv) != 2 {
		t.Fatalf("bids by provider: %v %d", err, len(byProv))
	}
	orphan := model.NewBid("missing", "p1", 100, model.TimeWindow{}, model.TimeWindow{})
	if err := s.CreateBid(ctx, orphan); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for orphan bid, got %v", err)
	}
}

func TestMemoryStoreConcurrentUpdatesDoNotLose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r := testRequest("agent-1")
	if err := s.CreateRequest(ctx, r); err != nil {
		t.Fatal(err)
	}
	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateRequest(ctx, r.ID, func(cur *model.ShipmentRequest) error {
				cur.WeightKg++
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()
	got, _ := s.GetRequest(ctx, r.ID)
	if got.WeightKg != r.WeightKg+n {
		t.Errorf("lost updates: got %v want %v", got.WeightKg, r.WeightKg+n)
	}
}
