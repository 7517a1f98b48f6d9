package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbeaufort/loadboard/config"
	"github.com/mbeaufort/loadboard/core/market"
	"github.com/mbeaufort/loadboard/core/match"
	"github.com/mbeaufort/loadboard/core/model"
	"github.com/mbeaufort/loadboard/core/store"
	"github.com/mbeaufort/loadboard/infra/logger"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one in-process bidding round against the configured providers",
	RunE:  simulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

// simulate opens a request, lets every eligible configured provider place a
// bid, prints the ranked result and commits the top bid. Useful for checking
// a providers config without a running service.
func simulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("no providers configured")
	}

	logg := logger.New("simulate")
	dir := market.NewStaticDirectory(cfg.Providers)
	ranker := match.NewRanker(cfg.Market.Weights(), cfg.Market.NeutralOnTimeRate, cfg.Market.ProximityRadiusKm)
	mgr, err := market.NewManager(store.NewMemoryStore(), dir, match.CapabilityFilter{}, ranker, nil, nil, logg)
	if err != nil {
		return fmt.Errorf("market manager: %w", err)
	}

	ctx := context.Background()
	sample := cfg.Providers[0]
	region := "north"
	if len(sample.ServiceRegions) > 0 {
		region = sample.ServiceRegions[0]
	}
	vehicle := "box_truck"
	if len(sample.VehicleTypes) > 0 {
		vehicle = sample.VehicleTypes[0]
	}
	req, err := mgr.CreateRequest(ctx, market.RequestInput{
		AgentID:     "simulator",
		Pickup:      model.Address{Region: region, Lat: sample.RegionLat, Lon: sample.RegionLon},
		Delivery:    model.Address{Region: region},
		PickupAt:    time.Now().Add(24 * time.Hour),
		WeightKg:    500,
		VehicleType: vehicle,
	})
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	amount := int64(10000)
	for _, p := range cfg.Providers {
		if _, err := mgr.SubmitBid(ctx, market.BidInput{ProviderID: p.ID, RequestID: req.ID, AmountCents: amount}); err != nil {
			logg.Warnf("provider %s cannot bid: %v", p.ID, err)
		}
		amount += 2500
	}

	ranked, err := mgr.ListBids(ctx, "simulator", req.ID)
	if err != nil {
		return fmt.Errorf("list bids: %w", err)
	}
	if len(ranked) == 0 {
		return fmt.Errorf("no eligible bids for vehicle type %s in region %s", vehicle, region)
	}
	cmd.Printf("request %s (%s, %s):\n", req.ID, vehicle, region)
	for i, rb := range ranked {
		cmd.Printf("  %d. provider=%s amount=%d score=%.4f\n", i+1, rb.Bid.ProviderID, rb.Bid.AmountCents, rb.Score)
	}

	snap, err := mgr.Commit(ctx, "simulator", req.ID, ranked[0].Bid.ID)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	cmd.Printf("committed bid %s from %s (%s)\n", snap.Bid.ID, snap.Provider.Name, snap.Request.Status)
	return nil
}
