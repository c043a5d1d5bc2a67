package cleanup

import (
	"testing"
	"time"

	"estate-marketplace/internal/lifecycle"
	"estate-marketplace/internal/models"
	"estate-marketplace/internal/testfixtures"
)

func newTestSetup(t *testing.T) (*Service, *lifecycle.Service, *testfixtures.MemStore, *testfixtures.Clock) {
	t.Helper()
	store := testfixtures.NewMemStore()
	clk := testfixtures.NewClock(time.Time{})
	lc := lifecycle.NewService(store, clk, nil, 48*time.Hour)
	return NewService(store, clk, nil), lc, store, clk
}

func TestSweepPurgesExpiredRejections(t *testing.T) {
	sweep, lc, store, clk := newTestSetup(t)

	rejected := testfixtures.PendingListing(store, "seller-1", "Stale listing")
	kept := testfixtures.ApprovedListing(store, "seller-2", "Healthy listing")
	if _, err := lc.Reject(rejected.ID, "duplicate"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	// Inside the grace window nothing is eligible.
	clk.Advance(47 * time.Hour)
	result, err := sweep.Run(DefaultConfig())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.TargetCount != 0 || result.DeletedCount != 0 {
		t.Fatalf("sweep inside grace window purged %d of %d", result.DeletedCount, result.TargetCount)
	}

	clk.Advance(2 * time.Hour)
	result, err = sweep.Run(DefaultConfig())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.DeletedCount != 1 {
		t.Fatalf("expected 1 purged listing, got %d", result.DeletedCount)
	}
	if len(result.DeletedListings) != 1 || result.DeletedListings[0] != rejected.ID {
		t.Fatalf("unexpected purge set: %v", result.DeletedListings)
	}

	if _, err := store.GetListing(rejected.ID); !models.IsNotFound(err) {
		t.Fatalf("purged listing must be gone, got %v", err)
	}
	if _, err := store.GetListing(kept.ID); err != nil {
		t.Fatalf("unrelated listing lost: %v", err)
	}

	logs, _ := store.RecentPurgeLogs(10)
	if len(logs) != 1 {
		t.Fatalf("expected 1 purge log, got %d", len(logs))
	}
	if logs[0].ListingID != rejected.ID || logs[0].Reason != models.PurgeReasonExpired {
		t.Fatalf("unexpected purge log: %+v", logs[0])
	}
	if logs[0].RejectionReason != "duplicate" {
		t.Fatalf("log missing rejection reason: %+v", logs[0])
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	sweep, lc, store, clk := newTestSetup(t)

	l := testfixtures.PendingListing(store, "seller-1", "Stale listing")
	if _, err := lc.Reject(l.ID, "spam"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	clk.Advance(49 * time.Hour)

	if _, err := sweep.Run(DefaultConfig()); err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	result, err := sweep.Run(DefaultConfig())
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if result.TargetCount != 0 || result.DeletedCount != 0 {
		t.Fatalf("second sweep found work: %+v", result)
	}
}

func TestSweepDryRun(t *testing.T) {
	sweep, lc, store, clk := newTestSetup(t)

	l := testfixtures.PendingListing(store, "seller-1", "Stale listing")
	if _, err := lc.Reject(l.ID, "spam"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	clk.Advance(49 * time.Hour)

	cfg := DefaultConfig()
	cfg.DryRun = true
	result, err := sweep.Run(cfg)
	if err != nil {
		t.Fatalf("dry-run sweep failed: %v", err)
	}
	if result.DeletedCount != 1 || !result.DryRun {
		t.Fatalf("unexpected dry-run result: %+v", result)
	}

	// Dry run must not touch data.
	if _, err := store.GetListing(l.ID); err != nil {
		t.Fatalf("dry run deleted the listing: %v", err)
	}
	logs, _ := store.RecentPurgeLogs(10)
	if len(logs) != 0 {
		t.Fatalf("dry run wrote %d purge logs", len(logs))
	}
}

func TestSweepSafetyLimit(t *testing.T) {
	sweep, lc, store, clk := newTestSetup(t)

	for i := 0; i < 3; i++ {
		l := testfixtures.PendingListing(store, "seller-1", "listing")
		if _, err := lc.Reject(l.ID, "spam"); err != nil {
			t.Fatalf("reject failed: %v", err)
		}
	}
	clk.Advance(49 * time.Hour)

	cfg := DefaultConfig()
	cfg.MaxDeletions = 2
	if _, err := sweep.Run(cfg); err == nil {
		t.Fatal("expected safety check error when candidates exceed max deletions")
	}

	// Nothing may be purged when the safety check trips.
	counts, _ := store.CountListingsByStatus()
	if counts[models.StatusRejected] != 3 {
		t.Fatalf("safety-tripped sweep mutated data: %v", counts)
	}
}

func TestSweepStats(t *testing.T) {
	sweep, lc, store, clk := newTestSetup(t)

	due := testfixtures.PendingListing(store, "seller-1", "due")
	fresh := testfixtures.PendingListing(store, "seller-1", "fresh")
	if _, err := lc.Reject(due.ID, "spam"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	clk.Advance(49 * time.Hour)
	if _, err := lc.Reject(fresh.ID, "spam"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	stats, err := sweep.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats["rejected_pending_purge"] != int64(2) {
		t.Fatalf("expected 2 rejected, got %v", stats["rejected_pending_purge"])
	}
	if stats["expired_ready_for_purge"] != 1 {
		t.Fatalf("expected 1 expired, got %v", stats["expired_ready_for_purge"])
	}
}
