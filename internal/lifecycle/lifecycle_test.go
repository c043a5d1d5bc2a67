package lifecycle

import (
	"errors"
	"testing"
	"time"

	"estate-marketplace/internal/database"
	"estate-marketplace/internal/models"
	"estate-marketplace/internal/testfixtures"
)

func newTestService(t *testing.T) (*Service, *testfixtures.MemStore, *testfixtures.Clock) {
	t.Helper()
	store := testfixtures.NewMemStore()
	clk := testfixtures.NewClock(time.Time{})
	return NewService(store, clk, nil, 48*time.Hour), store, clk
}

func TestApproveFromPending(t *testing.T) {
	svc, store, _ := newTestService(t)
	l := testfixtures.PendingListing(store, "seller-1", "Cozy bungalow")

	updated, err := svc.Approve(l.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if updated.Status != models.StatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
	if updated.RejectionReason != nil || updated.ScheduledForDeletion != nil {
		t.Fatal("approval must not carry rejection metadata")
	}
}

func TestApproveRequiresPending(t *testing.T) {
	svc, store, _ := newTestService(t)
	l := testfixtures.PendingListing(store, "seller-1", "Cozy bungalow")

	if _, err := svc.Approve(l.ID); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}

	// Re-invoking on a decided listing is an error, never a silent no-op.
	_, err := svc.Approve(l.ID)
	var ise *models.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}

	_, err = svc.Reject(l.ID, "changed my mind")
	if !errors.As(err, &ise) {
		t.Fatalf("expected InvalidStateError from reject, got %v", err)
	}

	got, _ := store.GetListing(l.ID)
	if got.Status != models.StatusApproved {
		t.Fatalf("failed transition must leave state unchanged, got %s", got.Status)
	}
}

func TestRejectArmsDeletionTimer(t *testing.T) {
	svc, store, clk := newTestService(t)
	l := testfixtures.PendingListing(store, "seller-1", "Cozy bungalow")

	updated, err := svc.Reject(l.ID, "incomplete info")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if updated.Status != models.StatusRejected {
		t.Fatalf("expected rejected, got %s", updated.Status)
	}
	if updated.RejectionReason == nil || *updated.RejectionReason != "incomplete info" {
		t.Fatalf("reason not attached: %v", updated.RejectionReason)
	}
	wantPurge := clk.Now().Add(48 * time.Hour)
	if updated.ScheduledForDeletion == nil || !updated.ScheduledForDeletion.Equal(wantPurge) {
		t.Fatalf("expected purge at %v, got %v", wantPurge, updated.ScheduledForDeletion)
	}
}

func TestRejectValidatesReason(t *testing.T) {
	svc, store, _ := newTestService(t)
	l := testfixtures.PendingListing(store, "seller-1", "Cozy bungalow")

	_, err := svc.Reject(l.ID, "   ")
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	got, _ := store.GetListing(l.ID)
	if got.Status != models.StatusPending {
		t.Fatalf("failed reject must leave listing pending, got %s", got.Status)
	}
}

func TestOperationsOnMissingListing(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Approve("no-such-id"); !models.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if _, err := svc.Reject("no-such-id", "reason"); !models.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestResubmitClearsRejection(t *testing.T) {
	svc, store, _ := newTestService(t)
	l := testfixtures.PendingListing(store, "seller-1", "Cozy bungalow")

	if _, err := svc.Reject(l.ID, "bad photos"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	// Only the owner may resubmit; others see the listing as missing.
	if _, err := svc.Resubmit(l.ID, "someone-else"); !models.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for non-owner, got %v", err)
	}

	updated, err := svc.Resubmit(l.ID, "seller-1")
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if updated.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if updated.RejectionReason != nil || updated.ScheduledForDeletion != nil {
		t.Fatal("resubmission must disarm the purge timer")
	}

	// Resubmitting an already-pending listing is illegal.
	var ise *models.InvalidStateError
	if _, err := svc.Resubmit(l.ID, "seller-1"); !errors.As(err, &ise) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestOwnerDeleteAtAnyStatus(t *testing.T) {
	svc, store, _ := newTestService(t)
	pending := testfixtures.PendingListing(store, "seller-1", "A")
	approved := testfixtures.ApprovedListing(store, "seller-1", "B")

	if err := svc.Delete(pending.ID, "seller-1"); err != nil {
		t.Fatalf("delete pending failed: %v", err)
	}
	if err := svc.Delete(approved.ID, "seller-1"); err != nil {
		t.Fatalf("delete approved failed: %v", err)
	}

	if _, err := store.GetListing(pending.ID); !models.IsNotFound(err) {
		t.Fatal("deleted listing must not be retrievable")
	}

	logs, _ := store.RecentPurgeLogs(10)
	if len(logs) != 2 {
		t.Fatalf("expected 2 purge logs, got %d", len(logs))
	}
	for _, pl := range logs {
		if pl.Reason != models.PurgeReasonOwner {
			t.Fatalf("expected owner purge reason, got %s", pl.Reason)
		}
	}
}

func TestCompareAndSetConflict(t *testing.T) {
	_, store, _ := newTestService(t)
	l := testfixtures.PendingListing(store, "seller-1", "Cozy bungalow")

	// A competing reviewer already decided the listing.
	if _, err := store.TransitionListing(l.ID, models.StatusPending, database.ListingTransition{
		To: models.StatusApproved,
	}); err != nil {
		t.Fatalf("setup transition failed: %v", err)
	}

	_, err := store.TransitionListing(l.ID, models.StatusPending, database.ListingTransition{
		To: models.StatusRejected,
	})
	var cme *models.ConcurrentModificationError
	if !errors.As(err, &cme) {
		t.Fatalf("expected ConcurrentModificationError, got %v", err)
	}
}
