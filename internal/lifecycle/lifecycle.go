package lifecycle

import (
	"log"
	"strings"
	"time"

	"estate-marketplace/internal/clock"
	"estate-marketplace/internal/database"
	"estate-marketplace/internal/models"
)

// Indexer is the search-index collaborator. Index maintenance is
// fire-and-forget: a failed index write never rolls back a transition.
type Indexer interface {
	IndexListing(l *models.Listing) error
	RemoveListing(id string) error
}

// Service enforces the listing approval state machine:
// pending -> approved, pending -> rejected, rejected -> pending (resubmit).
// Rejection arms the purge timer consumed by the cleanup sweep.
type Service struct {
	store     database.Store
	clock     clock.Clock
	index     Indexer
	retention time.Duration
}

// NewService creates an approval workflow service. index may be nil when
// search is disabled.
func NewService(store database.Store, clk clock.Clock, index Indexer, retention time.Duration) *Service {
	if retention <= 0 {
		retention = 48 * time.Hour
	}
	return &Service{
		store:     store,
		clock:     clk,
		index:     index,
		retention: retention,
	}
}

// Retention returns the configured rejection grace period.
func (s *Service) Retention() time.Duration {
	return s.retention
}

// Approve moves a pending listing to approved. Calling it on a decided
// listing is an error, not a no-op, so a prior reviewer decision is never
// silently discarded.
func (s *Service) Approve(listingID string) (*models.Listing, error) {
	current, err := s.store.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusPending {
		return nil, &models.InvalidStateError{
			Entity:  "listing",
			ID:      listingID,
			Current: string(current.Status),
			Op:      "approve",
		}
	}

	updated, err := s.store.TransitionListing(listingID, models.StatusPending, database.ListingTransition{
		To: models.StatusApproved,
	})
	if err != nil {
		return nil, err
	}

	if s.index != nil {
		if err := s.index.IndexListing(updated); err != nil {
			log.Printf("Lifecycle: failed to index listing %s: %v", listingID, err)
		}
	}

	log.Printf("Lifecycle: listing %s approved", listingID)
	return updated, nil
}

// Reject moves a pending listing to rejected, attaches the reason and arms
// the deletion timer at now + retention window.
func (s *Service) Reject(listingID, reason string) (*models.Listing, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &models.ValidationError{Field: "reason", Message: "rejection reason must not be empty"}
	}

	current, err := s.store.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusPending {
		return nil, &models.InvalidStateError{
			Entity:  "listing",
			ID:      listingID,
			Current: string(current.Status),
			Op:      "reject",
		}
	}

	purgeAt := s.clock.Now().Add(s.retention)
	updated, err := s.store.TransitionListing(listingID, models.StatusPending, database.ListingTransition{
		To:                   models.StatusRejected,
		RejectionReason:      &reason,
		ScheduledForDeletion: &purgeAt,
	})
	if err != nil {
		return nil, err
	}

	if s.index != nil {
		if err := s.index.RemoveListing(listingID); err != nil {
			log.Printf("Lifecycle: failed to deindex listing %s: %v", listingID, err)
		}
	}

	log.Printf("Lifecycle: listing %s rejected (purge at %s)", listingID, purgeAt.Format(time.RFC3339))
	return updated, nil
}

// Resubmit lets the owner move a rejected listing back into the review
// queue, clearing the rejection metadata and disarming the purge timer.
func (s *Service) Resubmit(listingID, ownerID string) (*models.Listing, error) {
	current, err := s.store.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID != ownerID {
		return nil, &models.NotFoundError{Entity: "listing", ID: listingID}
	}
	if current.Status != models.StatusRejected {
		return nil, &models.InvalidStateError{
			Entity:  "listing",
			ID:      listingID,
			Current: string(current.Status),
			Op:      "resubmit",
		}
	}

	updated, err := s.store.TransitionListing(listingID, models.StatusRejected, database.ListingTransition{
		To: models.StatusPending,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Lifecycle: listing %s resubmitted for review", listingID)
	return updated, nil
}

// Delete hard-deletes an owner's listing at any status, writing a purge log
// entry for audit.
func (s *Service) Delete(listingID, ownerID string) error {
	current, err := s.store.GetListing(listingID)
	if err != nil {
		return err
	}
	if current.OwnerID != ownerID {
		return &models.NotFoundError{Entity: "listing", ID: listingID}
	}

	pl := &models.PurgeLog{
		ListingID: current.ID,
		Title:     current.Title,
		OwnerID:   current.OwnerID,
		PurgedAt:  s.clock.Now(),
		Reason:    models.PurgeReasonOwner,
	}
	if current.RejectionReason != nil {
		pl.RejectionReason = *current.RejectionReason
	}
	if current.ScheduledForDeletion != nil {
		pl.RejectedUntil = *current.ScheduledForDeletion
	}
	if err := s.store.CreatePurgeLog(pl); err != nil {
		return err
	}

	if _, err := s.store.DeleteListing(listingID); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.RemoveListing(listingID); err != nil {
			log.Printf("Lifecycle: failed to deindex listing %s: %v", listingID, err)
		}
	}

	log.Printf("Lifecycle: listing %s deleted by owner", listingID)
	return nil
}
