package cleanup

import (
	"fmt"
	"log"
	"time"

	"estate-marketplace/internal/clock"
	"estate-marketplace/internal/database"
	"estate-marketplace/internal/lifecycle"
	"estate-marketplace/internal/models"
)

// Service purges rejected listings whose retention window has elapsed
type Service struct {
	store database.Store
	clock clock.Clock
	index lifecycle.Indexer
}

// NewService creates a new cleanup service. index may be nil when search is
// disabled.
func NewService(store database.Store, clk clock.Clock, index lifecycle.Indexer) *Service {
	return &Service{store: store, clock: clk, index: index}
}

// Config holds configuration for sweep runs
type Config struct {
	BatchSize    int  // Candidates fetched per run (contention bound)
	MaxDeletions int  // Maximum number of listings to delete in one run (safety limit)
	DryRun       bool // If true, only log what would be deleted without actually deleting
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BatchSize:    100,
		MaxDeletions: 1000,
		DryRun:       false,
	}
}

// Result holds the result of a sweep run
type Result struct {
	TargetCount     int       `json:"target_count"`     // Listings eligible for purge
	DeletedCount    int       `json:"deleted_count"`    // Listings actually purged
	ErrorCount      int       `json:"error_count"`      // Errors encountered
	DryRun          bool      `json:"dry_run"`          // Whether this was a dry run
	ExecutedAt      time.Time `json:"executed_at"`      // When the sweep ran
	DeletedListings []string  `json:"deleted_listings"` // IDs of purged listings
	Errors          []string  `json:"errors,omitempty"` // Error messages
}

// FindExpired finds rejected listings whose purge deadline has passed.
func (s *Service) FindExpired(limit int) ([]models.Listing, error) {
	now := s.clock.Now()
	listings, err := s.store.FindExpiredListings(now, limit)
	if err != nil {
		return nil, err
	}
	log.Printf("Sweep: found %d listings expired before %s", len(listings), now.Format(time.RFC3339))
	return listings, nil
}

// Run purges expired rejected listings in a batch. Each deletion is an
// independent, idempotent operation: a failure on one listing never blocks
// or rolls back the others, and failed candidates are retried on the next
// tick.
func (s *Service) Run(cfg Config) (*Result, error) {
	result := &Result{
		DryRun:     cfg.DryRun,
		ExecutedAt: s.clock.Now(),
	}

	expired, err := s.FindExpired(cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	result.TargetCount = len(expired)
	if result.TargetCount == 0 {
		return result, nil
	}

	// Safety check: abort if far more listings than expected would go
	if cfg.MaxDeletions > 0 && result.TargetCount > cfg.MaxDeletions {
		return nil, fmt.Errorf("safety check failed: %d listings exceed max deletion limit of %d",
			result.TargetCount, cfg.MaxDeletions)
	}

	log.Printf("Sweep: starting, %d listings to purge (dry-run: %v)", result.TargetCount, cfg.DryRun)

	for _, l := range expired {
		if cfg.DryRun {
			log.Printf("Sweep: [DRY-RUN] would purge listing %s (title: %s, due: %s)",
				l.ID, l.Title, l.ScheduledForDeletion.Format(time.RFC3339))
			result.DeletedListings = append(result.DeletedListings, l.ID)
			result.DeletedCount++
			continue
		}

		pl := models.PurgeLog{
			ListingID: l.ID,
			Title:     l.Title,
			OwnerID:   l.OwnerID,
			PurgedAt:  s.clock.Now(),
			Reason:    models.PurgeReasonExpired,
		}
		if l.RejectionReason != nil {
			pl.RejectionReason = *l.RejectionReason
		}
		if l.ScheduledForDeletion != nil {
			pl.RejectedUntil = *l.ScheduledForDeletion
		}

		if err := s.store.CreatePurgeLog(&pl); err != nil {
			errMsg := fmt.Sprintf("failed to create purge log for listing %s: %v", l.ID, err)
			log.Printf("Sweep: ERROR: %s", errMsg)
			result.Errors = append(result.Errors, errMsg)
			result.ErrorCount++
			continue
		}

		if _, err := s.store.DeleteListing(l.ID); err != nil {
			errMsg := fmt.Sprintf("failed to delete listing %s: %v", l.ID, err)
			log.Printf("Sweep: ERROR: %s", errMsg)
			result.Errors = append(result.Errors, errMsg)
			result.ErrorCount++
			continue
		}

		if s.index != nil {
			if err := s.index.RemoveListing(l.ID); err != nil {
				log.Printf("Sweep: failed to deindex listing %s: %v", l.ID, err)
			}
		}

		log.Printf("Sweep: purged listing %s (title: %s)", l.ID, l.Title)
		result.DeletedListings = append(result.DeletedListings, l.ID)
		result.DeletedCount++
	}

	log.Printf("Sweep: completed, %d/%d purged, %d errors (dry-run: %v)",
		result.DeletedCount, result.TargetCount, result.ErrorCount, cfg.DryRun)

	return result, nil
}

// Stats returns purge statistics for the admin dashboard
func (s *Service) Stats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counts, err := s.store.CountListingsByStatus()
	if err != nil {
		return nil, err
	}
	stats["rejected_pending_purge"] = counts[models.StatusRejected]

	expired, err := s.store.FindExpiredListings(s.clock.Now(), 0)
	if err != nil {
		return nil, err
	}
	stats["expired_ready_for_purge"] = len(expired)

	return stats, nil
}

// RecentLogs returns recent purge log entries
func (s *Service) RecentLogs(limit int) ([]models.PurgeLog, error) {
	return s.store.RecentPurgeLogs(limit)
}
