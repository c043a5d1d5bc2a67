package testfixtures

import (
	"estate-marketplace/internal/models"

	"github.com/google/uuid"
)

// PendingListing seeds the store with a pending listing owned by ownerID
// and returns it.
func PendingListing(store *MemStore, ownerID, title string) *models.Listing {
	l := &models.Listing{
		ID:      uuid.NewString(),
		Title:   title,
		OwnerID: ownerID,
		Price:   250_000,
		City:    "Springfield",
		Status:  models.StatusPending,
	}
	if err := store.CreateListing(l, nil); err != nil {
		panic(err)
	}
	return l
}

// ApprovedListing seeds the store with an approved listing owned by
// ownerID and returns it.
func ApprovedListing(store *MemStore, ownerID, title string) *models.Listing {
	l := PendingListing(store, ownerID, title)
	l.Status = models.StatusApproved
	store.mu.Lock()
	m := store.listings[l.ID]
	m.Status = models.StatusApproved
	store.listings[l.ID] = m
	store.mu.Unlock()
	return l
}
