package testfixtures

import (
	"sort"
	"sync"
	"time"

	"estate-marketplace/internal/database"
	"estate-marketplace/internal/models"
)

// MemStore is an in-memory database.Store used by package tests. It keeps
// the same compare-and-set and slot-uniqueness semantics as the SQL
// implementations.
type MemStore struct {
	mu           sync.Mutex
	listings     map[string]models.Listing
	images       map[string][]models.ListingImage
	appointments map[string]models.Appointment
	purgeLogs    []models.PurgeLog
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		listings:     make(map[string]models.Listing),
		images:       make(map[string][]models.ListingImage),
		appointments: make(map[string]models.Appointment),
	}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) CreateListing(l *models.Listing, images []models.ListingImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l.Status == "" {
		l.Status = models.StatusPending
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	m.listings[l.ID] = *l
	for i := range images {
		images[i].ListingID = l.ID
		images[i].SortOrder = i
	}
	m.images[l.ID] = append([]models.ListingImage(nil), images...)
	return nil
}

func (m *MemStore) GetListing(id string) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "listing", ID: id}
	}
	cp := l
	return &cp, nil
}

func (m *MemStore) GetListingImages(listingID string) ([]models.ListingImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ListingImage(nil), m.images[listingID]...), nil
}

func (m *MemStore) ListListings(f database.ListingFilters) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Listing
	for _, l := range m.listings {
		if f.Status != "" && string(l.Status) != f.Status {
			continue
		}
		if f.OwnerID != "" && l.OwnerID != f.OwnerID {
			continue
		}
		if f.City != "" && l.City != f.City {
			continue
		}
		if f.MinPrice != nil && l.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && l.Price > *f.MaxPrice {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemStore) TransitionListing(id string, expect models.ApprovalStatus, t database.ListingTransition) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "listing", ID: id}
	}
	if l.Status != expect {
		return nil, &models.ConcurrentModificationError{Entity: "listing", ID: id}
	}

	l.Status = t.To
	l.RejectionReason = t.RejectionReason
	l.ScheduledForDeletion = t.ScheduledForDeletion
	l.UpdatedAt = time.Now()
	m.listings[id] = l
	cp := l
	return &cp, nil
}

func (m *MemStore) DeleteListing(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.listings[id]
	delete(m.listings, id)
	delete(m.images, id)
	return ok, nil
}

func (m *MemStore) FindExpiredListings(now time.Time, limit int) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Listing
	for _, l := range m.listings {
		if l.PurgeDue(now) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledForDeletion.Before(*out[j].ScheduledForDeletion)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) AddListingViews(id string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if delta <= 0 {
		return nil
	}
	if l, ok := m.listings[id]; ok {
		l.Views += delta
		m.listings[id] = l
	}
	return nil
}

func (m *MemStore) CountListingsByStatus() (map[models.ApprovalStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[models.ApprovalStatus]int64)
	for _, l := range m.listings {
		counts[l.Status]++
	}
	return counts, nil
}

func (m *MemStore) CreatePurgeLog(pl *models.PurgeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pl.ID = uint(len(m.purgeLogs) + 1)
	if pl.PurgedAt.IsZero() {
		pl.PurgedAt = time.Now()
	}
	m.purgeLogs = append(m.purgeLogs, *pl)
	return nil
}

func (m *MemStore) RecentPurgeLogs(limit int) ([]models.PurgeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]models.PurgeLog(nil), m.purgeLogs...)
	sort.Slice(out, func(i, j int) bool { return out[i].PurgedAt.After(out[j].PurgedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) CreateAppointment(a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.Status == "" {
		a.Status = models.AppointmentPending
	}
	for _, other := range m.appointments {
		if other.ListingID == a.ListingID && other.Date == a.Date &&
			other.TimeSlot == a.TimeSlot && other.Blocking() {
			return &models.SlotTakenError{ListingID: a.ListingID, Date: a.Date, TimeSlot: a.TimeSlot}
		}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	m.appointments[a.ID] = *a
	return nil
}

func (m *MemStore) GetAppointment(id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "appointment", ID: id}
	}
	cp := a
	return &cp, nil
}

func (m *MemStore) ListAppointmentsByListing(listingID string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Appointment
	for _, a := range m.appointments {
		if a.ListingID == listingID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out, nil
}

func (m *MemStore) AppointmentsOnDate(listingID, date string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Appointment
	for _, a := range m.appointments {
		if a.ListingID == listingID && a.Date == date {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeSlot < out[j].TimeSlot })
	return out, nil
}

func (m *MemStore) TransitionAppointment(id string, expect models.AppointmentStatus, t database.AppointmentTransition) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "appointment", ID: id}
	}
	if a.Status != expect {
		return nil, &models.ConcurrentModificationError{Entity: "appointment", ID: id}
	}

	a.Status = t.To
	if t.MeetingLink != nil {
		a.MeetingLink = *t.MeetingLink
	}
	a.UpdatedAt = time.Now()
	m.appointments[id] = a
	cp := a
	return &cp, nil
}
