package database

import (
	"errors"
	"fmt"
	"time"

	"estate-marketplace/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(host, port, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB wraps an existing gorm.DB instance
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (s *GormStore) InitSchema() error {
	return s.db.AutoMigrate(
		&models.Listing{},
		&models.ListingImage{},
		&models.Appointment{},
		&models.PurgeLog{},
	)
}

func (s *GormStore) CreateListing(l *models.Listing, images []models.ListingImage) error {
	if l.Status == "" {
		l.Status = models.StatusPending
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(l).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].ListingID = l.ID
			images[i].SortOrder = i
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) GetListing(id string) (*models.Listing, error) {
	var l models.Listing
	err := s.db.Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &models.NotFoundError{Entity: "listing", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *GormStore) GetListingImages(listingID string) ([]models.ListingImage, error) {
	var images []models.ListingImage
	err := s.db.Where("listing_id = ?", listingID).Order("sort_order ASC").Find(&images).Error
	return images, err
}

func (s *GormStore) ListListings(f ListingFilters) ([]models.Listing, error) {
	q := s.db.Model(&models.Listing{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.City != "" {
		q = q.Where("city = ?", f.City)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var listings []models.Listing
	err := q.Order("created_at DESC").Find(&listings).Error
	return listings, err
}

// TransitionListing applies a conditional status update. The WHERE clause
// carries the expected pre-state so two racing reviewers cannot both win.
func (s *GormStore) TransitionListing(id string, expect models.ApprovalStatus, t ListingTransition) (*models.Listing, error) {
	updates := map[string]interface{}{
		"status":                 t.To,
		"rejection_reason":       t.RejectionReason,
		"scheduled_for_deletion": t.ScheduledForDeletion,
	}

	res := s.db.Model(&models.Listing{}).
		Where("id = ? AND status = ?", id, expect).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the row is gone or another caller got there first.
		var probe models.Listing
		err := s.db.Where("id = ?", id).First(&probe).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &models.NotFoundError{Entity: "listing", ID: id}
		}
		if err != nil {
			return nil, err
		}
		return nil, &models.ConcurrentModificationError{Entity: "listing", ID: id}
	}

	return s.GetListing(id)
}

func (s *GormStore) DeleteListing(id string) (bool, error) {
	existed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Listing{})
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected > 0
		return tx.Where("listing_id = ?", id).Delete(&models.ListingImage{}).Error
	})
	return existed, err
}

func (s *GormStore) FindExpiredListings(now time.Time, limit int) ([]models.Listing, error) {
	var listings []models.Listing
	q := s.db.Where("status = ? AND scheduled_for_deletion <= ?", models.StatusRejected, now).
		Order("scheduled_for_deletion ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to find expired listings: %w", err)
	}
	return listings, nil
}

// AddListingViews bumps the view counter in the database atomically, so the
// counter never goes backwards regardless of interleaving.
func (s *GormStore) AddListingViews(id string, delta int64) error {
	if delta <= 0 {
		return nil
	}
	return s.db.Model(&models.Listing{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", delta)).Error
}

func (s *GormStore) CountListingsByStatus() (map[models.ApprovalStatus]int64, error) {
	var rows []struct {
		Status models.ApprovalStatus
		Count  int64
	}
	err := s.db.Model(&models.Listing{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[models.ApprovalStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *GormStore) CreatePurgeLog(pl *models.PurgeLog) error {
	return s.db.Create(pl).Error
}

func (s *GormStore) RecentPurgeLogs(limit int) ([]models.PurgeLog, error) {
	var logs []models.PurgeLog
	err := s.db.Order("purged_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (s *GormStore) CreateAppointment(a *models.Appointment) error {
	if a.Status == "" {
		a.Status = models.AppointmentPending
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var taken int64
		err := tx.Model(&models.Appointment{}).
			Where("listing_id = ? AND date = ? AND time_slot = ? AND status <> ?",
				a.ListingID, a.Date, a.TimeSlot, models.AppointmentCancelled).
			Count(&taken).Error
		if err != nil {
			return err
		}
		if taken > 0 {
			return &models.SlotTakenError{ListingID: a.ListingID, Date: a.Date, TimeSlot: a.TimeSlot}
		}
		return tx.Create(a).Error
	})
}

func (s *GormStore) GetAppointment(id string) (*models.Appointment, error) {
	var a models.Appointment
	err := s.db.Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &models.NotFoundError{Entity: "appointment", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *GormStore) ListAppointmentsByListing(listingID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.Where("listing_id = ?", listingID).
		Order("date ASC, time_slot ASC").Find(&appts).Error
	return appts, err
}

func (s *GormStore) AppointmentsOnDate(listingID, date string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.Where("listing_id = ? AND date = ?", listingID, date).
		Order("time_slot ASC").Find(&appts).Error
	return appts, err
}

func (s *GormStore) TransitionAppointment(id string, expect models.AppointmentStatus, t AppointmentTransition) (*models.Appointment, error) {
	updates := map[string]interface{}{"status": t.To}
	if t.MeetingLink != nil {
		updates["meeting_link"] = *t.MeetingLink
	}

	res := s.db.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, expect).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var probe models.Appointment
		err := s.db.Where("id = ?", id).First(&probe).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &models.NotFoundError{Entity: "appointment", ID: id}
		}
		if err != nil {
			return nil, err
		}
		return nil, &models.ConcurrentModificationError{Entity: "appointment", ID: id}
	}

	return s.GetAppointment(id)
}
