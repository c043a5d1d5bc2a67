package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"estate-marketplace/internal/models"

	_ "github.com/lib/pq"
)

type PGStore struct {
	conn *sql.DB
}

func NewPGStore(host, port, user, password, dbname string) (*PGStore, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &PGStore{conn: conn}, nil
}

func (s *PGStore) Close() error {
	return s.conn.Close()
}

// InitSchema creates the tables if they don't exist
func (s *PGStore) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS listings (
		id VARCHAR(36) PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		owner_id VARCHAR(36) NOT NULL,
		price BIGINT NOT NULL,
		address TEXT,
		city VARCHAR(100),
		beds INTEGER,
		baths INTEGER,
		sqft DECIMAL(10, 2),
		floors INTEGER,
		year_built INTEGER,
		amenities TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		rejection_reason TEXT,
		scheduled_for_deletion TIMESTAMP,
		views BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner_id);
	CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
	-- Sweep index: rejected listings ordered by purge deadline
	CREATE INDEX IF NOT EXISTS idx_listings_status_purge ON listings(status, scheduled_for_deletion);

	CREATE TABLE IF NOT EXISTS listing_images (
		id BIGSERIAL PRIMARY KEY,
		listing_id VARCHAR(36) NOT NULL,
		image_url TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_listing_images_listing ON listing_images(listing_id);

	CREATE TABLE IF NOT EXISTS appointments (
		id VARCHAR(36) PRIMARY KEY,
		listing_id VARCHAR(36) NOT NULL,
		requester_id VARCHAR(36) NOT NULL,
		date VARCHAR(10) NOT NULL,
		time_slot VARCHAR(5) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		meeting_link TEXT,
		notes TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_appointments_listing_status ON appointments(listing_id, status);
	CREATE INDEX IF NOT EXISTS idx_appointments_listing_slot ON appointments(listing_id, date, time_slot);
	-- At most one non-cancelled appointment per slot
	CREATE UNIQUE INDEX IF NOT EXISTS idx_appointments_slot_unique
		ON appointments(listing_id, date, time_slot)
		WHERE status <> 'cancelled';

	CREATE TABLE IF NOT EXISTS purge_logs (
		id BIGSERIAL PRIMARY KEY,
		listing_id VARCHAR(36) NOT NULL,
		title TEXT,
		owner_id VARCHAR(36),
		rejection_reason TEXT,
		rejected_until TIMESTAMP,
		purged_at TIMESTAMP NOT NULL DEFAULT NOW(),
		reason VARCHAR(50) NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_purge_logs_listing ON purge_logs(listing_id);
	CREATE INDEX IF NOT EXISTS idx_purge_logs_purged_at ON purge_logs(purged_at);
	`
	_, err := s.conn.Exec(query)
	return err
}

const listingColumns = `id, title, description, owner_id, price, address, city,
	beds, baths, sqft, floors, year_built, amenities,
	status, rejection_reason, scheduled_for_deletion, views, created_at, updated_at`

func scanListing(row interface{ Scan(...interface{}) error }) (*models.Listing, error) {
	var l models.Listing
	var description, address, city sql.NullString
	err := row.Scan(
		&l.ID, &l.Title, &description, &l.OwnerID, &l.Price, &address, &city,
		&l.Beds, &l.Baths, &l.Sqft, &l.Floors, &l.YearBuilt, &l.Amenities,
		&l.Status, &l.RejectionReason, &l.ScheduledForDeletion, &l.Views,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Description = description.String
	l.Address = address.String
	l.City = city.String
	return &l, nil
}

func (s *PGStore) CreateListing(l *models.Listing, images []models.ListingImage) error {
	if l.Status == "" {
		l.Status = models.StatusPending
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO listings (
			id, title, description, owner_id, price, address, city,
			beds, baths, sqft, floors, year_built, amenities,
			status, rejection_reason, scheduled_for_deletion, views
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		l.ID, l.Title, l.Description, l.OwnerID, l.Price, l.Address, l.City,
		l.Beds, l.Baths, l.Sqft, l.Floors, l.YearBuilt, l.Amenities,
		l.Status, l.RejectionReason, l.ScheduledForDeletion, l.Views)
	if err != nil {
		return err
	}

	for i, img := range images {
		_, err = tx.Exec(`
			INSERT INTO listing_images (listing_id, image_url, sort_order)
			VALUES ($1, $2, $3)`,
			l.ID, img.ImageURL, i)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PGStore) GetListing(id string) (*models.Listing, error) {
	row := s.conn.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "listing", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *PGStore) GetListingImages(listingID string) ([]models.ListingImage, error) {
	rows, err := s.conn.Query(`
		SELECT id, listing_id, image_url, sort_order, created_at
		FROM listing_images WHERE listing_id = $1 ORDER BY sort_order ASC`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []models.ListingImage
	for rows.Next() {
		var img models.ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.ImageURL, &img.SortOrder, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *PGStore) ListListings(f ListingFilters) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		query += ` AND status = ` + arg(f.Status)
	}
	if f.OwnerID != "" {
		query += ` AND owner_id = ` + arg(f.OwnerID)
	}
	if f.City != "" {
		query += ` AND city = ` + arg(f.City)
	}
	if f.MinPrice != nil {
		query += ` AND price >= ` + arg(*f.MinPrice)
	}
	if f.MaxPrice != nil {
		query += ` AND price <= ` + arg(*f.MaxPrice)
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + arg(f.Offset)
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (s *PGStore) TransitionListing(id string, expect models.ApprovalStatus, t ListingTransition) (*models.Listing, error) {
	res, err := s.conn.Exec(`
		UPDATE listings
		SET status = $1, rejection_reason = $2, scheduled_for_deletion = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		t.To, t.RejectionReason, t.ScheduledForDeletion, id, expect)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := s.conn.QueryRow(`SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, &models.NotFoundError{Entity: "listing", ID: id}
		}
		return nil, &models.ConcurrentModificationError{Entity: "listing", ID: id}
	}
	return s.GetListing(id)
}

func (s *PGStore) DeleteListing(id string) (bool, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(`DELETE FROM listing_images WHERE listing_id = $1`, id); err != nil {
		return false, err
	}
	return affected > 0, tx.Commit()
}

func (s *PGStore) FindExpiredListings(now time.Time, limit int) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + `
		FROM listings
		WHERE status = $1 AND scheduled_for_deletion <= $2
		ORDER BY scheduled_for_deletion ASC`
	args := []interface{}{models.StatusRejected, now}
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $3`
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (s *PGStore) AddListingViews(id string, delta int64) error {
	if delta <= 0 {
		return nil
	}
	_, err := s.conn.Exec(`UPDATE listings SET views = views + $1 WHERE id = $2`, delta, id)
	return err
}

func (s *PGStore) CountListingsByStatus() (map[models.ApprovalStatus]int64, error) {
	rows, err := s.conn.Query(`SELECT status, count(*) FROM listings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ApprovalStatus]int64)
	for rows.Next() {
		var status models.ApprovalStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (s *PGStore) CreatePurgeLog(pl *models.PurgeLog) error {
	return s.conn.QueryRow(`
		INSERT INTO purge_logs (listing_id, title, owner_id, rejection_reason, rejected_until, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, purged_at`,
		pl.ListingID, pl.Title, pl.OwnerID, pl.RejectionReason, pl.RejectedUntil, pl.Reason).
		Scan(&pl.ID, &pl.PurgedAt)
}

func (s *PGStore) RecentPurgeLogs(limit int) ([]models.PurgeLog, error) {
	rows, err := s.conn.Query(`
		SELECT id, listing_id, title, owner_id, rejection_reason, rejected_until, purged_at, reason
		FROM purge_logs ORDER BY purged_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.PurgeLog
	for rows.Next() {
		var pl models.PurgeLog
		var title, owner, reason sql.NullString
		if err := rows.Scan(&pl.ID, &pl.ListingID, &title, &owner, &reason, &pl.RejectedUntil, &pl.PurgedAt, &pl.Reason); err != nil {
			return nil, err
		}
		pl.Title = title.String
		pl.OwnerID = owner.String
		pl.RejectionReason = reason.String
		logs = append(logs, pl)
	}
	return logs, rows.Err()
}

func (s *PGStore) CreateAppointment(a *models.Appointment) error {
	if a.Status == "" {
		a.Status = models.AppointmentPending
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var taken int
	err = tx.QueryRow(`
		SELECT count(*) FROM appointments
		WHERE listing_id = $1 AND date = $2 AND time_slot = $3 AND status <> $4`,
		a.ListingID, a.Date, a.TimeSlot, models.AppointmentCancelled).Scan(&taken)
	if err != nil {
		return err
	}
	if taken > 0 {
		return &models.SlotTakenError{ListingID: a.ListingID, Date: a.Date, TimeSlot: a.TimeSlot}
	}

	_, err = tx.Exec(`
		INSERT INTO appointments (id, listing_id, requester_id, date, time_slot, status, meeting_link, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ListingID, a.RequesterID, a.Date, a.TimeSlot, a.Status, a.MeetingLink, a.Notes)
	if err != nil {
		return err
	}
	return tx.Commit()
}

const appointmentColumns = `id, listing_id, requester_id, date, time_slot, status, meeting_link, notes, created_at, updated_at`

func scanAppointment(row interface{ Scan(...interface{}) error }) (*models.Appointment, error) {
	var a models.Appointment
	var link, notes sql.NullString
	err := row.Scan(&a.ID, &a.ListingID, &a.RequesterID, &a.Date, &a.TimeSlot,
		&a.Status, &link, &notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.MeetingLink = link.String
	a.Notes = notes.String
	return &a, nil
}

func (s *PGStore) GetAppointment(id string) (*models.Appointment, error) {
	row := s.conn.QueryRow(`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "appointment", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PGStore) ListAppointmentsByListing(listingID string) ([]models.Appointment, error) {
	return s.queryAppointments(`
		SELECT `+appointmentColumns+` FROM appointments
		WHERE listing_id = $1 ORDER BY date ASC, time_slot ASC`, listingID)
}

func (s *PGStore) AppointmentsOnDate(listingID, date string) ([]models.Appointment, error) {
	return s.queryAppointments(`
		SELECT `+appointmentColumns+` FROM appointments
		WHERE listing_id = $1 AND date = $2 ORDER BY time_slot ASC`, listingID, date)
}

func (s *PGStore) queryAppointments(query string, args ...interface{}) ([]models.Appointment, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

func (s *PGStore) TransitionAppointment(id string, expect models.AppointmentStatus, t AppointmentTransition) (*models.Appointment, error) {
	var res sql.Result
	var err error
	if t.MeetingLink != nil {
		res, err = s.conn.Exec(`
			UPDATE appointments SET status = $1, meeting_link = $2, updated_at = NOW()
			WHERE id = $3 AND status = $4`,
			t.To, *t.MeetingLink, id, expect)
	} else {
		res, err = s.conn.Exec(`
			UPDATE appointments SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3`,
			t.To, id, expect)
	}
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := s.conn.QueryRow(`SELECT EXISTS(SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, &models.NotFoundError{Entity: "appointment", ID: id}
		}
		return nil, &models.ConcurrentModificationError{Entity: "appointment", ID: id}
	}
	return s.GetAppointment(id)
}
