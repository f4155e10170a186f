package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"luxtravel/internal/database"
	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

// BookingRepository stores bookings in Postgres.
type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, user_id, catalog_item_id, item_title, item_price, item_price_unit,
	start_date, end_date, traveler_count, add_on_ids, special_requests,
	contact_name, contact_email, contact_phone,
	duration_days, units, base_price, add_ons_total, service_fee, total_price,
	status, payment_status, payment_reference, version, created_at, updated_at`

func (r *BookingRepository) Save(ctx context.Context, booking *models.Booking) error {
	if booking.Version == 0 {
		booking.Version = 1
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.UserID,
		booking.CatalogItemID,
		booking.Item.Title,
		booking.Item.Price,
		booking.Item.PriceUnit,
		nullTime(booking.StartDate),
		nullTime(booking.EndDate),
		booking.TravelerCount,
		pq.Array(booking.AddOnIDs),
		booking.SpecialRequests,
		booking.Contact.Name,
		booking.Contact.Email,
		booking.Contact.Phone,
		booking.Price.DurationDays,
		booking.Price.Units,
		booking.Price.BasePrice,
		booking.Price.AddOnsTotal,
		booking.Price.ServiceFee,
		booking.Price.TotalPrice,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentReference,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("booking %s already exists: %w", booking.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert booking %s: %w", booking.ID, err)
	}
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking, expectedVersion int64) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_status = $2, payment_reference = $3,
		    add_on_ids = $4, duration_days = $5, units = $6, base_price = $7,
		    add_ons_total = $8, service_fee = $9, total_price = $10,
		    item_price = $11, updated_at = $12, version = version + 1
		WHERE id = $13 AND version = $14`

	result, err := r.db.ExecContext(ctx, query,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentReference,
		pq.Array(booking.AddOnIDs),
		booking.Price.DurationDays,
		booking.Price.Units,
		booking.Price.BasePrice,
		booking.Price.AddOnsTotal,
		booking.Price.ServiceFee,
		booking.Price.TotalPrice,
		booking.Item.Price,
		booking.UpdatedAt,
		booking.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking %s: %w", booking.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, booking.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check booking %s: %w", booking.ID, err)
		}
		if !exists {
			return apperrors.NotFound("booking", booking.ID)
		}
		return fmt.Errorf("booking %s: version %d is stale: %w", booking.ID, expectedVersion, ErrConflict)
	}

	booking.Version = expectedVersion + 1
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("booking", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", id, err)
	}
	return booking, nil
}

func (r *BookingRepository) FindByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY seq ASC`

	return r.list(ctx, query, userID)
}

func (r *BookingRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending'
		  AND payment_status IN ('pending', 'failed')
		  AND created_at < $1
		ORDER BY created_at ASC`

	return r.list(ctx, query, cutoff)
}

func (r *BookingRepository) FindConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status IN ('confirmed', 'paid')
		  AND end_date IS NOT NULL
		  AND end_date < $1
		ORDER BY end_date ASC`

	return r.list(ctx, query, cutoff)
}

func (r *BookingRepository) FindProcessingUpdatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE payment_status = 'processing'
		  AND updated_at < $1
		ORDER BY updated_at ASC`

	return r.list(ctx, query, cutoff)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b          models.Booking
		start, end sql.NullTime
		addOnIDs   []string
	)

	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.CatalogItemID,
		&b.Item.Title,
		&b.Item.Price,
		&b.Item.PriceUnit,
		&start,
		&end,
		&b.TravelerCount,
		pq.Array(&addOnIDs),
		&b.SpecialRequests,
		&b.Contact.Name,
		&b.Contact.Email,
		&b.Contact.Phone,
		&b.Price.DurationDays,
		&b.Price.Units,
		&b.Price.BasePrice,
		&b.Price.AddOnsTotal,
		&b.Price.ServiceFee,
		&b.Price.TotalPrice,
		&b.Status,
		&b.PaymentStatus,
		&b.PaymentReference,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Item.ID = b.CatalogItemID
	b.AddOnIDs = addOnIDs
	if b.AddOnIDs == nil {
		b.AddOnIDs = []string{}
	}
	if start.Valid {
		t := start.Time.UTC()
		b.StartDate = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		b.EndDate = &t
	}
	return &b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
