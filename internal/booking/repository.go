package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"gearrental/internal/audit"
	"gearrental/internal/events"
	"gearrental/pkg/db"
)

type Repository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const selectColumns = `
SELECT id::text, listing_id, renter_id, owner_id, start_date, end_date,
       currency, daily_rate::text, days, subtotal::text, upfront_fee::text, rental_fee::text, total::text,
       status, upfront_payment_id, rental_payment_id, refund_id, message,
       created_at, updated_at, confirmed_at, activated_at, completed_at, cancelled_at, denied_at
FROM bookings
`

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b                                           Booking
		status                                      string
		dailyRate, subtotal, upfront, rental, total string
		rentalPaymentID, refundID, message          *string
	)
	if err := row.Scan(
		&b.ID, &b.ListingID, &b.RenterID, &b.OwnerID, &b.StartDate, &b.EndDate,
		&b.Pricing.Currency, &dailyRate, &b.Pricing.Days, &subtotal, &upfront, &rental, &total,
		&status, &b.UpfrontPaymentID, &rentalPaymentID, &refundID, &message,
		&b.CreatedAt, &b.UpdatedAt, &b.ConfirmedAt, &b.ActivatedAt, &b.CompletedAt, &b.CancelledAt, &b.DeniedAt,
	); err != nil {
		return nil, err
	}

	st, err := ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	b.Status = st

	amounts := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&b.Pricing.DailyRate, dailyRate},
		{&b.Pricing.Subtotal, subtotal},
		{&b.Pricing.UpfrontFee, upfront},
		{&b.Pricing.RentalFee, rental},
		{&b.Pricing.Total, total},
	}
	for _, a := range amounts {
		d, err := decimal.NewFromString(a.src)
		if err != nil {
			return nil, fmt.Errorf("booking %s: parse amount %q: %w", b.ID, a.src, err)
		}
		*a.dst = d
	}

	if rentalPaymentID != nil {
		b.RentalPaymentID = *rentalPaymentID
	}
	if refundID != nil {
		b.RefundID = *refundID
	}
	if message != nil {
		b.Message = *message
	}
	return &b, nil
}

func (r *Repository) Create(ctx context.Context, b *Booking) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
INSERT INTO bookings (
  id, listing_id, renter_id, owner_id, start_date, end_date,
  currency, daily_rate, days, subtotal, upfront_fee, rental_fee, total,
  status, upfront_payment_id, message, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NULLIF($16, ''), $17, $18)
`
		p := b.Pricing
		if _, err := tx.Exec(ctx, q,
			b.ID, b.ListingID, b.RenterID, b.OwnerID, b.StartDate, b.EndDate,
			p.Currency, p.DailyRate.String(), p.Days, p.Subtotal.String(), p.UpfrontFee.String(), p.RentalFee.String(), p.Total.String(),
			string(b.Status), b.UpfrontPaymentID, b.Message, b.CreatedAt, b.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		data := map[string]any{
			"listingId":        b.ListingID,
			"upfrontFee":       p.UpfrontFee.String(),
			"upfrontPaymentId": b.UpfrontPaymentID,
		}
		if err := events.Insert(ctx, tx, b.ID, events.TypeBookingRequested, "Booking requested", "renter", b.CreatedAt, data); err != nil {
			return fmt.Errorf("insert booking event: %w", err)
		}
		id := b.ID
		return audit.Insert(ctx, tx, &id, "BOOKING_CREATED", b.RenterID, data)
	})
}

func (r *Repository) Get(ctx context.Context, id string) (*Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// GetForUpdate locks the booking row for the rest of tx.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, selectColumns+`WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *Repository) ListForUser(ctx context.Context, userID string, role Role) ([]Booking, error) {
	var where string
	switch role {
	case RoleOwner:
		where = `WHERE owner_id = $1`
	case RoleRenter:
		where = `WHERE renter_id = $1`
	default:
		where = `WHERE owner_id = $1 OR renter_id = $1`
	}
	rows, err := r.db.Query(ctx, selectColumns+where+` ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Transition locks the row, validates req against the freshly read status and writes the new
// status only if it still matches what was read.
func (r *Repository) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	var res *TransitionResult
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cur, err := GetForUpdate(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		next, err := applyTransition(cur, req, r.now())
		if err != nil {
			return err
		}

		const q = `
UPDATE bookings
SET status = $3, message = NULLIF($4, ''), updated_at = $5,
    confirmed_at = $6, activated_at = $7, completed_at = $8, cancelled_at = $9, denied_at = $10
WHERE id = $1 AND status = $2
`
		tag, err := tx.Exec(ctx, q, cur.ID, string(cur.Status), string(next.Status), next.Message, next.UpdatedAt,
			next.ConfirmedAt, next.ActivatedAt, next.CompletedAt, next.CancelledAt, next.DeniedAt)
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: expected %s", ErrStatusConflict, cur.Status)
		}

		actor := actorRole(cur, req.ActorID)
		data := map[string]any{"from": cur.Status, "to": next.Status, "message": req.Message}
		if err := events.Insert(ctx, tx, cur.ID, events.TypeStatusChanged, "Status changed to "+StatusDisplay(next.Status), actor, next.UpdatedAt, data); err != nil {
			return fmt.Errorf("insert status event: %w", err)
		}
		id := cur.ID
		if err := audit.Insert(ctx, tx, &id, "STATUS_CHANGED", req.ActorID, data); err != nil {
			return fmt.Errorf("insert audit log: %w", err)
		}

		res = &TransitionResult{Booking: next, From: cur.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Repository) Events(ctx context.Context, bookingID string) ([]events.Event, error) {
	return events.ListByBooking(ctx, r.db, bookingID)
}

// PaymentField names the booking column a payment reference lands in.
type PaymentField string

const (
	PaymentFieldRental PaymentField = "rental_payment_id"
	PaymentFieldRefund PaymentField = "refund_id"
)

// SetPaymentReference stores a processor reference on a booking locked by GetForUpdate.
func SetPaymentReference(ctx context.Context, tx pgx.Tx, bookingID string, field PaymentField, ref string, at time.Time) error {
	var q string
	switch field {
	case PaymentFieldRental:
		q = `UPDATE bookings SET rental_payment_id = $2, updated_at = $3 WHERE id = $1`
	case PaymentFieldRefund:
		q = `UPDATE bookings SET refund_id = $2, updated_at = $3 WHERE id = $1`
	default:
		return fmt.Errorf("unknown payment field: %s", field)
	}
	_, err := tx.Exec(ctx, q, bookingID, ref, at)
	return err
}
