package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gearrental/internal/audit"
	"gearrental/internal/booking"
	"gearrental/internal/events"
	"gearrental/pkg/db"
)

var errDuplicate = errors.New("duplicate payment event")

type Repository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Apply records e exactly once and, when the booking's status allows it, stores the payment
// reference on the booking. Everything happens in one transaction.
func (r *Repository) Apply(ctx context.Context, e Event, payloadHash string) (Outcome, error) {
	var outcome Outcome
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := uuid.Parse(e.BookingID); err != nil {
			outcome = OutcomeUnknownBooking
			return insertEvent(ctx, tx, e, outcome, payloadHash)
		}
		b, err := booking.GetForUpdate(ctx, tx, e.BookingID)
		if errors.Is(err, booking.ErrNotFound) {
			outcome = OutcomeUnknownBooking
			return insertEvent(ctx, tx, e, outcome, payloadHash)
		}
		if err != nil {
			return err
		}

		field, o := Decide(b.Status, e.Type)
		if err := insertEvent(ctx, tx, e, o, payloadHash); err != nil {
			return err
		}
		outcome = o

		now := r.now()
		if field != "" {
			if err := booking.SetPaymentReference(ctx, tx, b.ID, field, e.PaymentID, now); err != nil {
				return fmt.Errorf("set payment reference: %w", err)
			}
		}

		data := map[string]any{
			"eventId":   e.ID,
			"type":      e.Type,
			"paymentId": e.PaymentID,
			"amount":    e.Amount.String(),
			"currency":  e.Currency,
			"outcome":   o,
			"status":    b.Status,
		}
		if err := events.Insert(ctx, tx, b.ID, events.TypePaymentRecorded, "Payment "+string(e.Type), "processor", now, data); err != nil {
			return err
		}
		id := b.ID
		return audit.Insert(ctx, tx, &id, "PAYMENT_EVENT", "processor", data)
	})
	if errors.Is(err, errDuplicate) {
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, e Event, o Outcome, payloadHash string) error {
	const q = `
INSERT INTO payment_events (event_id, booking_id, event_type, payment_id, amount, currency, outcome, payload_hash)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
`
	_, err := tx.Exec(ctx, q, e.ID, e.BookingID, string(e.Type), e.PaymentID, e.Amount.String(), e.Currency, string(o), payloadHash)
	if db.IsUniqueViolation(err) {
		return errDuplicate
	}
	return err
}
