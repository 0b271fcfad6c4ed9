package events

import (
	"context"
	"encoding/json"
	"time"

	"gearrental/pkg/db"
)

const (
	TypeBookingRequested = "BOOKING_REQUESTED"
	TypeStatusChanged    = "STATUS_CHANGED"
	TypePaymentRecorded  = "PAYMENT_RECORDED"
)

type Event struct {
	ID         string         `json:"id"`
	BookingID  string         `json:"bookingId"`
	EventType  string         `json:"eventType"`
	Summary    string         `json:"summary"`
	Actor      string         `json:"actor"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

func Insert(ctx context.Context, q db.Querier, bookingID, eventType, summary, actor string, occurredAt time.Time, data any) error {
	var s *string
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		str := string(b)
		s = &str
	}
	const stmt = `
INSERT INTO booking_events (booking_id, event_type, summary, actor, occurred_at, data)
VALUES ($1, $2, $3, $4, $5, CAST($6 AS jsonb))
`
	_, err := q.Exec(ctx, stmt, bookingID, eventType, summary, actor, occurredAt, s)
	return err
}

func ListByBooking(ctx context.Context, q db.Querier, bookingID string) ([]Event, error) {
	const stmt = `
SELECT id::text, booking_id::text, event_type, summary, actor, occurred_at, COALESCE(data, '{}'::jsonb)::text
FROM booking_events
WHERE booking_id = $1
ORDER BY occurred_at ASC, created_at ASC
`
	rows, err := q.Query(ctx, stmt, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		var raw string
		if err := rows.Scan(&e.ID, &e.BookingID, &e.EventType, &e.Summary, &e.Actor, &e.OccurredAt, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &e.Data); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
