package audit

import (
	"context"
	"encoding/json"

	"gearrental/pkg/db"
)

// Insert records who did what to a booking. bookingID is nil for actions not tied to one.
func Insert(ctx context.Context, q db.Querier, bookingID *string, action, actor string, metadata any) error {
	var s *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		str := string(b)
		s = &str
	}
	const stmt = `
INSERT INTO audit_logs (booking_id, action, actor, metadata)
VALUES ($1, $2, $3, CAST($4 AS jsonb))
`
	_, err := q.Exec(ctx, stmt, bookingID, action, actor, s)
	return err
}
