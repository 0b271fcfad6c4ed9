package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"gearrental/internal/booking"
)

type EventType string

const (
	EventUpfrontFeeCaptured EventType = "upfront_fee.captured"
	EventRentalFeeCaptured  EventType = "rental_fee.captured"
	EventRefundIssued       EventType = "refund.issued"
)

type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	BookingID string          `json:"bookingId"`
	PaymentID string          `json:"paymentId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

func (e Event) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("id is required")
	case e.BookingID == "":
		return fmt.Errorf("bookingId is required")
	case e.PaymentID == "":
		return fmt.Errorf("paymentId is required")
	case e.Amount.IsNegative():
		return fmt.Errorf("amount must not be negative")
	}
	switch e.Type {
	case EventUpfrontFeeCaptured, EventRentalFeeCaptured, EventRefundIssued:
		return nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeRecorded       Outcome = "recorded"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeUnknownBooking Outcome = "unknown_booking"
)

// Decide maps an event onto the booking field it fills, given the booking's current status.
// Payment references never move the status; they are only accepted while the status says the
// matching money movement is expected.
func Decide(status booking.Status, t EventType) (booking.PaymentField, Outcome) {
	switch t {
	case EventRentalFeeCaptured:
		if booking.RequiresPayment(status) {
			return booking.PaymentFieldRental, OutcomeApplied
		}
	case EventRefundIssued:
		if booking.IsRefundEligible(status) {
			return booking.PaymentFieldRefund, OutcomeApplied
		}
	case EventUpfrontFeeCaptured:
		// The upfront reference arrives with the booking request; the callback is kept for the ledger.
		return "", OutcomeRecorded
	}
	return "", OutcomeIgnored
}
