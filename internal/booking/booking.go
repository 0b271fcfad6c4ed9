package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gearrental/internal/events"
	"gearrental/internal/pricing"
)

var (
	ErrNotFound       = errors.New("booking not found")
	ErrStatusConflict = errors.New("booking status changed concurrently")
)

type Booking struct {
	ID               string            `json:"id"`
	ListingID        string            `json:"listingId"`
	RenterID         string            `json:"renterId"`
	OwnerID          string            `json:"ownerId"`
	StartDate        time.Time         `json:"startDate"`
	EndDate          time.Time         `json:"endDate"`
	Pricing          pricing.Breakdown `json:"pricing"`
	Status           Status            `json:"status"`
	UpfrontPaymentID string            `json:"upfrontPaymentId"`
	RentalPaymentID  string            `json:"rentalPaymentId,omitempty"`
	RefundID         string            `json:"refundId,omitempty"`
	Message          string            `json:"message,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	ConfirmedAt      *time.Time        `json:"confirmedAt,omitempty"`
	ActivatedAt      *time.Time        `json:"activatedAt,omitempty"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
	CancelledAt      *time.Time        `json:"cancelledAt,omitempty"`
	DeniedAt         *time.Time        `json:"deniedAt,omitempty"`
}

func (b *Booking) IsOwner(userID string) bool  { return userID != "" && b.OwnerID == userID }
func (b *Booking) IsRenter(userID string) bool { return userID != "" && b.RenterID == userID }
func (b *Booking) IsParty(userID string) bool  { return b.IsOwner(userID) || b.IsRenter(userID) }

// Role narrows booking listings to one side of the agreement.
type Role string

const (
	RoleAny    Role = ""
	RoleOwner  Role = "owner"
	RoleRenter Role = "renter"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAny, RoleOwner, RoleRenter:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %s", s)
	}
}

// TransitionRequest is a party's ask to move a booking to Next.
type TransitionRequest struct {
	BookingID string
	Next      Status
	ActorID   string
	Message   string
}

type TransitionResult struct {
	Booking *Booking
	From    Status
}

// Store persists bookings. Transition must re-read the current row, validate against it and
// write conditionally on the status it read.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id string) (*Booking, error)
	ListForUser(ctx context.Context, userID string, role Role) ([]Booking, error)
	Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
	Events(ctx context.Context, bookingID string) ([]events.Event, error)
}

// NewRequest builds a booking in its initial state.
func NewRequest(id, listingID, renterID, ownerID string, start, end time.Time, quote pricing.Breakdown, upfrontPaymentID, message string, now time.Time) *Booking {
	return &Booking{
		ID:               id,
		ListingID:        listingID,
		RenterID:         renterID,
		OwnerID:          ownerID,
		StartDate:        start.UTC(),
		EndDate:          end.UTC(),
		Pricing:          quote,
		Status:           StatusPendingOwnerApproval,
		UpfrontPaymentID: upfrontPaymentID,
		Message:          message,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// applyTransition validates req against cur and returns the updated copy. cur is not modified.
func applyTransition(cur *Booking, req TransitionRequest, now time.Time) (*Booking, error) {
	if !cur.IsParty(req.ActorID) {
		return nil, fmt.Errorf("%w: caller is not a party to booking %s", ErrAccessDenied, cur.ID)
	}
	if err := ValidateTransition(cur.Status, req.Next, cur.IsOwner(req.ActorID), cur.IsRenter(req.ActorID)); err != nil {
		return nil, err
	}

	next := *cur
	next.Status = req.Next
	next.Message = req.Message
	next.UpdatedAt = now
	at := now
	switch req.Next {
	case StatusConfirmed:
		next.ConfirmedAt = &at
	case StatusActive:
		next.ActivatedAt = &at
	case StatusCompleted:
		next.CompletedAt = &at
	case StatusCancelled:
		next.CancelledAt = &at
	case StatusDenied:
		next.DeniedAt = &at
	}
	return &next, nil
}

// actorRole labels the caller for the timeline.
func actorRole(b *Booking, userID string) string {
	switch {
	case b.IsOwner(userID):
		return "owner"
	case b.IsRenter(userID):
		return "renter"
	default:
		return "system"
	}
}
