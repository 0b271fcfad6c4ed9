package booking

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusPendingOwnerApproval Status = "pending_owner_approval"
	StatusConfirmed            Status = "confirmed"
	StatusActive               Status = "active"
	StatusCompleted            Status = "completed"
	StatusCancelled            Status = "cancelled"
	StatusDenied               Status = "denied"
)

// AllStatuses lists every lifecycle state in lifecycle order.
var AllStatuses = []Status{
	StatusPendingOwnerApproval,
	StatusConfirmed,
	StatusActive,
	StatusCompleted,
	StatusCancelled,
	StatusDenied,
}

var (
	ErrUnknownStatus     = errors.New("unknown status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAccessDenied      = errors.New("access denied")
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPendingOwnerApproval, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled, StatusDenied:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if _, err := ParseStatus(string(s)); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// StatusInfo is the fixed copy and side-effect flags attached to a status.
type StatusInfo struct {
	Description     string
	RenterMessage   string
	OwnerMessage    string
	PaymentRequired bool
	RefundEligible  bool
}

var statusInfo = map[Status]StatusInfo{
	StatusPendingOwnerApproval: {
		Description:    "Waiting for owner approval",
		RenterMessage:  "Your request was sent and the approval fee is held. We'll let you know when the owner responds.",
		OwnerMessage:   "You have a new rental request. Confirm or deny it so the renter can plan their trip.",
		RefundEligible: true,
	},
	StatusConfirmed: {
		Description:     "Confirmed",
		RenterMessage:   "The owner confirmed your booking. The rental fee will be charged to complete it.",
		OwnerMessage:    "You confirmed this booking. Hand over the gear at pickup and mark the rental active.",
		PaymentRequired: true,
		RefundEligible:  true,
	},
	StatusActive: {
		Description:   "Rental in progress",
		RenterMessage: "Enjoy your trip. Return the gear by the end date.",
		OwnerMessage:  "Your gear is out on rental. Mark it completed once it's back.",
	},
	StatusCompleted: {
		Description:   "Completed",
		RenterMessage: "Your rental is complete. Thanks for taking care of the gear.",
		OwnerMessage:  "The rental is complete. Your payout is on its way.",
	},
	StatusCancelled: {
		Description:    "Cancelled",
		RenterMessage:  "This booking was cancelled. Any eligible charges will be refunded.",
		OwnerMessage:   "This booking was cancelled. Your calendar is open again for these dates.",
		RefundEligible: true,
	},
	StatusDenied: {
		Description:    "Denied by owner",
		RenterMessage:  "The owner couldn't accept this request. Your approval fee will be refunded.",
		OwnerMessage:   "You declined this request.",
		RefundEligible: true,
	},
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPendingOwnerApproval: {StatusConfirmed: true, StatusDenied: true},
	StatusConfirmed:            {StatusActive: true, StatusCancelled: true},
	StatusActive:               {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:            {},
	StatusCancelled:            {},
	StatusDenied:               {},
}

type roleTransitions struct {
	owner  map[Status]bool
	renter map[Status]bool
}

// The renter's pending -> cancelled entry is never reachable: the bare table has no such edge,
// and ValidateTransition checks the bare table first.
var roleAllowedTransitions = map[Status]roleTransitions{
	StatusPendingOwnerApproval: {
		owner:  map[Status]bool{StatusConfirmed: true, StatusDenied: true},
		renter: map[Status]bool{StatusCancelled: true},
	},
	StatusConfirmed: {
		owner:  map[Status]bool{StatusActive: true, StatusCancelled: true},
		renter: map[Status]bool{StatusCancelled: true},
	},
	StatusActive: {
		owner: map[Status]bool{StatusCompleted: true, StatusCancelled: true},
	},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusDenied:    {},
}

// Info returns the metadata for s. It panics on a status outside the enum.
func Info(s Status) StatusInfo {
	info, ok := statusInfo[s]
	if !ok {
		panic(fmt.Sprintf("booking: no metadata for status %q", s))
	}
	return info
}

// IsValidStatusTransition reports whether the transition table has an edge from -> to.
// It panics when from is not an enumerated status.
func IsValidStatusTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		panic(fmt.Sprintf("booking: no transitions defined for status %q", from))
	}
	return next[to]
}

// NextStatuses lists the states reachable from s, in lifecycle order.
func NextStatuses(s Status) []Status {
	var out []Status
	for _, to := range AllStatuses {
		if IsValidStatusTransition(s, to) {
			out = append(out, to)
		}
	}
	return out
}

func IsTerminal(s Status) bool {
	return len(NextStatuses(s)) == 0
}

// ValidateTransition gates a transition requested by a party to the booking.
// Edges missing from the transition table fail with ErrInvalidTransition; legal edges the
// caller's roles cannot request fail with ErrAccessDenied.
func ValidateTransition(current, next Status, isOwner, isRenter bool) error {
	if !IsValidStatusTransition(current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	roles := roleAllowedTransitions[current]
	if (isOwner && roles.owner[next]) || (isRenter && roles.renter[next]) {
		return nil
	}
	return fmt.Errorf("%w: %s may not move booking from %s to %s", ErrAccessDenied, roleName(isOwner, isRenter), current, next)
}

func roleName(isOwner, isRenter bool) string {
	switch {
	case isOwner && isRenter:
		return "owner/renter"
	case isOwner:
		return "owner"
	case isRenter:
		return "renter"
	default:
		return "non-party"
	}
}

func StatusDisplay(s Status) string {
	return Info(s).Description
}

func StatusMessage(s Status, isOwner bool) string {
	info := Info(s)
	if isOwner {
		return info.OwnerMessage
	}
	return info.RenterMessage
}

func RequiresPayment(s Status) bool {
	return Info(s).PaymentRequired
}

func IsRefundEligible(s Status) bool {
	return Info(s).RefundEligible
}
