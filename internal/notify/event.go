package notify

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

const TopicBookingStatusChanged = "booking.status_changed"

type Header struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
}

func NewHeader() Header {
	return Header{
		ID:          watermill.NewUUID(),
		PublishedAt: time.Now().UTC(),
	}
}

// BookingStatusChanged carries the copy each party should receive after a transition.
type BookingStatusChanged struct {
	Header        Header `json:"header"`
	BookingID     string `json:"booking_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	RenterID      string `json:"renter_id"`
	OwnerID       string `json:"owner_id"`
	RenterMessage string `json:"renter_message"`
	OwnerMessage  string `json:"owner_message"`
	// Note is the free-text message the acting party attached, if any.
	Note string `json:"note,omitempty"`
}
