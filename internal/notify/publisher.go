package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Publisher struct {
	pub message.Publisher
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) BookingStatusChanged(ctx context.Context, e BookingStatusChanged) error {
	if e.Header.ID == "" {
		e.Header = NewHeader()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", TopicBookingStatusChanged, err)
	}

	msg := message.NewMessage(e.Header.ID, payload)
	msg.SetContext(ctx)
	if reqID := chimw.GetReqID(ctx); reqID != "" {
		middleware.SetCorrelationID(reqID, msg)
	}

	if err := p.pub.Publish(TopicBookingStatusChanged, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicBookingStatusChanged, err)
	}
	return nil
}
