package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/sirupsen/logrus"
)

// Sender delivers a text to a user. An SMS gateway client satisfies it in production.
type Sender interface {
	Send(ctx context.Context, userID, text string) error
}

// LogSender only logs what would have been sent.
type LogSender struct {
	Logger logrus.FieldLogger
}

func (s LogSender) Send(ctx context.Context, userID, text string) error {
	s.Logger.WithFields(logrus.Fields{"user_id": userID, "text": text}).Info("notification")
	return nil
}

func NewRouter(sub message.Subscriber, sender Sender, logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          logger,
	}.Middleware)

	// One handler per recipient so a retry for one party never re-texts the other.
	router.AddNoPublisherHandler(
		"notify-renter-of-status-change",
		TopicBookingStatusChanged,
		sub,
		handleBookingStatusChanged(sender, renterText),
	)
	router.AddNoPublisherHandler(
		"notify-owner-of-status-change",
		TopicBookingStatusChanged,
		sub,
		handleBookingStatusChanged(sender, ownerText),
	)

	return router, nil
}

// recipient picks the user and text one handler delivers.
type recipient func(e BookingStatusChanged) (userID, text string)

func renterText(e BookingStatusChanged) (string, string) {
	return e.RenterID, withNote(e.RenterMessage, e.Note)
}

func ownerText(e BookingStatusChanged) (string, string) {
	return e.OwnerID, withNote(e.OwnerMessage, e.Note)
}

func withNote(text, note string) string {
	if note == "" {
		return text
	}
	return text + " Note: " + note
}

func handleBookingStatusChanged(sender Sender, to recipient) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var e BookingStatusChanged
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			// Malformed payloads would never succeed; drop them.
			return nil
		}

		userID, text := to(e)
		if err := sender.Send(msg.Context(), userID, text); err != nil {
			return fmt.Errorf("notify %s: %w", userID, err)
		}
		return nil
	}
}
