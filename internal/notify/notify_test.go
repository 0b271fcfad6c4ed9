package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu       sync.Mutex
	sent     map[string]string
	attempts map[string]int
	// failures makes the first n sends to a user fail.
	failures map[string]int
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[string]string{}, attempts: map[string]int{}, failures: map[string]int{}}
}

func (s *recordingSender) Send(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[userID]++
	if s.attempts[userID] <= s.failures[userID] {
		return errors.New("gateway unavailable")
	}
	s.sent[userID] = text
	return nil
}

func (s *recordingSender) attemptsFor(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[userID]
}

func (s *recordingSender) get(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sent[userID]
	return v, ok
}

func TestStatusChanged_DeliveredToBothParties(t *testing.T) {
	logger := watermill.NopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	sender := newRecordingSender()

	router, err := NewRouter(pubSub, sender, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()
	<-router.Running()

	err = NewPublisher(pubSub).BookingStatusChanged(context.Background(), BookingStatusChanged{
		BookingID:     "b-1",
		From:          "pending_owner_approval",
		To:            "confirmed",
		RenterID:      "renter-1",
		OwnerID:       "owner-1",
		RenterMessage: "confirmed for you",
		OwnerMessage:  "you confirmed",
		Note:          "see you saturday",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, r := sender.get("renter-1")
		_, o := sender.get("owner-1")
		return r && o
	}, 2*time.Second, 10*time.Millisecond)

	renterText, _ := sender.get("renter-1")
	assert.Equal(t, "confirmed for you Note: see you saturday", renterText)
	ownerText, _ := sender.get("owner-1")
	assert.Equal(t, "you confirmed Note: see you saturday", ownerText)
}

func TestStatusChanged_RetryingOnePartyDoesNotResendToTheOther(t *testing.T) {
	logger := watermill.NopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	sender := newRecordingSender()
	sender.failures["owner-1"] = 2

	router, err := NewRouter(pubSub, sender, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()
	<-router.Running()

	err = NewPublisher(pubSub).BookingStatusChanged(context.Background(), BookingStatusChanged{
		BookingID:     "b-2",
		From:          "confirmed",
		To:            "active",
		RenterID:      "renter-1",
		OwnerID:       "owner-1",
		RenterMessage: "your rental is active",
		OwnerMessage:  "rental started",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, o := sender.get("owner-1")
		return o
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, sender.attemptsFor("owner-1"))
	assert.Equal(t, 1, sender.attemptsFor("renter-1"))
	renterText, _ := sender.get("renter-1")
	assert.Equal(t, "your rental is active", renterText)
}
