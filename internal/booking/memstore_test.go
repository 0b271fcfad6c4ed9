package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gearrental/internal/events"
)

// memStore mirrors Repository's read-validate-CAS flow in memory.
type memStore struct {
	mu       sync.Mutex
	bookings map[string]Booking
	events   map[string][]events.Event
	now      func() time.Time

	// beforeWrite runs between the read and the conditional write, simulating a concurrent
	// request that lands in that window.
	beforeWrite func(id string)
}

func newMemStore() *memStore {
	return &memStore{
		bookings: map[string]Booking{},
		events:   map[string][]events.Event{},
		now:      func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func (m *memStore) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; ok {
		return fmt.Errorf("duplicate booking %s", b.ID)
	}
	m.bookings[b.ID] = *b
	m.appendEvent(b.ID, events.TypeBookingRequested, "renter", b.CreatedAt, nil)
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *memStore) ListForUser(_ context.Context, userID string, role Role) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Booking{}
	for _, b := range m.bookings {
		switch {
		case role == RoleOwner && b.IsOwner(userID),
			role == RoleRenter && b.IsRenter(userID),
			role == RoleAny && b.IsParty(userID):
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Transition(_ context.Context, req TransitionRequest) (*TransitionResult, error) {
	m.mu.Lock()
	cur, ok := m.bookings[req.BookingID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	next, err := applyTransition(&cur, req, m.now())
	if err != nil {
		return nil, err
	}

	if m.beforeWrite != nil {
		m.beforeWrite(req.BookingID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookings[req.BookingID].Status != cur.Status {
		return nil, fmt.Errorf("%w: expected %s", ErrStatusConflict, cur.Status)
	}
	m.bookings[req.BookingID] = *next
	m.appendEvent(cur.ID, events.TypeStatusChanged, actorRole(&cur, req.ActorID), next.UpdatedAt,
		map[string]any{"from": string(cur.Status), "to": string(next.Status)})
	return &TransitionResult{Booking: next, From: cur.Status}, nil
}

func (m *memStore) Events(_ context.Context, bookingID string) ([]events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event{}, m.events[bookingID]...), nil
}

func (m *memStore) setStatus(id string, s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bookings[id]
	b.Status = s
	m.bookings[id] = b
}

func (m *memStore) appendEvent(id, typ, actor string, at time.Time, data map[string]any) {
	m.events[id] = append(m.events[id], events.Event{
		ID:         fmt.Sprintf("%s-%d", id, len(m.events[id])),
		BookingID:  id,
		EventType:  typ,
		Actor:      actor,
		OccurredAt: at,
		Data:       data,
	})
}
