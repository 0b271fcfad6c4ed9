package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gearrental/internal/api"
	"gearrental/internal/notify"
	"gearrental/internal/pricing"
	"gearrental/pkg/config"
)

const maxMessageLen = 1000

// Notifier is told about committed status changes.
type Notifier interface {
	BookingStatusChanged(ctx context.Context, e notify.BookingStatusChanged) error
}

type Handlers struct {
	Cfg      config.Config
	Store    Store
	Notifier Notifier
	Logger   logrus.FieldLogger

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// View is a booking as seen by one of its parties. The derived fields are computed from the
// status on every read and never stored.
type View struct {
	*Booking
	StatusDisplay   string   `json:"statusDisplay"`
	StatusMessage   string   `json:"statusMessage"`
	PaymentRequired bool     `json:"paymentRequired"`
	RefundEligible  bool     `json:"refundEligible"`
	AllowedNext     []Status `json:"allowedNext"`
}

func NewView(b *Booking, userID string) View {
	isOwner, isRenter := b.IsOwner(userID), b.IsRenter(userID)
	allowed := []Status{}
	for _, next := range NextStatuses(b.Status) {
		if ValidateTransition(b.Status, next, isOwner, isRenter) == nil {
			allowed = append(allowed, next)
		}
	}
	return View{
		Booking:         b,
		StatusDisplay:   StatusDisplay(b.Status),
		StatusMessage:   StatusMessage(b.Status, isOwner),
		PaymentRequired: RequiresPayment(b.Status),
		RefundEligible:  IsRefundEligible(b.Status),
		AllowedNext:     allowed,
	}
}

type CreateRequest struct {
	ListingID        string          `json:"listingId"`
	OwnerID          string          `json:"ownerId"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	DailyRate        decimal.Decimal `json:"dailyRate"`
	Currency         string          `json:"currency,omitempty"`
	UpfrontPaymentID string          `json:"upfrontPaymentId"`
	Message          string          `json:"message,omitempty"`
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	u := api.UserFromContext(r.Context())
	if u == nil {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user identity")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "invalid json")
		return
	}
	req.ListingID = strings.TrimSpace(req.ListingID)
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.UpfrontPaymentID = strings.TrimSpace(req.UpfrontPaymentID)
	switch {
	case req.ListingID == "":
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "listingId is required")
		return
	case req.OwnerID == "":
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "ownerId is required")
		return
	case req.OwnerID == u.ID:
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "you cannot book your own listing")
		return
	case req.StartDate.IsZero() || req.EndDate.IsZero():
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "startDate and endDate are required")
		return
	case req.UpfrontPaymentID == "":
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "upfrontPaymentId is required")
		return
	case len(req.Message) > maxMessageLen:
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "message is too long")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = h.Cfg.Booking.DefaultCurrency
	}
	quote, err := pricing.Quote(currency, req.DailyRate, req.StartDate, req.EndDate, h.Cfg.Booking.UpfrontFeePercent, pricing.DefaultCurrencyScale)
	if err != nil {
		var ve pricing.ValidationError
		if errors.As(err, &ve) && ve.Code != pricing.CodeUpfrontPercentInvalid {
			api.WriteError(w, http.StatusBadRequest, api.CodeValidation, ve.Message)
			return
		}
		h.writeInternal(w, "quote booking", err)
		return
	}

	b := NewRequest(h.newID(), req.ListingID, u.ID, req.OwnerID, req.StartDate, req.EndDate, quote, req.UpfrontPaymentID, req.Message, h.now())
	if err := h.Store.Create(r.Context(), b); err != nil {
		h.writeInternal(w, "create booking", err)
		return
	}

	h.logger().WithFields(logrus.Fields{"booking_id": b.ID, "listing_id": b.ListingID}).Info("booking requested")
	api.WriteJSON(w, http.StatusCreated, map[string]any{"booking": NewView(b, u.ID)})
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	u := api.UserFromContext(r.Context())
	if u == nil {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user identity")
		return
	}

	role, err := ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "role must be owner or renter")
		return
	}

	items, err := h.Store.ListForUser(r.Context(), u.ID, role)
	if err != nil {
		h.writeInternal(w, "list bookings", err)
		return
	}
	views := make([]View, 0, len(items))
	for i := range items {
		views = append(views, NewView(&items[i], u.ID))
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": views})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	u, b, ok := h.loadForParty(w, r)
	if !ok {
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": NewView(b, u.ID)})
}

func (h Handlers) Events(w http.ResponseWriter, r *http.Request) {
	_, b, ok := h.loadForParty(w, r)
	if !ok {
		return
	}
	evs, err := h.Store.Events(r.Context(), b.ID)
	if err != nil {
		h.writeInternal(w, "list booking events", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": evs})
}

type PatchStatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h Handlers) PatchStatus(w http.ResponseWriter, r *http.Request) {
	u := api.UserFromContext(r.Context())
	if u == nil {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user identity")
		return
	}

	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	var req PatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "invalid json")
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "status is required")
		return
	}
	next, err := ParseStatus(req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "invalid status")
		return
	}
	if len(req.Message) > maxMessageLen {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "message is too long")
		return
	}

	res, err := h.Store.Transition(r.Context(), TransitionRequest{
		BookingID: id,
		Next:      next,
		ActorID:   u.ID,
		Message:   strings.TrimSpace(req.Message),
	})
	if err != nil {
		h.writeStoreError(w, "transition booking", err)
		return
	}

	b := res.Booking
	h.logger().WithFields(logrus.Fields{
		"booking_id": b.ID,
		"from":       res.From,
		"to":         b.Status,
		"actor":      actorRole(b, u.ID),
	}).Info("booking status changed")

	if h.Notifier != nil {
		info := Info(b.Status)
		err := h.Notifier.BookingStatusChanged(r.Context(), notify.BookingStatusChanged{
			BookingID:     b.ID,
			From:          string(res.From),
			To:            string(b.Status),
			RenterID:      b.RenterID,
			OwnerID:       b.OwnerID,
			RenterMessage: info.RenterMessage,
			OwnerMessage:  info.OwnerMessage,
			Note:          b.Message,
		})
		if err != nil {
			// The write is committed; a lost notification must not turn into a failed request.
			h.logger().WithError(err).WithField("booking_id", b.ID).Warn("status notification not published")
		}
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": fmt.Sprintf("Booking status updated to %s", StatusDisplay(b.Status)),
		"booking": NewView(b, u.ID),
	})
}

type StatusCatalogEntry struct {
	Status          Status   `json:"status"`
	Description     string   `json:"description"`
	RenterMessage   string   `json:"renterMessage"`
	OwnerMessage    string   `json:"ownerMessage"`
	PaymentRequired bool     `json:"paymentRequired"`
	RefundEligible  bool     `json:"refundEligible"`
	Terminal        bool     `json:"terminal"`
	Next            []Status `json:"next"`
}

// StatusCatalog serves the status copy so every UI surface renders the same text.
func StatusCatalog(w http.ResponseWriter, r *http.Request) {
	items := make([]StatusCatalogEntry, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		info := Info(s)
		next := NextStatuses(s)
		if next == nil {
			next = []Status{}
		}
		items = append(items, StatusCatalogEntry{
			Status:          s,
			Description:     info.Description,
			RenterMessage:   info.RenterMessage,
			OwnerMessage:    info.OwnerMessage,
			PaymentRequired: info.PaymentRequired,
			RefundEligible:  info.RefundEligible,
			Terminal:        IsTerminal(s),
			Next:            next,
		})
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) loadForParty(w http.ResponseWriter, r *http.Request) (*api.User, *Booking, bool) {
	u := api.UserFromContext(r.Context())
	if u == nil {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user identity")
		return nil, nil, false
	}
	id, ok := bookingID(w, r)
	if !ok {
		return nil, nil, false
	}
	b, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "get booking", err)
		return nil, nil, false
	}
	if !b.IsParty(u.ID) {
		api.WriteError(w, http.StatusForbidden, api.CodeAccessDenied, "you are not a party to this booking")
		return nil, nil, false
	}
	return u, b, true
}

// bookingID reads the {id} URL param. Ids that are not uuids cannot exist, so they are 404s.
func bookingID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "missing id")
		return "", false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		api.WriteError(w, http.StatusNotFound, api.CodeBookingNotFound, "booking not found")
		return "", false
	}
	return parsed.String(), true
}

func (h Handlers) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.WriteError(w, http.StatusNotFound, api.CodeBookingNotFound, "booking not found")
	case errors.Is(err, ErrAccessDenied):
		api.WriteError(w, http.StatusForbidden, api.CodeAccessDenied, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		api.WriteError(w, http.StatusBadRequest, api.CodeInvalidTransition, err.Error())
	case errors.Is(err, ErrStatusConflict):
		api.WriteError(w, http.StatusConflict, api.CodeStatusConflict, "booking status changed, reload and try again")
	default:
		h.writeInternal(w, op, err)
	}
}

func (h Handlers) writeInternal(w http.ResponseWriter, op string, err error) {
	h.logger().WithError(err).Error(op + " failed")
	if !h.Cfg.IsProd() {
		api.WriteError(w, http.StatusInternalServerError, api.CodeInternal, fmt.Sprintf("%s failed: %v", op, err))
		return
	}
	api.WriteError(w, http.StatusInternalServerError, api.CodeInternal, "internal error")
}

func (h Handlers) logger() logrus.FieldLogger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func (h Handlers) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}
