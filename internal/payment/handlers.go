package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"gearrental/internal/api"
)

const maxBodyBytes = 1 << 20

type Store interface {
	Apply(ctx context.Context, e Event, payloadHash string) (Outcome, error)
}

// WebhookHandler receives signed callbacks from the payment processor.
type WebhookHandler struct {
	Secret string
	Store  Store
	Logger logrus.FieldLogger
}

func (h WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "invalid body")
		return
	}

	if !VerifySignature(body, strings.TrimSpace(r.Header.Get(SignatureHeader)), h.Secret) {
		api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized, "invalid webhook signature")
		return
	}

	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, "invalid json")
		return
	}
	if err := e.Validate(); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}

	log := h.Logger.WithFields(logrus.Fields{
		"event_id":   e.ID,
		"event_type": e.Type,
		"booking_id": e.BookingID,
	})

	outcome, err := h.Store.Apply(r.Context(), e, sha256Hex(body))
	if err != nil {
		// 5xx makes the processor retry; the event id keeps the retry idempotent.
		log.WithError(err).Error("payment webhook failed")
		api.WriteError(w, http.StatusInternalServerError, api.CodeInternal, "internal error")
		return
	}

	switch outcome {
	case OutcomeIgnored, OutcomeUnknownBooking:
		log.WithField("outcome", outcome).Warn("payment event not applied")
	default:
		log.WithField("outcome", outcome).Info("payment event processed")
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{"outcome": outcome})
}
