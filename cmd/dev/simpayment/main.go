package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gearrental/internal/payment"
	"gearrental/pkg/config"
)

func main() {
	var (
		url       = flag.String("url", "", "webhook endpoint url (defaults to http://localhost<HTTP_ADDR>/v1/webhooks/payments)")
		secret    = flag.String("secret", "", "PAYMENT_WEBHOOK_SECRET used by the server")
		bookingID = flag.String("booking", "", "booking id")
		eventType = flag.String("type", string(payment.EventRentalFeeCaptured), "event type")
		paymentID = flag.String("payment-id", "", "processor payment or refund id (random if empty)")
		amount    = flag.String("amount", "0", "amount")
		currency  = flag.String("currency", "", "currency (defaults to DEFAULT_CURRENCY)")
		eventID   = flag.String("id", "", "event id; reuse one to exercise dedupe (random if empty)")
	)
	flag.Parse()

	cfg := config.Load()
	if *url == "" {
		*url = localURL(cfg.HTTPAddr, "/v1/webhooks/payments")
	}
	if *secret == "" {
		*secret = cfg.PaymentWebhookSecret
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing -secret (or PAYMENT_WEBHOOK_SECRET in env/.env)")
		os.Exit(2)
	}
	if *bookingID == "" {
		fmt.Fprintln(os.Stderr, "missing -booking")
		os.Exit(2)
	}
	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -amount: %v\n", err)
		os.Exit(2)
	}
	if *currency == "" {
		*currency = cfg.Booking.DefaultCurrency
	}
	if *paymentID == "" {
		*paymentID = "sim_" + uuid.NewString()
	}
	if *eventID == "" {
		*eventID = "evt_" + uuid.NewString()
	}

	body, _ := json.Marshal(payment.Event{
		ID:        *eventID,
		Type:      payment.EventType(*eventType),
		BookingID: *bookingID,
		PaymentID: *paymentID,
		Amount:    amt,
		Currency:  *currency,
	})

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(2)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(payment.SignatureHeader, payment.Sign(body, *secret))

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "post: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	fmt.Printf("event_id=%s status=%d\n%s\n", *eventID, resp.StatusCode, string(b))
}

func localURL(httpAddr, path string) string {
	addr := strings.TrimSpace(httpAddr)
	switch {
	case addr == "":
		addr = ":8080"
	case strings.HasPrefix(addr, "0.0.0.0:"):
		addr = strings.TrimPrefix(addr, "0.0.0.0")
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr + path
	}
	return "http://" + addr + path
}
