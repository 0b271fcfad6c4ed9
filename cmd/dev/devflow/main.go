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

	"gearrental/pkg/authtoken"
	"gearrental/pkg/config"
)

// devflow walks one booking through pending -> confirmed -> active -> completed against a running API.
func main() {
	var (
		baseURL   = flag.String("url", "", "api base url (defaults to http://localhost<HTTP_ADDR>)")
		ownerID   = flag.String("owner", "owner-"+uuid.NewString()[:8], "owner user id")
		renterID  = flag.String("renter", "renter-"+uuid.NewString()[:8], "renter user id")
		listingID = flag.String("listing", "listing-dev-1", "listing id")
		dailyRate = flag.String("daily-rate", "40.00", "listing daily rate")
		days      = flag.Int("days", 3, "rental length in days")
		stopAt    = flag.String("stop-at", "completed", "last status to request: confirmed, active or completed")
	)
	flag.Parse()

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = localURL(cfg.HTTPAddr)
	}
	if cfg.Auth.TokenSecret == "" {
		fmt.Fprintln(os.Stderr, "missing AUTH_TOKEN_SECRET in env/.env")
		os.Exit(2)
	}

	now := time.Now()
	ownerToken := mustToken(cfg, *ownerID, now)
	renterToken := mustToken(cfg, *renterID, now)

	start := time.Date(now.Year(), now.Month(), now.Day(), 10, 0, 0, 0, time.UTC).AddDate(0, 0, 7)
	var createdResp struct {
		Booking struct {
			ID      string `json:"id"`
			Status  string `json:"status"`
			Pricing struct {
				UpfrontFee string `json:"upfrontFee"`
				RentalFee  string `json:"rentalFee"`
				Total      string `json:"total"`
			} `json:"pricing"`
		} `json:"booking"`
	}
	call(http.MethodPost, *baseURL+"/v1/bookings", renterToken, map[string]any{
		"listingId":        *listingID,
		"ownerId":          *ownerID,
		"startDate":        start,
		"endDate":          start.AddDate(0, 0, *days),
		"dailyRate":        *dailyRate,
		"upfrontPaymentId": "dev_" + uuid.NewString(),
	}, &createdResp)
	created := createdResp.Booking
	fmt.Printf("booking_id=%s status=%s upfront=%s rental=%s total=%s\n",
		created.ID, created.Status, created.Pricing.UpfrontFee, created.Pricing.RentalFee, created.Pricing.Total)

	for _, next := range []string{"confirmed", "active", "completed"} {
		var res struct {
			Message string `json:"message"`
			Booking struct {
				Status string `json:"status"`
			} `json:"booking"`
		}
		call(http.MethodPatch, *baseURL+"/v1/bookings/"+created.ID+"/status", ownerToken,
			map[string]any{"status": next}, &res)
		fmt.Printf("-> %s: %s\n", res.Booking.Status, res.Message)
		if next == *stopAt {
			break
		}
	}

	var timeline struct {
		Items []struct {
			EventType  string    `json:"eventType"`
			Actor      string    `json:"actor"`
			OccurredAt time.Time `json:"occurredAt"`
		} `json:"items"`
	}
	call(http.MethodGet, *baseURL+"/v1/bookings/"+created.ID+"/events", renterToken, nil, &timeline)
	fmt.Printf("timeline:\n")
	for _, e := range timeline.Items {
		fmt.Printf("  - %s %s by %s\n", e.OccurredAt.Format(time.RFC3339), e.EventType, e.Actor)
	}

	fmt.Printf("\nNext steps:\n")
	fmt.Printf("- Simulate the rental fee capture:\n")
	fmt.Printf("  go run ./cmd/dev/simpayment -booking %s -type rental_fee.captured -amount %s\n", created.ID, created.Pricing.RentalFee)
}

func mustToken(cfg config.Config, userID string, now time.Time) string {
	tok, err := authtoken.Sign(userID, cfg.Auth.TokenAudience, cfg.Auth.TokenSecret, time.Hour, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token for %s: %v\n", userID, err)
		os.Exit(1)
	}
	return tok
}

func call(method, url, token string, in, out any) {
	var body io.Reader
	if in != nil {
		b, _ := json.Marshal(in)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", method, url, err)
		fmt.Fprintf(os.Stderr, "tip: is the API running, and is HTTP_ADDR set correctly?\n")
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "%s %s status=%d body=%s\n", method, url, resp.StatusCode, string(b))
		os.Exit(1)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			fmt.Fprintf(os.Stderr, "decode %s response: %v\n", url, err)
			os.Exit(1)
		}
	}
}

func localURL(httpAddr string) string {
	addr := strings.TrimSpace(httpAddr)
	switch {
	case addr == "":
		addr = ":8080"
	case strings.HasPrefix(addr, "0.0.0.0:"):
		addr = strings.TrimPrefix(addr, "0.0.0.0")
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
