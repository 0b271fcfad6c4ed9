package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CurrencyScale int32

const DefaultCurrencyScale CurrencyScale = 2

// Breakdown is the monetary side of a booking. UpfrontFee is captured when the renter submits
// the request; RentalFee is charged once the owner confirms.
type Breakdown struct {
	Currency   string          `json:"currency"`
	DailyRate  decimal.Decimal `json:"dailyRate"`
	Days       int             `json:"days"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	UpfrontFee decimal.Decimal `json:"upfrontFee"`
	RentalFee  decimal.Decimal `json:"rentalFee"`
	Total      decimal.Decimal `json:"total"`
}

// CodeUpfrontPercentInvalid flags the configured fee share, not the caller's input.
const CodeUpfrontPercentInvalid = "UPFRONT_PERCENT_INVALID"

type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// RentalDays counts started days between start and end. A 25 hour rental is two days.
func RentalDays(start, end time.Time) (int, error) {
	if !end.After(start) {
		return 0, ValidationError{Code: "DATE_RANGE_INVALID", Message: "end date must be after start date"}
	}
	return int(math.Ceil(end.Sub(start).Hours() / 24)), nil
}

// Quote prices a rental.
//
// Rules:
// - Subtotal is dailyRate * days.
// - The upfront fee is upfrontPercent of the subtotal, rounded to scale.
// - The rental fee takes the rounding delta so upfront + rental always equals the total.
func Quote(currency string, dailyRate decimal.Decimal, start, end time.Time, upfrontPercent decimal.Decimal, scale CurrencyScale) (Breakdown, error) {
	if dailyRate.LessThanOrEqual(decimal.Zero) {
		return Breakdown{}, ValidationError{Code: "DAILY_RATE_INVALID", Message: "daily rate must be > 0"}
	}
	if upfrontPercent.LessThanOrEqual(decimal.Zero) || upfrontPercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return Breakdown{}, ValidationError{Code: CodeUpfrontPercentInvalid, Message: "upfront percent must be between 0 and 100"}
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Breakdown{}, ValidationError{Code: "CURRENCY_INVALID", Message: "currency must be a 3 letter code"}
	}
	if scale <= 0 {
		scale = DefaultCurrencyScale
	}

	days, err := RentalDays(start, end)
	if err != nil {
		return Breakdown{}, err
	}

	rate := dailyRate.Round(int32(scale))
	subtotal := rate.Mul(decimal.NewFromInt(int64(days))).Round(int32(scale))
	upfront := subtotal.Mul(upfrontPercent).Div(decimal.NewFromInt(100)).Round(int32(scale))
	rental := subtotal.Sub(upfront)

	if upfront.LessThanOrEqual(decimal.Zero) || rental.LessThanOrEqual(decimal.Zero) {
		return Breakdown{}, ValidationError{Code: "FEE_SPLIT_INVALID", Message: "upfront and rental fees must both be > 0"}
	}

	return Breakdown{
		Currency:   currency,
		DailyRate:  rate,
		Days:       days,
		Subtotal:   subtotal,
		UpfrontFee: upfront,
		RentalFee:  rental,
		Total:      subtotal,
	}, nil
}
