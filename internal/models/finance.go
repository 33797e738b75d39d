package models

import "time"

const (
	// ValueNotAvailable marks a field the API did not return
	ValueNotAvailable = "N/A"
	// ValueZeroAmount is shown when an amount is absent
	ValueZeroAmount = "$0"
	// ValueError marks a sub-result that failed to fetch
	ValueError = "Error"
)

// FinanceReport aggregates the figures fetched for one profile
type FinanceReport struct {
	ProfileID      string              `json:"profile_id"`
	SellerID       string              `json:"seller_id"`
	OECSellerID    string              `json:"oec_seller_id"`
	OnHold         string              `json:"on_hold"`
	OnHoldCurrency string              `json:"on_hold_currency"`
	Payments       PaymentSummary      `json:"payments"`
	Months         []MonthlySettlement `json:"months"`
	FetchedAt      time.Time           `json:"fetched_at"`
}

// PaymentSummary is the payment-history block; Available=false when the fetch failed
type PaymentSummary struct {
	Available      bool   `json:"available"`
	TotalPaid      string `json:"total_paid"`
	LastPaidAmount string `json:"last_paid_amount"`
	LastPaidAt     string `json:"last_paid_at"`
	Error          string `json:"error,omitempty"`
}

// MonthlySettlement is the settlement figure for one calendar month
type MonthlySettlement struct {
	Label  string    `json:"label"` // "2025-01"
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Amount string    `json:"amount"`
	Error  string    `json:"error,omitempty"`
}

// Failed reports whether this month degraded to an error marker
func (m MonthlySettlement) Failed() bool {
	return m.Error != ""
}
