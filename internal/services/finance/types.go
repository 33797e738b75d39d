package finance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/sellersync/internal/models"
)

// envelope is the common wrapper of every statistics endpoint
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// money is an amount block. Any field may be absent.
type money struct {
	Amount       *string `json:"amount"`
	Currency     *string `json:"currency"`
	FormatAmount *string `json:"format_amount"`
}

// onHoldData is returned by the on-hold statistic endpoint
type onHoldData struct {
	OnHold *money `json:"on_hold_amount"`
}

// paymentSummaryData is returned by the payment summary endpoint
type paymentSummaryData struct {
	TotalPaid   *money       `json:"total_paid"`
	LastPayment *lastPayment `json:"last_payment"`
}

type lastPayment struct {
	Amount   *money `json:"amount"`
	PaidTime *int64 `json:"paid_time"` // unix seconds
}

// settlementData is returned by the settlement statistic endpoint for one window
type settlementData struct {
	Settlement *money `json:"settlement_amount"`
}

var currencySymbols = map[string]string{
	"USD": "$",
	"GBP": "£",
	"EUR": "€",
}

// display renders an amount block: a missing block is N/A, a block without
// an amount is $0, otherwise the preformatted amount or symbol plus amount.
func (m *money) display() string {
	if m == nil {
		return models.ValueNotAvailable
	}
	if m.FormatAmount != nil && strings.TrimSpace(*m.FormatAmount) != "" {
		return strings.TrimSpace(*m.FormatAmount)
	}
	if m.Amount == nil || strings.TrimSpace(*m.Amount) == "" {
		return models.ValueZeroAmount
	}
	amount := strings.TrimSpace(*m.Amount)
	if symbol, ok := currencySymbols[m.currency()]; ok {
		return symbol + amount
	}
	if c := m.currency(); c != "" {
		return fmt.Sprintf("%s %s", amount, c)
	}
	return "$" + amount
}

func (m *money) currency() string {
	if m == nil || m.Currency == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*m.Currency))
}

func (p *lastPayment) amount() string {
	if p == nil {
		return models.ValueNotAvailable
	}
	return p.Amount.display()
}

func (p *lastPayment) paidAt(loc *time.Location) string {
	if p == nil || p.PaidTime == nil || *p.PaidTime <= 0 {
		return models.ValueNotAvailable
	}
	return time.Unix(*p.PaidTime, 0).In(loc).Format("2006-01-02")
}
