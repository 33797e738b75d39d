// Package finance fetches seller finance statistics over plain HTTP using a harvested session.
package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config describes the statistic endpoints and request signature
type Config struct {
	BaseURL          string
	Referer          string
	Locale           string
	SellerIDParam    string
	OECSellerIDParam string
	OnHoldPath       string
	PaymentsPath     string
	SettlementPath   string
	UserAgent        string
	RequestTimeout   time.Duration
	RateLimit        int
	MonthConcurrency int
	UTCOffsetHours   int
}

func NewConfig(c *common.Config) Config {
	return Config{
		BaseURL:          c.Target.APIBaseURL,
		Referer:          c.Target.FinanceURL,
		Locale:           c.Target.Locale,
		SellerIDParam:    c.Target.SellerIDParam,
		OECSellerIDParam: c.Target.OECSellerIDParam,
		OnHoldPath:       c.DirectAPI.OnHoldPath,
		PaymentsPath:     c.DirectAPI.PaymentsPath,
		SettlementPath:   c.DirectAPI.SettlementPath,
		UserAgent:        c.DirectAPI.UserAgent,
		RequestTimeout:   c.DirectAPI.RequestTimeout.D(),
		RateLimit:        c.DirectAPI.RateLimit,
		MonthConcurrency: c.DirectAPI.MonthConcurrency,
		UTCOffsetHours:   c.DirectAPI.UTCOffsetHours,
	}
}

// Client implements interfaces.FinanceFetcher
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	location   *time.Location
	now        func() time.Time
	logger     arbor.ILogger
}

var _ interfaces.FinanceFetcher = (*Client)(nil)

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClock overrides the time source used to pick the settlement months
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(config Config, logger arbor.ILogger, opts ...ClientOption) *Client {
	if config.RateLimit <= 0 {
		config.RateLimit = 4
	}
	if config.MonthConcurrency <= 0 {
		config.MonthConcurrency = 1
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 20 * time.Second
	}

	c := &Client{
		config:     config,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit),
		location:   reportingZone(config.UTCOffsetHours),
		now:        time.Now,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-200 status or a non-zero envelope code
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("finance api error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Fetch claims session and collects the on-hold amount, payment summary and
// monthly settlements. Only the on-hold request is fatal.
func (c *Client) Fetch(ctx context.Context, session *models.HarvestedSession) (*models.FinanceReport, error) {
	if err := session.Claim(); err != nil {
		return nil, err
	}

	logger := c.logger.WithCorrelationId(session.ProfileID())
	start := time.Now()
	logger.Debug().
		Str("strategy", session.Strategy()).
		Dur("session_age", start.Sub(session.CapturedAt())).
		Msg("Fetching finance figures")

	report := &models.FinanceReport{
		ProfileID:   session.ProfileID(),
		SellerID:    session.SellerID(),
		OECSellerID: session.OECSellerID(),
		FetchedAt:   c.now(),
	}

	var onHold onHoldData
	if err := c.get(ctx, session, c.config.OnHoldPath, nil, &onHold); err != nil {
		return nil, fmt.Errorf("fetch on-hold amount: %w", err)
	}
	report.OnHold = onHold.OnHold.display()
	report.OnHoldCurrency = onHold.OnHold.currency()

	report.Payments = c.fetchPayments(ctx, session, logger)
	report.Months = c.fetchMonths(ctx, session, logger)

	failedMonths := 0
	for _, m := range report.Months {
		if m.Failed() {
			failedMonths++
		}
	}

	logger.Info().
		Str("on_hold", report.OnHold).
		Bool("payments_available", report.Payments.Available).
		Int("months", len(report.Months)).
		Int("failed_months", failedMonths).
		Dur("elapsed", time.Since(start)).
		Msg("Finance data fetched")

	return report, nil
}

func (c *Client) fetchPayments(ctx context.Context, session *models.HarvestedSession, logger arbor.ILogger) models.PaymentSummary {
	var data paymentSummaryData
	if err := c.get(ctx, session, c.config.PaymentsPath, nil, &data); err != nil {
		err = fmt.Errorf("%w: payment summary: %v", models.ErrAPIPartialFailure, err)
		logger.Warn().Err(err).Msg("Payment summary unavailable")
		return models.PaymentSummary{
			Available:      false,
			TotalPaid:      models.ValueNotAvailable,
			LastPaidAmount: models.ValueNotAvailable,
			LastPaidAt:     models.ValueNotAvailable,
			Error:          err.Error(),
		}
	}

	return models.PaymentSummary{
		Available:      true,
		TotalPaid:      data.TotalPaid.display(),
		LastPaidAmount: data.LastPayment.amount(),
		LastPaidAt:     data.LastPayment.paidAt(c.location),
	}
}

// fetchMonths requests every settlement window independently; a failed month
// becomes an Error entry and never aborts its siblings
func (c *Client) fetchMonths(ctx context.Context, session *models.HarvestedSession, logger arbor.ILogger) []models.MonthlySettlement {
	windows := settlementMonths(c.now(), c.location)
	months := make([]models.MonthlySettlement, len(windows))

	var g errgroup.Group
	g.SetLimit(c.config.MonthConcurrency)

	for i, w := range windows {
		g.Go(func() error {
			month := models.MonthlySettlement{Label: w.Label, Start: w.Start, End: w.End}

			query := url.Values{}
			query.Set("start_time", strconv.FormatInt(w.Start.Unix(), 10))
			query.Set("end_time", strconv.FormatInt(w.End.Unix(), 10))

			var data settlementData
			if err := c.get(ctx, session, c.config.SettlementPath, query, &data); err != nil {
				logger.Debug().Err(err).Str("month", w.Label).Msg("Settlement fetch failed")
				month.Amount = models.ValueError
				month.Error = err.Error()
			} else if data.Settlement == nil {
				month.Amount = models.ValueZeroAmount
			} else {
				month.Amount = data.Settlement.display()
			}

			months[i] = month
			return nil
		})
	}
	_ = g.Wait()

	return months
}

// get performs one authenticated statistic request and decodes its data block into out
func (c *Client) get(ctx context.Context, session *models.HarvestedSession, path string, extra url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	query := url.Values{}
	query.Set(c.config.SellerIDParam, session.SellerID())
	query.Set(c.config.OECSellerIDParam, session.OECSellerID())
	query.Set("locale", c.config.Locale)
	for k, v := range extra {
		query[k] = v
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cookie", session.CookieHeader())
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.config.Referer != "" {
		req.Header.Set("Referer", c.config.Referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncate(strings.TrimSpace(string(body)), 200),
			Endpoint:   path,
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Code != 0 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("code %d: %s", env.Code, env.Message),
			Endpoint:   path,
		}
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

