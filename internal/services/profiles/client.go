// Package profiles talks to the local browser-profile control plane.
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the control plane's default local address
	DefaultBaseURL = "http://127.0.0.1:35000"

	// DefaultTimeout is the default per-request timeout
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second)
	DefaultRateLimit = 5
)

// Client implements interfaces.ProfileController over the control-plane HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

var _ interfaces.ProfileController = (*Client)(nil)

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new control-plane client
func NewClient(logger arbor.ILogger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx answer from the control plane
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("control plane error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type startData struct {
	Success bool `json:"success"`
	Port    int  `json:"port"`
}

type statusData struct {
	Port int `json:"port"`
}

type profileData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Group  string `json:"group"`
	Status string `json:"status"`
}

// do performs a request and decodes the envelope. Non-2xx statuses return *APIError.
func (c *Client) do(ctx context.Context, method, path string) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Trace().
		Str("method", method).
		Str("path", path).
		Msg("Control plane request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &env, nil
}

// classify maps a request failure to the control-plane error taxonomy
func classify(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusConflict:
			return fmt.Errorf("%w: %v", models.ErrControlPlaneConflict, err)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %v", models.ErrControlPlaneDenied, err)
		}
	}
	return fmt.Errorf("%w: %v", models.ErrControlPlaneTransient, err)
}

// Start launches a profile and returns its debugging handle
func (c *Client) Start(ctx context.Context, profileID string) (models.ProfileHandle, error) {
	path := "/profiles/start/" + url.PathEscape(profileID)

	env, err := c.do(ctx, http.MethodPost, path)
	if err != nil {
		return models.ProfileHandle{}, classify(err)
	}

	if env.Code != 0 {
		return models.ProfileHandle{}, fmt.Errorf("%w: start %s returned code %d: %s", models.ErrControlPlaneTransient, profileID, env.Code, env.Msg)
	}

	var data startData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return models.ProfileHandle{}, fmt.Errorf("%w: decode start data: %v", models.ErrControlPlaneTransient, err)
		}
	}
	if !data.Success || data.Port <= 0 {
		return models.ProfileHandle{}, fmt.Errorf("%w: start %s unsuccessful (port %d)", models.ErrControlPlaneTransient, profileID, data.Port)
	}

	c.logger.Debug().
		Str("profile_id", profileID).
		Int("port", data.Port).
		Msg("Profile started")

	return models.ProfileHandle{ProfileID: profileID, DebugPort: data.Port}, nil
}

// Stop asks the control plane to stop a profile. Failures are logged and swallowed.
func (c *Client) Stop(ctx context.Context, profileID string) {
	path := "/profiles/stop/" + url.PathEscape(profileID)

	if _, err := c.do(ctx, http.MethodPost, path); err != nil {
		c.logger.Warn().
			Err(err).
			Str("profile_id", profileID).
			Msg("Failed to stop profile")
		return
	}

	c.logger.Debug().Str("profile_id", profileID).Msg("Profile stopped")
}

// Status returns the debug port of an already running profile
func (c *Client) Status(ctx context.Context, profileID string) (int, error) {
	path := "/profiles/status/" + url.PathEscape(profileID)

	env, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return 0, classify(err)
	}

	var data statusData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return 0, fmt.Errorf("%w: decode status data: %v", models.ErrControlPlaneTransient, err)
		}
	}
	if data.Port <= 0 {
		return 0, fmt.Errorf("%w: profile %s reports no debug port", models.ErrControlPlaneTransient, profileID)
	}

	return data.Port, nil
}

// List returns the profiles the control plane knows about
func (c *Client) List(ctx context.Context) ([]models.ProfileDescriptor, error) {
	env, err := c.do(ctx, http.MethodGet, "/profiles")
	if err != nil {
		return nil, classify(err)
	}

	var data []profileData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: decode profile list: %v", models.ErrControlPlaneTransient, err)
		}
	}

	profiles := make([]models.ProfileDescriptor, 0, len(data))
	for _, p := range data {
		profiles = append(profiles, models.ProfileDescriptor{
			ID:     p.ID,
			Name:   p.Name,
			Group:  p.Group,
			Status: p.Status,
		})
	}
	return profiles, nil
}
