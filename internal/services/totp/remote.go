// Package totp provides one-time-password codes for two-factor login.
package totp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/interfaces"
)

// DefaultEndpoint is the public TOTP code service
const DefaultEndpoint = "https://2fa.live/tok/{secret}"

var codePattern = regexp.MustCompile(`^\d{6}$`)

// RemoteProvider fetches codes from an HTTP service keyed by the shared secret
type RemoteProvider struct {
	endpoint   string
	httpClient *http.Client
	logger     arbor.ILogger
}

var _ interfaces.TOTPProvider = (*RemoteProvider)(nil)

// NewRemoteProvider creates a provider for endpoint. "{secret}" in the
// endpoint is replaced; otherwise the secret is appended as a path segment.
func NewRemoteProvider(endpoint string, timeout time.Duration, logger arbor.ILogger) *RemoteProvider {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &RemoteProvider{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (p *RemoteProvider) requestURL(secret string) string {
	escaped := url.PathEscape(strings.ReplaceAll(secret, " ", ""))
	if strings.Contains(p.endpoint, "{secret}") {
		return strings.ReplaceAll(p.endpoint, "{secret}", escaped)
	}
	return strings.TrimRight(p.endpoint, "/") + "/" + escaped
}

// Code returns the current code; ok is false on any failure
func (p *RemoteProvider) Code(ctx context.Context, secret string) (string, bool) {
	if secret == "" {
		return "", false
	}

	code, err := p.fetch(ctx, secret)
	if err != nil {
		// The secret is part of the URL, so never log the request itself
		p.logger.Warn().Err(err).Msg("TOTP code fetch failed")
		return "", false
	}
	return code, true
}

func (p *RemoteProvider) fetch(ctx context.Context, secret string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.requestURL(secret), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the URL, which contains the secret
		return "", fmt.Errorf("request failed: %s", redact(err, secret))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	token := strings.TrimSpace(body.Token)
	if !codePattern.MatchString(token) {
		return "", fmt.Errorf("response did not contain a 6-digit token")
	}
	return token, nil
}

func redact(err error, secret string) string {
	if uerr, ok := err.(*url.Error); ok {
		return uerr.Err.Error()
	}
	return strings.ReplaceAll(err.Error(), secret, "***")
}

// NewProvider selects the provider configured by [totp] mode
func NewProvider(config common.TOTPConfig, logger arbor.ILogger) interfaces.TOTPProvider {
	if config.Mode == "local" {
		return NewLocalProvider(logger)
	}
	return NewRemoteProvider(config.Endpoint, config.Timeout.D(), logger)
}
