// Package extractor harvests an authenticated seller session from a running browser profile.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

const (
	strategyNetwork  = "network"
	strategyLocation = "location"
	strategyDOM      = "dom"
)

// Config controls where the extractor navigates and what it looks for
type Config struct {
	FinanceURL       string
	CookieURLs       []string
	CookieDomain     string
	SellerIDParam    string
	OECSellerIDParam string
	Deadline         time.Duration
	PollInterval     time.Duration
}

func NewConfig(c *common.Config) Config {
	return Config{
		FinanceURL:       c.Target.FinanceURL,
		CookieURLs:       []string{c.Target.FinanceURL, c.Target.APIBaseURL},
		CookieDomain:     c.Target.CookieDomain,
		SellerIDParam:    c.Target.SellerIDParam,
		OECSellerIDParam: c.Target.OECSellerIDParam,
		Deadline:         c.Extraction.Deadline.D(),
		PollInterval:     c.Extraction.PollInterval.D(),
	}
}

// Extractor implements interfaces.SessionExtractor
type Extractor struct {
	connector interfaces.BrowserConnector
	config    Config
	script    string
	logger    arbor.ILogger
}

var _ interfaces.SessionExtractor = (*Extractor)(nil)

func NewExtractor(connector interfaces.BrowserConnector, config Config, logger arbor.ILogger) *Extractor {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.Deadline <= 0 {
		config.Deadline = 30 * time.Second
	}
	return &Extractor{
		connector: connector,
		config:    config,
		script:    stateScript(config.SellerIDParam, config.OECSellerIDParam),
		logger:    logger,
	}
}

// Extract opens a fresh page on the finance URL and races three watchers for the
// seller identifiers. The page and browser connection are released before it returns.
func (e *Extractor) Extract(ctx context.Context, handle models.ProfileHandle) (*models.HarvestedSession, error) {
	logger := e.logger.WithCorrelationId(handle.ProfileID)

	session, err := e.connector.Connect(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("connect to profile %s: %w", handle.ProfileID, err)
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			logger.Warn().Err(err).Msg("Browser disconnect failed")
		}
	}()

	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page for profile %s: %w", handle.ProfileID, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := page.Close(closeCtx); err != nil {
			logger.Debug().Err(err).Msg("Page close failed")
		}
	}()

	capture := newCapture(e.config.SellerIDParam, e.config.OECSellerIDParam)
	page.OnResponse(func(ev interfaces.ResponseEvent) {
		if ev.Failed {
			// Sub-resource failures (trackers, CDN assets) are ignored even for
			// proxy or DNS faults; only the main document decides the phase.
			if ev.MainDocument {
				capture.observeFault(ClassifyNetworkFault(ev.ErrorText))
			}
			return
		}
		capture.observeURL(ev.URL, strategyNetwork)
	})

	runCtx, cancel := context.WithTimeout(ctx, e.config.Deadline)
	defer cancel()

	var navigation sync.WaitGroup
	navigation.Add(1)
	go func() {
		defer navigation.Done()
		if err := page.Navigate(runCtx, e.config.FinanceURL); err != nil {
			if fault := ClassifyNetworkFault(err.Error()); fault != nil {
				capture.observeFault(fault)
				return
			}
			if runCtx.Err() == nil {
				logger.Debug().Err(err).Msg("Finance page navigation returned an error")
			}
		}
	}()

	started := time.Now()
	ids, err := firstOf(runCtx,
		e.watchResponses(capture),
		e.watchLocation(page, capture),
		e.watchPageState(page, capture),
	)

	cancel()
	navigation.Wait()

	if err != nil {
		return nil, e.failure(ctx, err, capture)
	}

	logger.Debug().
		Str("strategy", ids.source).
		Dur("elapsed", time.Since(started)).
		Msg("Seller identifiers captured")

	cookies, err := page.Cookies(ctx, e.config.CookieURLs...)
	if err != nil {
		return nil, fmt.Errorf("read cookies for profile %s: %w", handle.ProfileID, err)
	}
	cookies = filterCookies(cookies, e.config.CookieDomain)

	logger.Info().
		Str("strategy", ids.source).
		Int("cookies", len(cookies)).
		Msg("Session harvested")

	return models.NewHarvestedSession(handle.ProfileID, ids.SellerID, ids.OECSellerID, cookies, ids.source)
}

// failure turns a race error into the caller-facing error. A classified network
// fault wins over a timeout; cancellation of the caller's ctx is returned as-is.
func (e *Extractor) failure(ctx context.Context, err error, capture *capture) error {
	partial, fault := capture.snapshot()

	var faultErr *models.NetworkFaultError
	if errors.As(err, &faultErr) {
		return withPartial(faultErr, partial)
	}
	if fault != nil {
		return withPartial(fault, partial)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return withPartial(fmt.Errorf("%w after %s", models.ErrExtractionTimeout, e.config.Deadline), partial)
	}
	return err
}

func withPartial(err error, partial identifiers) error {
	if partial.empty() {
		return err
	}
	return fmt.Errorf("%w (partial capture: seller_id=%q oec_seller_id=%q)", err, partial.SellerID, partial.OECSellerID)
}

// watchResponses waits for the response observer to see both identifiers in one URL,
// or for a main-document network fault
func (e *Extractor) watchResponses(capture *capture) watcher[identifiers] {
	return func(ctx context.Context) (identifiers, error) {
		select {
		case ids := <-capture.found:
			return ids, nil
		case fault := <-capture.faulted:
			return identifiers{}, fault
		case <-ctx.Done():
			return identifiers{}, ctx.Err()
		}
	}
}

func (e *Extractor) watchLocation(page interfaces.Page, capture *capture) watcher[identifiers] {
	return func(ctx context.Context) (identifiers, error) {
		return poll(ctx, e.config.PollInterval, func(ctx context.Context) (identifiers, bool, error) {
			location, err := page.Location(ctx)
			if err != nil {
				return identifiers{}, false, nil
			}
			ids, ok := capture.observeURL(location, strategyLocation)
			return ids, ok, nil
		})
	}
}

func (e *Extractor) watchPageState(page interfaces.Page, capture *capture) watcher[identifiers] {
	return func(ctx context.Context) (identifiers, error) {
		return poll(ctx, e.config.PollInterval, func(ctx context.Context) (identifiers, bool, error) {
			var ids identifiers
			if err := page.Evaluate(ctx, e.script, &ids); err != nil {
				return identifiers{}, false, nil
			}
			ids.SellerID = strings.TrimSpace(ids.SellerID)
			ids.OECSellerID = strings.TrimSpace(ids.OECSellerID)
			ids.source = strategyDOM
			if ids.empty() {
				return ids, false, nil
			}
			capture.note(ids)
			return ids, ids.complete(), nil
		})
	}
}

// filterCookies keeps cookies whose domain is domain or one of its subdomains
func filterCookies(cookies []models.Cookie, domain string) []models.Cookie {
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	var kept []models.Cookie
	for _, c := range cookies {
		d := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		if d == domain || strings.HasSuffix(d, "."+domain) {
			kept = append(kept, c)
		}
	}
	return kept
}
