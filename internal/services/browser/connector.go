// Package browser adapts chromedp to the page capability used by login and extraction.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

// Connector attaches chromedp to profiles started by the control plane
type Connector struct {
	config     common.BrowserConfig
	httpClient *http.Client
	logger     arbor.ILogger
}

var _ interfaces.BrowserConnector = (*Connector)(nil)

// NewConnector creates a connector from the [browser] section
func NewConnector(config common.BrowserConfig, logger arbor.ILogger) *Connector {
	return &Connector{
		config:     config,
		httpClient: &http.Client{Timeout: config.ConnectTimeout.D()},
		logger:     logger,
	}
}

// devtoolsTarget is one entry of the DevTools /json/list endpoint
type devtoolsTarget struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Connect attaches to the remote browser behind handle. The first existing
// page target becomes the session's primary page; one is opened if none exist.
func (c *Connector) Connect(ctx context.Context, handle models.ProfileHandle) (interfaces.BrowserSession, error) {
	debugURL := handle.DebugURL(c.config.Host)

	pageID, err := c.firstPageTarget(ctx, debugURL)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("profile_id", handle.ProfileID).
			Msg("Could not list page targets, opening a new page")
	}

	// The allocator context is deliberately detached from ctx: it lives until Disconnect
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), debugURL)

	var opts []chromedp.ContextOption
	if pageID != "" {
		opts = append(opts, chromedp.WithTargetID(target.ID(pageID)))
	}
	browserCtx, _ := chromedp.NewContext(allocCtx, opts...)

	connectCtx, cancel := context.WithTimeout(browserCtx, c.config.ConnectTimeout.D())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(connectCtx); err != nil {
		allocCancel()
		return nil, fmt.Errorf("connect to %s: %w", debugURL, err)
	}

	c.logger.Debug().
		Str("profile_id", handle.ProfileID).
		Str("debug_url", debugURL).
		Bool("attached_existing", pageID != "").
		Msg("Browser connected")

	session := &Session{
		profileID:   handle.ProfileID,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		stealth:     c.config.Stealth,
		logger:      c.logger,
	}
	session.primary = newPage(browserCtx, nil, session)
	return session, nil
}

func (c *Connector) firstPageTarget(ctx context.Context, debugURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, debugURL+"/json/list", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("target list returned status %d", resp.StatusCode)
	}

	var targets []devtoolsTarget
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return "", fmt.Errorf("decode target list: %w", err)
	}
	for _, t := range targets {
		if t.Type == "page" {
			return t.ID, nil
		}
	}
	return "", nil
}

// Session is a chromedp attachment to one remote browser
type Session struct {
	profileID   string
	allocCancel context.CancelFunc
	browserCtx  context.Context
	primary     *Page
	stealth     bool
	logger      arbor.ILogger

	closeOnce sync.Once
}

// FirstPage returns the page attached during Connect
func (s *Session) FirstPage(ctx context.Context) (interfaces.Page, error) {
	if err := s.prepare(ctx, s.primary); err != nil {
		return nil, err
	}
	return s.primary, nil
}

// NewPage opens a fresh tab in the same browser
func (s *Session) NewPage(ctx context.Context) (interfaces.Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)

	runCtx, cancel := context.WithTimeout(tabCtx, 15*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open page: %w", err)
	}

	p := newPage(tabCtx, tabCancel, s)
	if err := s.prepare(ctx, p); err != nil {
		tabCancel()
		return nil, err
	}
	return p, nil
}

func (s *Session) prepare(ctx context.Context, p *Page) error {
	if !s.stealth {
		return nil
	}
	return p.injectStealth(ctx)
}

// SetWindowBounds moves and resizes the window hosting the primary page
func (s *Session) SetWindowBounds(ctx context.Context, bounds models.WindowBounds) error {
	return s.primary.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := browser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return fmt.Errorf("get window: %w", err)
		}
		// Geometry cannot be applied to a minimized or maximized window
		if err := browser.SetWindowBounds(windowID, &browser.Bounds{WindowState: browser.WindowStateNormal}).Do(ctx); err != nil {
			return fmt.Errorf("restore window: %w", err)
		}
		return browser.SetWindowBounds(windowID, &browser.Bounds{
			Left:   int64(bounds.Left),
			Top:    int64(bounds.Top),
			Width:  int64(bounds.Width),
			Height: int64(bounds.Height),
		}).Do(ctx)
	}))
}

// Disconnect drops the devtools connection and leaves the remote browser running.
// Cancelling the first chromedp context would send Browser.close, so only the
// allocator is cancelled here.
func (s *Session) Disconnect() error {
	s.closeOnce.Do(func() {
		s.allocCancel()
		s.logger.Debug().Str("profile_id", s.profileID).Msg("Browser disconnected")
	})
	return nil
}
