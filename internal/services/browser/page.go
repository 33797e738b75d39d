package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

// Page implements interfaces.Page on a chromedp tab context
type Page struct {
	ctx     context.Context
	cancel  context.CancelFunc // nil for the attached primary page
	session *Session

	listenOnce sync.Once
	mu         sync.RWMutex
	observers  []func(interfaces.ResponseEvent)
}

var _ interfaces.Page = (*Page)(nil)

func newPage(ctx context.Context, cancel context.CancelFunc, session *Session) *Page {
	return &Page{ctx: ctx, cancel: cancel, session: session}
}

// run executes actions on the tab while honouring the caller's deadline and cancellation
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *Page) injectStealth(ctx context.Context) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *Page) Location(ctx context.Context) (string, error) {
	var location string
	err := p.run(ctx, chromedp.Location(&location))
	return location, err
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Exists checks for a matching element without waiting for it
func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	var found bool
	err = p.run(ctx, chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%s) !== null`, quoted), &found))
	return found, err
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *Page) Focus(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Focus(selector, chromedp.ByQuery))
}

func (p *Page) Clear(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Clear(selector, chromedp.ByQuery))
}

func (p *Page) SendKeys(ctx context.Context, selector, text string) error {
	return p.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (p *Page) PressEnter(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
}

func (p *Page) Evaluate(ctx context.Context, script string, out interface{}) error {
	return p.run(ctx, chromedp.Evaluate(script, out))
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Cookies reads the cookies the browser would send to urls
func (p *Page) Cookies(ctx context.Context, urls ...string) ([]models.Cookie, error) {
	var cookies []models.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().WithURLs(urls).Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			cookies = append(cookies, convertCookie(c))
		}
		return nil
	}))
	return cookies, err
}

func convertCookie(c *network.Cookie) models.Cookie {
	cookie := models.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
	}
	// Session cookies report -1
	if c.Expires > 0 {
		sec, frac := math.Modf(c.Expires)
		cookie.Expires = time.Unix(int64(sec), int64(frac*1e9))
	}
	return cookie
}

// OnResponse registers fn for response and loading-failure events on this tab
func (p *Page) OnResponse(fn func(interfaces.ResponseEvent)) {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()

	p.listenOnce.Do(func() {
		chromedp.ListenTarget(p.ctx, func(ev interface{}) {
			switch e := ev.(type) {
			case *network.EventResponseReceived:
				if e.Response == nil {
					return
				}
				p.dispatch(interfaces.ResponseEvent{
					URL:          e.Response.URL,
					MainDocument: e.Type == network.ResourceTypeDocument,
				})
			case *network.EventLoadingFailed:
				if e.Canceled {
					return
				}
				p.dispatch(interfaces.ResponseEvent{
					Failed:       true,
					ErrorText:    e.ErrorText,
					MainDocument: e.Type == network.ResourceTypeDocument,
				})
			}
		})

		// chromedp enables the network domain lazily; make sure events flow before navigation
		enableCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.run(enableCtx, network.Enable()); err != nil {
			p.session.logger.Debug().Err(err).Msg("Failed to enable network events")
		}
	})
}

func (p *Page) dispatch(event interfaces.ResponseEvent) {
	p.mu.RLock()
	observers := p.observers
	p.mu.RUnlock()

	for _, fn := range observers {
		fn(event)
	}
}

// Close closes tabs opened by NewPage. The attached primary page is left open.
func (p *Page) Close(ctx context.Context) error {
	if p.cancel != nil {
		// Cancelling a non-first chromedp context closes the tab it created
		p.cancel()
	}
	return nil
}
