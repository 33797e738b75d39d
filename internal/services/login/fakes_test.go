package login

import (
	"context"
	"sync"

	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

const (
	loginURL     = "https://seller.example.com/account/login"
	homepageURL  = "https://seller.example.com/homepage"
	onboardURL   = "https://seller.example.com/onboarding/step-2"
	dataE2EClick = `button[data-e2e="login-button"]`
)

// fakePage is a scripted page. Hooks run with the lock released.
type fakePage struct {
	mu sync.Mutex

	location  string
	locations []string // consumed one per Location call before falling back to location

	visible  map[string]bool
	existing map[string]bool
	html     string

	textButton bool

	navigateErr error
	panicOnType bool

	onSubmit     func(p *fakePage)
	onCodeSubmit func(p *fakePage)

	typed      map[string]string
	keystrokes int
	clicks     []string
	enters     []string
}

var _ interfaces.Page = (*fakePage)(nil)

func newFakePage() *fakePage {
	return &fakePage{
		location: "about:blank",
		visible:  map[string]bool{},
		existing: map[string]bool{},
		typed:    map[string]string{},
	}
}

func (p *fakePage) setLocation(location string) {
	p.mu.Lock()
	p.location = location
	p.mu.Unlock()
}

func (p *fakePage) setExisting(selector string) {
	p.mu.Lock()
	p.existing[selector] = true
	p.mu.Unlock()
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navigateErr != nil {
		return p.navigateErr
	}
	if p.location == "about:blank" {
		p.location = url
	}
	return nil
}

func (p *fakePage) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.locations) > 0 {
		next := p.locations[0]
		p.locations = p.locations[1:]
		return next, nil
	}
	return p.location, nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	p.mu.Lock()
	visible := p.visible[selector]
	p.mu.Unlock()
	if visible {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) Exists(ctx context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.existing[selector], nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	codeTyped := p.typed[twoFactorSelector] != ""
	p.mu.Unlock()
	p.fireSubmit(codeTyped)
	return nil
}

func (p *fakePage) Focus(ctx context.Context, selector string) error { return nil }

func (p *fakePage) Clear(ctx context.Context, selector string) error {
	p.mu.Lock()
	delete(p.typed, selector)
	p.mu.Unlock()
	return nil
}

func (p *fakePage) SendKeys(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicOnType {
		panic("devtools connection lost")
	}
	p.typed[selector] += text
	p.keystrokes++
	return nil
}

func (p *fakePage) PressEnter(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.enters = append(p.enters, selector)
	p.mu.Unlock()
	p.fireSubmit(selector == twoFactorSelector)
	return nil
}

func (p *fakePage) fireSubmit(code bool) {
	hook := p.onSubmit
	if code {
		hook = p.onCodeSubmit
	}
	if hook != nil {
		hook(p)
	}
}

func (p *fakePage) Evaluate(ctx context.Context, script string, out interface{}) error {
	p.mu.Lock()
	clicked := p.textButton
	p.mu.Unlock()
	if b, ok := out.(*bool); ok {
		*b = clicked
	}
	if clicked {
		p.fireSubmit(false)
	}
	return nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *fakePage) Cookies(ctx context.Context, urls ...string) ([]models.Cookie, error) {
	return nil, nil
}

func (p *fakePage) OnResponse(fn func(interfaces.ResponseEvent)) {}

func (p *fakePage) Close(ctx context.Context) error { return nil }

type fakeTOTP struct {
	code  string
	ok    bool
	calls int
}

func (f *fakeTOTP) Code(ctx context.Context, secret string) (string, bool) {
	f.calls++
	return f.code, f.ok
}
