package extractor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

type fakePage struct {
	mu sync.Mutex

	// navigate runs inside Navigate; nil waits for ctx like a page that never settles
	navigate func(p *fakePage, ctx context.Context) error

	location string
	state    identifiers
	cookies  []models.Cookie

	listener    func(interfaces.ResponseEvent)
	closed      atomic.Bool
	evaluations atomic.Int32
}

var _ interfaces.Page = (*fakePage)(nil)

func (p *fakePage) emit(ev interfaces.ResponseEvent) {
	p.mu.Lock()
	fn := p.listener
	p.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (p *fakePage) setLocation(location string) {
	p.mu.Lock()
	p.location = location
	p.mu.Unlock()
}

func (p *fakePage) setState(ids identifiers) {
	p.mu.Lock()
	p.state = ids
	p.mu.Unlock()
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.navigate != nil {
		return p.navigate(p, ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string, out interface{}) error {
	p.evaluations.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if ids, ok := out.(*identifiers); ok {
		*ids = p.state
		return nil
	}
	return errors.New("unexpected evaluation target")
}

func (p *fakePage) Cookies(ctx context.Context, urls ...string) ([]models.Cookie, error) {
	return p.cookies, nil
}

func (p *fakePage) OnResponse(fn func(interfaces.ResponseEvent)) {
	p.mu.Lock()
	p.listener = fn
	p.mu.Unlock()
}

func (p *fakePage) Close(ctx context.Context) error {
	p.closed.Store(true)
	return nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error { return nil }
func (p *fakePage) Exists(ctx context.Context, selector string) (bool, error) { return false, nil }
func (p *fakePage) Click(ctx context.Context, selector string) error { return nil }
func (p *fakePage) Focus(ctx context.Context, selector string) error { return nil }
func (p *fakePage) Clear(ctx context.Context, selector string) error { return nil }
func (p *fakePage) SendKeys(ctx context.Context, selector, text string) error { return nil }
func (p *fakePage) PressEnter(ctx context.Context, selector string) error { return nil }
func (p *fakePage) HTML(ctx context.Context) (string, error) { return "", nil }

type fakeSession struct {
	page         *fakePage
	disconnected atomic.Int32
}

func (s *fakeSession) FirstPage(ctx context.Context) (interfaces.Page, error) { return s.page, nil }
func (s *fakeSession) NewPage(ctx context.Context) (interfaces.Page, error)   { return s.page, nil }
func (s *fakeSession) SetWindowBounds(ctx context.Context, b models.WindowBounds) error {
	return nil
}

func (s *fakeSession) Disconnect() error {
	s.disconnected.Add(1)
	return nil
}

type fakeConnector struct {
	session *fakeSession
	err     error
}

func (c *fakeConnector) Connect(ctx context.Context, handle models.ProfileHandle) (interfaces.BrowserSession, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}
