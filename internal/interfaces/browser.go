package interfaces

import (
	"context"

	"github.com/ternarybob/sellersync/internal/models"
)

// BrowserConnector attaches to a running profile via its remote debugging port
type BrowserConnector interface {
	Connect(ctx context.Context, handle models.ProfileHandle) (BrowserSession, error)
}

// BrowserSession is an attachment to one remote browser.
// Disconnect releases the attachment without closing the remote browser.
type BrowserSession interface {
	// FirstPage returns an existing page target, opening one if none exist
	FirstPage(ctx context.Context) (Page, error)
	// NewPage opens a fresh page target
	NewPage(ctx context.Context) (Page, error)
	SetWindowBounds(ctx context.Context, bounds models.WindowBounds) error
	Disconnect() error
}

// ResponseEvent is a network observation delivered to OnResponse observers
type ResponseEvent struct {
	URL          string
	Failed       bool
	ErrorText    string
	MainDocument bool
}

// Page is the set of page operations the automation uses
type Page interface {
	// Navigate loads url and waits for the load to complete or ctx to expire
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	// WaitVisible blocks until selector is visible or ctx expires
	WaitVisible(ctx context.Context, selector string) error
	Exists(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string) error
	Focus(ctx context.Context, selector string) error
	Clear(ctx context.Context, selector string) error
	// SendKeys types text into the focused selector without added delay
	SendKeys(ctx context.Context, selector, text string) error
	PressEnter(ctx context.Context, selector string) error
	// Evaluate runs script in the page and decodes the result into out
	Evaluate(ctx context.Context, script string, out interface{}) error
	HTML(ctx context.Context) (string, error)
	Cookies(ctx context.Context, urls ...string) ([]models.Cookie, error)
	// OnResponse registers an observer; it may be called from another goroutine
	OnResponse(fn func(ResponseEvent))
	Close(ctx context.Context) error
}
