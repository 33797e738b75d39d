package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

var (
	errConflict  = fmt.Errorf("%w: status 409", models.ErrControlPlaneConflict)
	errDenied    = fmt.Errorf("%w: status 400", models.ErrControlPlaneDenied)
	errTransient = fmt.Errorf("%w: status 500", models.ErrControlPlaneTransient)
)

// fakeController tracks how many profiles are running at once
type fakeController struct {
	mu sync.Mutex

	// startErrs is consumed one error per Start call for a profile; nil entries succeed
	startErrs map[string][]error

	starts   map[string]int
	stops    map[string]int
	statuses map[string]int
	running  map[string]bool
	active   int
	peak     int
	startAt  map[string]time.Time
}

func newFakeController() *fakeController {
	return &fakeController{
		startErrs: map[string][]error{},
		starts:    map[string]int{},
		stops:     map[string]int{},
		statuses:  map[string]int{},
		running:   map[string]bool{},
		startAt:   map[string]time.Time{},
	}
}

func (c *fakeController) markRunning(profileID string) {
	if !c.running[profileID] {
		c.running[profileID] = true
		c.active++
		c.peak = max(c.peak, c.active)
	}
}

func (c *fakeController) Start(ctx context.Context, profileID string) (models.ProfileHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.starts[profileID]++
	if _, ok := c.startAt[profileID]; !ok {
		c.startAt[profileID] = time.Now()
	}

	if queue := c.startErrs[profileID]; len(queue) > 0 {
		err := queue[0]
		c.startErrs[profileID] = queue[1:]
		if err != nil {
			if errors.Is(err, models.ErrControlPlaneConflict) {
				c.markRunning(profileID)
			}
			return models.ProfileHandle{}, err
		}
	}

	c.markRunning(profileID)
	return models.ProfileHandle{ProfileID: profileID, DebugPort: 9300}, nil
}

func (c *fakeController) Stop(ctx context.Context, profileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops[profileID]++
	if c.running[profileID] {
		c.running[profileID] = false
		c.active--
	}
}

func (c *fakeController) Status(ctx context.Context, profileID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[profileID]++
	return 9222, nil
}

func (c *fakeController) List(ctx context.Context) ([]models.ProfileDescriptor, error) {
	return nil, nil
}

func (c *fakeController) counts(profileID string) (starts, stops, statuses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts[profileID], c.stops[profileID], c.statuses[profileID]
}

type fakeExtractor struct {
	mu      sync.Mutex
	hold    time.Duration
	errs    map[string]error
	handles map[string]models.ProfileHandle
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{errs: map[string]error{}, handles: map[string]models.ProfileHandle{}}
}

func (e *fakeExtractor) Extract(ctx context.Context, handle models.ProfileHandle) (*models.HarvestedSession, error) {
	e.mu.Lock()
	e.handles[handle.ProfileID] = handle
	err := e.errs[handle.ProfileID]
	e.mu.Unlock()

	if e.hold > 0 {
		time.Sleep(e.hold)
	}
	if err != nil {
		return nil, err
	}
	return models.NewHarvestedSession(handle.ProfileID, "s-"+handle.ProfileID, "o-"+handle.ProfileID, nil, "network")
}

type fakeFetcher struct {
	panicFor string
}

func (f *fakeFetcher) Fetch(ctx context.Context, session *models.HarvestedSession) (*models.FinanceReport, error) {
	if err := session.Claim(); err != nil {
		return nil, err
	}
	if session.ProfileID() == f.panicFor {
		panic("nil map write")
	}
	return &models.FinanceReport{ProfileID: session.ProfileID(), SellerID: session.SellerID(), OnHold: "$1.00"}, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (r *recordingEvents) Subscribe(interfaces.EventType, interfaces.EventHandler) error   { return nil }
func (r *recordingEvents) Unsubscribe(interfaces.EventType, interfaces.EventHandler) error { return nil }
func (r *recordingEvents) Close() error                                                    { return nil }

func (r *recordingEvents) Publish(ctx context.Context, event interfaces.Event) error {
	return r.PublishSync(ctx, event)
}

func (r *recordingEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) progress() []models.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Progress
	for _, e := range r.events {
		if p, ok := e.Payload.(models.Progress); ok {
			out = append(out, p)
		}
	}
	return out
}
