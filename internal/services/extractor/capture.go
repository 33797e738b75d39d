package extractor

import (
	"net/url"
	"sync"

	"github.com/ternarybob/sellersync/internal/models"
)

// identifiers is a (possibly partial) pair of seller identifiers
type identifiers struct {
	SellerID    string `json:"seller_id"`
	OECSellerID string `json:"oec_seller_id"`
	source      string
}

func (ids identifiers) complete() bool {
	return ids.SellerID != "" && ids.OECSellerID != ""
}

func (ids identifiers) empty() bool {
	return ids.SellerID == "" && ids.OECSellerID == ""
}

// fromURL reads both identifiers from raw's query string
func fromURL(raw, sellerParam, oecParam string) identifiers {
	u, err := url.Parse(raw)
	if err != nil {
		return identifiers{}
	}
	q := u.Query()
	return identifiers{
		SellerID:    q.Get(sellerParam),
		OECSellerID: q.Get(oecParam),
	}
}

// capture collects observations from response events, which arrive on the
// browser's event goroutine
type capture struct {
	sellerParam string
	oecParam    string

	mu      sync.Mutex
	partial identifiers
	fault   *models.NetworkFaultError

	found     chan identifiers
	faulted   chan *models.NetworkFaultError
	foundOnce sync.Once
	faultOnce sync.Once
}

func newCapture(sellerParam, oecParam string) *capture {
	return &capture{
		sellerParam: sellerParam,
		oecParam:    oecParam,
		found:       make(chan identifiers, 1),
		faulted:     make(chan *models.NetworkFaultError, 1),
	}
}

// observeURL inspects a URL seen by any watcher. Both identifiers must come
// from the same URL to count as a capture; single ones are kept as partials.
func (c *capture) observeURL(raw, source string) (identifiers, bool) {
	ids := fromURL(raw, c.sellerParam, c.oecParam)
	ids.source = source
	if ids.empty() {
		return ids, false
	}
	c.note(ids)
	if !ids.complete() {
		return ids, false
	}
	if source == strategyNetwork {
		c.foundOnce.Do(func() { c.found <- ids })
	}
	return ids, true
}

// note records whatever part of ids is present
func (c *capture) note(ids identifiers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ids.SellerID != "" {
		c.partial.SellerID = ids.SellerID
	}
	if ids.OECSellerID != "" {
		c.partial.OECSellerID = ids.OECSellerID
	}
}

func (c *capture) observeFault(fault *models.NetworkFaultError) {
	if fault == nil {
		return
	}
	c.mu.Lock()
	if c.fault == nil {
		c.fault = fault
	}
	c.mu.Unlock()
	c.faultOnce.Do(func() { c.faulted <- fault })
}

func (c *capture) snapshot() (identifiers, *models.NetworkFaultError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partial, c.fault
}
