package models

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Cookie is a browser cookie captured from a live session
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"http_only"`
}

// HarvestedSession is the authenticated identity captured from a browser session.
// It is immutable after construction and may be claimed by exactly one consumer.
type HarvestedSession struct {
	profileID   string
	sellerID    string
	oecSellerID string
	cookies     []Cookie
	strategy    string
	capturedAt  time.Time
	claimed     atomic.Bool
}

// NewHarvestedSession builds a session; both identifiers are required
func NewHarvestedSession(profileID, sellerID, oecSellerID string, cookies []Cookie, strategy string) (*HarvestedSession, error) {
	if sellerID == "" || oecSellerID == "" {
		return nil, fmt.Errorf("incomplete session for profile %s: seller_id=%q oec_seller_id=%q", profileID, sellerID, oecSellerID)
	}
	copied := make([]Cookie, len(cookies))
	copy(copied, cookies)
	return &HarvestedSession{
		profileID:   profileID,
		sellerID:    sellerID,
		oecSellerID: oecSellerID,
		cookies:     copied,
		strategy:    strategy,
		capturedAt:  time.Now(),
	}, nil
}

func (s *HarvestedSession) ProfileID() string     { return s.profileID }
func (s *HarvestedSession) SellerID() string      { return s.sellerID }
func (s *HarvestedSession) OECSellerID() string   { return s.oecSellerID }
func (s *HarvestedSession) Strategy() string      { return s.strategy }
func (s *HarvestedSession) CapturedAt() time.Time { return s.capturedAt }

// Cookies returns a copy of the captured cookie set
func (s *HarvestedSession) Cookies() []Cookie {
	out := make([]Cookie, len(s.cookies))
	copy(out, s.cookies)
	return out
}

// CookieHeader renders the cookie set as a Cookie request header value
func (s *HarvestedSession) CookieHeader() string {
	parts := make([]string, 0, len(s.cookies))
	for _, c := range s.cookies {
		if c.Name == "" {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Claim marks the session as consumed. Only the first call succeeds.
func (s *HarvestedSession) Claim() error {
	if !s.claimed.CompareAndSwap(false, true) {
		return fmt.Errorf("profile %s: %w", s.profileID, ErrSessionConsumed)
	}
	return nil
}
