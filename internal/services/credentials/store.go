// Package credentials holds login credentials in memory for the life of the process.
package credentials

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

// snapshot is immutable once published
type snapshot struct {
	byID   map[string]*models.Credentials
	byName map[string]*models.Credentials // lowercased profile name
	order  []string
}

// Store is a volatile credential mapping replaced wholesale on each load.
// Readers never block; ReplaceAll swaps in a new snapshot atomically.
type Store struct {
	current atomic.Pointer[snapshot]
	logger  arbor.ILogger
}

var _ interfaces.CredentialStore = (*Store)(nil)

func NewStore(logger arbor.ILogger) *Store {
	s := &Store{logger: logger}
	s.current.Store(&snapshot{
		byID:   map[string]*models.Credentials{},
		byName: map[string]*models.Credentials{},
	})
	return s
}

// ReplaceAll discards every stored credential and loads creds.
// Entries without a profile ID are ignored; a repeated ID keeps the last row.
func (s *Store) ReplaceAll(creds []models.Credentials) int {
	next := &snapshot{
		byID:   make(map[string]*models.Credentials, len(creds)),
		byName: make(map[string]*models.Credentials, len(creds)),
	}

	for i := range creds {
		c := creds[i]
		c.ProfileID = strings.TrimSpace(c.ProfileID)
		if c.ProfileID == "" {
			continue
		}
		if _, dup := next.byID[c.ProfileID]; dup {
			s.logger.Warn().Str("profile_id", c.ProfileID).Msg("Duplicate credentials row, keeping the last one")
		} else {
			next.order = append(next.order, c.ProfileID)
		}
		next.byID[c.ProfileID] = &c
	}

	for _, id := range next.order {
		c := next.byID[id]
		if name := strings.ToLower(strings.TrimSpace(c.ProfileName)); name != "" {
			next.byName[name] = c
		}
	}

	s.current.Store(next)

	s.logger.Info().Int("count", len(next.order)).Msg("Credentials loaded")
	return len(next.order)
}

// GetByProfileID returns a copy of the credentials for the exact id, or nil.
// IDs are trimmed when loaded, not when looked up.
func (s *Store) GetByProfileID(profileID string) *models.Credentials {
	return clone(s.current.Load().byID[profileID])
}

// GetByName matches the profile name exactly, ignoring case
func (s *Store) GetByName(name string) *models.Credentials {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil
	}
	return clone(s.current.Load().byName[key])
}

func (s *Store) Count() int {
	return len(s.current.Load().order)
}

// ProfileIDs returns the loaded profile IDs in load order
func (s *Store) ProfileIDs() []string {
	order := s.current.Load().order
	ids := make([]string, len(order))
	copy(ids, order)
	return ids
}

// Summaries returns the secret-free view of every entry, sorted by profile ID
func (s *Store) Summaries() []models.CredentialSummary {
	snap := s.current.Load()
	summaries := make([]models.CredentialSummary, 0, len(snap.order))
	for _, id := range snap.order {
		summaries = append(summaries, snap.byID[id].Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ProfileID < summaries[j].ProfileID
	})
	return summaries
}

func clone(c *models.Credentials) *models.Credentials {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}
