// Package slots assigns screen positions to concurrently visible login windows.
package slots

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/models"
)

// MaxSupportedSlots is the capacity of the backing bitset
const MaxSupportedSlots = 64

// Allocator hands out the lowest free slot index in [0, maxSlots).
//
// When every slot is held, Acquire returns an overflow handle for slot 0
// that does not own the slot. Two windows may then share slot 0 geometry.
// This only affects layout, never which profile a login drives.
type Allocator struct {
	mu       sync.Mutex
	used     uint64
	maxSlots int
	layout   common.WindowsConfig
	logger   arbor.ILogger
}

// Slot is a scoped handle; Release is safe to call more than once
type Slot struct {
	index    int
	overflow bool
	once     sync.Once
	owner    *Allocator
}

// NewAllocator creates an allocator using the [windows] layout
func NewAllocator(layout common.WindowsConfig, logger arbor.ILogger) (*Allocator, error) {
	if layout.MaxSlots <= 0 || layout.MaxSlots > MaxSupportedSlots {
		return nil, fmt.Errorf("max_slots must be in [1, %d], got: %d", MaxSupportedSlots, layout.MaxSlots)
	}
	if layout.Columns <= 0 {
		layout.Columns = 1
	}
	return &Allocator{
		maxSlots: layout.MaxSlots,
		layout:   layout,
		logger:   logger,
	}, nil
}

// MaxSlots returns the number of exclusive slots
func (a *Allocator) MaxSlots() int {
	return a.maxSlots
}

// Acquire claims the lowest free slot
func (a *Allocator) Acquire() *Slot {
	a.mu.Lock()
	defer a.mu.Unlock()

	free := ^a.used
	if a.maxSlots < MaxSupportedSlots {
		free &= (uint64(1) << a.maxSlots) - 1
	}

	if free == 0 {
		a.logger.Warn().
			Int("max_slots", a.maxSlots).
			Msg("All window slots in use, sharing slot 0")
		return &Slot{index: 0, overflow: true, owner: a}
	}

	index := bits.TrailingZeros64(free)
	a.used |= uint64(1) << index
	return &Slot{index: index, owner: a}
}

// Release frees a slot. Releasing an unheld or out-of-range slot is a no-op.
func (a *Allocator) Release(index int) {
	if index < 0 || index >= a.maxSlots {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used &^= uint64(1) << index
}

// InUse returns the held slot indexes in ascending order
func (a *Allocator) InUse() []int {
	a.mu.Lock()
	used := a.used
	a.mu.Unlock()

	var held []int
	for used != 0 {
		index := bits.TrailingZeros64(used)
		held = append(held, index)
		used &^= uint64(1) << index
	}
	return held
}

// Bounds computes the window geometry for a slot on the configured grid
func (a *Allocator) Bounds(index int) models.WindowBounds {
	col := index % a.layout.Columns
	row := index / a.layout.Columns
	return models.WindowBounds{
		Left:   a.layout.Left + col*(a.layout.Width+a.layout.Gap),
		Top:    a.layout.Top + row*(a.layout.Height+a.layout.Gap),
		Width:  a.layout.Width,
		Height: a.layout.Height,
	}
}

// Index returns the slot index
func (s *Slot) Index() int {
	return s.index
}

// Overflow reports whether this handle shares slot 0 without owning it
func (s *Slot) Overflow() bool {
	return s.overflow
}

// Bounds returns the geometry for this slot
func (s *Slot) Bounds() models.WindowBounds {
	return s.owner.Bounds(s.index)
}

// Release returns the slot to the allocator; overflow handles release nothing
func (s *Slot) Release() {
	s.once.Do(func() {
		if !s.overflow {
			s.owner.Release(s.index)
		}
	})
}
