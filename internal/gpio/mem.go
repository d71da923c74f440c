package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Change is one recorded level change on a MemPin.
type Change struct {
	At   time.Time
	High bool
}

// MemPin is an in-memory output used by the simulated backend and in tests.
// Level changes are lock-free so the indicator goroutine can toggle it.
type MemPin struct {
	line  int
	level atomic.Bool

	mu      sync.Mutex
	history []Change
}

// Set drives the pin to the given level
func (p *MemPin) Set(high bool) error {
	p.level.Store(high)
	p.record(high)
	return nil
}

// Get returns the current level
func (p *MemPin) Get() bool {
	return p.level.Load()
}

// Toggle swaps the level atomically
func (p *MemPin) Toggle() error {
	for {
		old := p.level.Load()
		if p.level.CompareAndSwap(old, !old) {
			p.record(!old)
			return nil
		}
	}
}

// Line returns the line number this pin was claimed on
func (p *MemPin) Line() int {
	return p.line
}

// History returns a copy of every recorded change
func (p *MemPin) History() []Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Change, len(p.history))
	copy(out, p.history)
	return out
}

// ChangesSince counts level changes recorded at or after t
func (p *MemPin) ChangesSince(t time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.history {
		if !c.At.Before(t) {
			n++
		}
	}
	return n
}

func (p *MemPin) record(high bool) {
	p.mu.Lock()
	p.history = append(p.history, Change{At: time.Now(), High: high})
	p.mu.Unlock()
}

// MemDriver is a Driver backed by MemPins.
type MemDriver struct {
	mu   sync.Mutex
	pins map[int]*MemPin
}

// NewMemDriver creates an empty in-memory driver
func NewMemDriver() *MemDriver {
	return &MemDriver{pins: make(map[int]*MemPin)}
}

// Output claims a line. Claiming the same line twice is an error, matching
// the character device behaviour.
func (d *MemDriver) Output(line int, initialHigh bool) (Pin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.pins[line]; exists {
		return nil, fmt.Errorf("line %d already claimed", line)
	}
	pin := &MemPin{line: line}
	pin.level.Store(initialHigh)
	d.pins[line] = pin
	return pin, nil
}

// Pin returns a previously claimed pin, or nil
func (d *MemDriver) Pin(line int) *MemPin {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pins[line]
}

// Close releases all pins
func (d *MemDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pins = make(map[int]*MemPin)
	return nil
}
