//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	gpiod "github.com/warthog618/go-gpiocdev"
)

const consumerName = "smartrelay"

// ChipDriver claims output lines on a Linux GPIO character device.
type ChipDriver struct {
	mu    sync.Mutex
	chip  *gpiod.Chip
	lines map[int]*gpiod.Line
}

// NewChipDriver opens the named GPIO chip (e.g. "gpiochip0")
func NewChipDriver(chipName string) (*ChipDriver, error) {
	chip, err := gpiod.NewChip(chipName, gpiod.WithConsumer(consumerName))
	if err != nil {
		return nil, fmt.Errorf("failed to open chip %s: %w", chipName, err)
	}
	return &ChipDriver{
		chip:  chip,
		lines: make(map[int]*gpiod.Line),
	}, nil
}

// Output requests a line as output with the initial level applied atomically
// with the request.
func (d *ChipDriver) Output(line int, initialHigh bool) (Pin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.chip == nil {
		return nil, fmt.Errorf("chip not opened")
	}
	if _, exists := d.lines[line]; exists {
		return nil, fmt.Errorf("line %d already claimed", line)
	}

	l, err := d.chip.RequestLine(line, gpiod.AsOutput(levelValue(initialHigh)))
	if err != nil {
		return nil, fmt.Errorf("failed to request output line %d: %w", line, err)
	}
	d.lines[line] = l

	pin := &chipPin{line: l}
	pin.level.Store(initialHigh)
	return pin, nil
}

// Close releases every line and the chip
func (d *ChipDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for offset, l := range d.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", offset, err))
		}
	}
	d.lines = make(map[int]*gpiod.Line)

	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		d.chip = nil
	}
	return errors.Join(errs...)
}

type chipPin struct {
	line  *gpiod.Line
	level atomic.Bool
}

func (p *chipPin) Set(high bool) error {
	if err := p.line.SetValue(levelValue(high)); err != nil {
		return fmt.Errorf("failed to set line %d: %w", p.line.Offset(), err)
	}
	p.level.Store(high)
	return nil
}

func (p *chipPin) Get() bool {
	return p.level.Load()
}

func (p *chipPin) Toggle() error {
	return p.Set(!p.level.Load())
}

func levelValue(high bool) int {
	if high {
		return 1
	}
	return 0
}
