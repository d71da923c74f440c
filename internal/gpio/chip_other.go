//go:build !linux

package gpio

import "fmt"

// ChipDriver is only available on Linux.
type ChipDriver struct{}

// NewChipDriver always fails on non-Linux hosts
func NewChipDriver(chipName string) (*ChipDriver, error) {
	return nil, fmt.Errorf("gpio chip %s: character device GPIO requires linux", chipName)
}

// Output is never reachable on non-Linux hosts
func (d *ChipDriver) Output(line int, initialHigh bool) (Pin, error) {
	return nil, fmt.Errorf("gpio chip driver unavailable")
}

// Close is a no-op
func (d *ChipDriver) Close() error {
	return nil
}
