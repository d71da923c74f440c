// Package gpio abstracts the digital outputs the controller drives: the status
// LED and the relay pins.
//
// Two drivers are provided:
//   - MemDriver keeps levels in memory and records every change. The simulated
//     backend and all tests use it.
//   - ChipDriver claims lines on a Linux GPIO character device through
//     go-gpiocdev.
//
// Polarity converts a logical "active" state into a physical level so callers
// never hard-code whether a relay or LED is low-level triggered.
package gpio
