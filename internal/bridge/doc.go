// Package bridge maps switch commands onto relay pins.
//
// Each Device drives one output through its polarity: on an inverted
// (low-level trigger) relay "on" is logic-low. Commands come from the main
// loop in arrival order; transports enqueue Command values and the loop
// calls Dispatch. A command for a name that is not registered changes
// nothing and is counted as UnknownDevice.
package bridge
