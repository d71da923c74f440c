// Package events carries work from transport goroutines to the main loop.
//
// HTTP handlers, MQTT callbacks and the update receiver never touch
// application state. They push an event and return; the main loop drains the
// queue once per iteration so every mutation happens on one goroutine in
// arrival order.
package events
