// Package app is the controller's application context.
//
// New builds every component once from a Config and the hardware Backends
// and hands them to each other explicitly; nothing is kept in package
// globals. Run drives the connectivity lifecycle and, once connected, the
// main loop: each iteration drains the event queue in arrival order and
// dispatches every event to the device bridge or the update service. All
// transport goroutines (HTTP, websocket, MQTT, SSDP) only push events.
package app
