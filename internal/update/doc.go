// Package update tracks remote firmware update attempts.
//
// A transport (see package ota) reports each attempt through Hooks. The
// Service records progress and outcome; every error kind abandons only the
// current attempt. A completed attempt runs the completion hook, which the
// application wires to a restart into the new image.
//
// Transports run on their own goroutines, so the application hands them
// Deferred(queue) rather than the Service itself and lets the main loop
// apply the queued events with Service.Handle.
package update
