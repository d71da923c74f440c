// Package logging provides structured logging for the smartrelay controller.
//
// This package wraps a zap logger with convenience functions for the common
// logging patterns used by the controller: connectivity transitions, switch
// commands, firmware update events and HTTP requests.
//
// # Log Levels
//
//   - Debug: Detailed debugging info (HTTP requests, SSDP queries, pin toggles)
//   - Info: Normal operations (state changes, commands, update progress)
//   - Warn: Non-fatal issues (config parse failures, failed joins, MQTT drops)
//   - Error: Failures that abandon an operation (update errors, server errors)
//
// # Structured Logging
//
//	logging.Info("Joined network",
//	    zap.String("ssid", "home"),
//	    zap.Duration("took", 3*time.Second),
//	)
//
// Domain helpers:
//
//	logging.LogTransition("Connecting", "ProvisioningAP")
//	logging.LogCommand("hue", "lamp", true, "applied")
//	logging.LogUpdate("progress", zap.Int("percent", 40))
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and SMARTRELAY_LOG_LEVEL is unset the package falls
// back to a no-op logger.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
