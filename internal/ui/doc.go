// Package ui provides terminal output for the smartrelay-cfg CLI.
//
// Components are rendered with Lipgloss and follow a "run once and exit"
// pattern:
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success, warning and failure boxes with details and
//     troubleshooting tips
//   - Switch table: the relays of a device and their state
//   - Push progress: a Bubble Tea progress bar for firmware uploads
//
// Example:
//
//	ui.PrintHeader("Firmware push", "smartrelay-cfg push",
//	    ui.Param{Key: "Device", Value: addr},
//	    ui.Param{Key: "Image", Value: path},
//	)
//	err := ui.RunPush(ctx, "Uploading firmware...", size,
//	    func(ctx context.Context, progress ui.ProgressFunc) error {
//	        return pusher.Push(ctx, image, ota.Progress(progress))
//	    })
//
// Output falls back to plain lines when stdout is not a terminal. Logging
// stays silent unless SMARTRELAY_LOG_LEVEL is set, so the curated output is
// not interleaved with log lines.
package ui
