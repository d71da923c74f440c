// Package system restarts the controller.
//
// Three modes are supported. ModeExec replaces the running process with a
// fresh copy of the binary on disk, which picks up an installed update.
// ModeReboot reboots the host (Linux only, needs CAP_SYS_BOOT). ModeExit
// exits with ExitCode and leaves the restart to a supervisor such as systemd.
//
// If the requested mode cannot be carried out the process exits with
// ExitCode instead of lingering in a half-restarted state.
package system
