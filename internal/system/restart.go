package system

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
)

// ExitCode is used by ModeExit and as the fallback when a restart fails.
const ExitCode = 3

// Mode selects how Restart restarts the controller.
type Mode int

const (
	ModeExec Mode = iota
	ModeReboot
	ModeExit
)

// String returns the flag spelling of the mode
func (m Mode) String() string {
	switch m {
	case ModeExec:
		return "exec"
	case ModeReboot:
		return "reboot"
	case ModeExit:
		return "exit"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "exec", "reboot" or "exit"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exec", "":
		return ModeExec, nil
	case "reboot":
		return ModeReboot, nil
	case "exit":
		return ModeExit, nil
	}
	return 0, fmt.Errorf("unknown restart mode %q (want exec, reboot or exit)", s)
}

// Restarter implements the device restart.
type Restarter struct {
	mode Mode

	mu    sync.Mutex
	hooks []func()

	execSelf func() error
	reboot   func() error
	exit     func(code int)
}

// NewRestarter creates a restarter for mode
func NewRestarter(mode Mode) *Restarter {
	return &Restarter{
		mode:     mode,
		execSelf: execSelf,
		reboot:   reboot,
		exit:     os.Exit,
	}
}

// Mode returns the configured mode
func (r *Restarter) Mode() Mode {
	return r.mode
}

// BeforeRestart registers fn to run before the process is replaced. Hooks
// run in reverse registration order.
func (r *Restarter) BeforeRestart(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

// Restart runs the hooks and restarts. It only returns if the selected mode
// failed and the exit fallback was replaced (tests).
func (r *Restarter) Restart(reason string) error {
	logging.Warn("Restarting",
		zap.String("mode", r.mode.String()),
		zap.String("reason", reason),
	)

	r.mu.Lock()
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	logging.Sync()

	var err error
	switch r.mode {
	case ModeExec:
		err = r.execSelf()
	case ModeReboot:
		err = r.reboot()
	default:
		r.exit(ExitCode)
		return nil
	}

	logging.Error("Restart failed, exiting instead", zap.Error(err))
	logging.Sync()
	r.exit(ExitCode)
	return fmt.Errorf("restart (%s) failed: %w", r.mode, err)
}
