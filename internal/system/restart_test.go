package system

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"exec", ModeExec, false},
		{"", ModeExec, false},
		{"Reboot", ModeReboot, false},
		{" exit ", ModeExit, false},
		{"halt", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestModeString(t *testing.T) {
	for _, m := range []Mode{ModeExec, ModeReboot, ModeExit} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

type recorder struct {
	calls []string
	exits []int
}

func newTestRestarter(mode Mode, execErr, rebootErr error) (*Restarter, *recorder) {
	rec := &recorder{}
	r := NewRestarter(mode)
	r.execSelf = func() error { rec.calls = append(rec.calls, "exec"); return execErr }
	r.reboot = func() error { rec.calls = append(rec.calls, "reboot"); return rebootErr }
	r.exit = func(code int) { rec.calls = append(rec.calls, "exit"); rec.exits = append(rec.exits, code) }
	return r, rec
}

func TestRestartModes(t *testing.T) {
	tests := []struct {
		name      string
		mode      Mode
		execErr   error
		rebootErr error
		wantCalls []string
		wantErr   bool
	}{
		{"exit", ModeExit, nil, nil, []string{"exit"}, false},
		{"exec fails", ModeExec, errors.New("ENOENT"), nil, []string{"exec", "exit"}, true},
		{"reboot fails", ModeReboot, nil, errors.New("EPERM"), []string{"reboot", "exit"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec := newTestRestarter(tt.mode, tt.execErr, tt.rebootErr)
			err := r.Restart("test")

			assert.Equal(t, tt.wantCalls, rec.calls)
			for _, code := range rec.exits {
				assert.Equal(t, ExitCode, code)
			}
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestBeforeRestartHooks(t *testing.T) {
	r, rec := newTestRestarter(ModeExit, nil, nil)

	var order []int
	r.BeforeRestart(func() { order = append(order, 1) })
	r.BeforeRestart(func() { order = append(order, 2) })

	_ = r.Restart("test")
	assert.Equal(t, []int{2, 1}, order)
	assert.Equal(t, []string{"exit"}, rec.calls)

	// Hooks run once.
	_ = r.Restart("again")
	assert.Equal(t, []int{2, 1}, order)
}
