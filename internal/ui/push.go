package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// ProgressFunc receives the bytes sent so far out of total.
type ProgressFunc func(sent, total int64)

type pushProgressMsg struct {
	sent  int64
	total int64
}

type pushDoneMsg struct {
	err error
}

// PushModel renders a firmware upload.
type PushModel struct {
	label     string
	bar       progress.Model
	sent      int64
	total     int64
	started   time.Time
	done      bool
	cancelled bool
	err       error
}

// NewPushModel creates a model for an upload of total bytes
func NewPushModel(label string, total int64) *PushModel {
	return &PushModel{
		label: label,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
		total:   total,
		started: time.Now(),
	}
}

// Init implements tea.Model
func (m *PushModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *PushModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}
	case pushProgressMsg:
		m.sent = msg.sent
		if msg.total > 0 {
			m.total = msg.total
		}
	case pushDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

// Percent returns the fraction sent, between 0 and 1
func (m *PushModel) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.sent) / float64(m.total)
	if p > 1 {
		return 1
	}
	return p
}

// View implements tea.Model
func (m *PushModel) View() string {
	if m.done {
		return ""
	}
	note := "waiting for device"
	if m.sent > 0 {
		note = fmt.Sprintf("%s / %s", formatBytes(m.sent), formatBytes(m.total))
	}
	if m.sent >= m.total && m.total > 0 {
		note = "installing"
	}
	return fmt.Sprintf("%s\n  %s  %s\n",
		ProgressLabelStyle.Render(m.label),
		m.bar.ViewAs(m.Percent()),
		ProgressNoteStyle.Render(note),
	)
}

// RunPush runs op while showing its progress. op must report progress
// through the callback it is given. Without a terminal, progress is
// written as plain lines every ten percent. Ctrl+C cancels the context
// passed to op.
func RunPush(ctx context.Context, label string, total int64, op func(ctx context.Context, progress ProgressFunc) error) error {
	if !IsInteractive() {
		return runPushPlain(ctx, os.Stdout, label, op)
	}

	m := NewPushModel(label, total)

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m, tea.WithOutput(os.Stdout), tea.WithContext(ctx))

	go func() {
		err := op(opCtx, func(sent, total int64) {
			p.Send(pushProgressMsg{sent: sent, total: total})
		})
		p.Send(pushDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("progress display: %w", err)
	}
	if m.cancelled {
		cancel()
		return context.Canceled
	}
	return m.err
}

func runPushPlain(ctx context.Context, w io.Writer, label string, op func(ctx context.Context, progress ProgressFunc) error) error {
	_, _ = fmt.Fprintln(w, label)
	last := -1
	return op(ctx, func(sent, total int64) {
		if total <= 0 {
			return
		}
		pct := int(sent * 100 / total)
		if last >= 0 && pct/10 == last/10 {
			return
		}
		last = pct
		_, _ = fmt.Fprintf(w, "  %3d%%  %s / %s\n", pct, formatBytes(sent), formatBytes(total))
	})
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMG"[exp])
}
