package connectivity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/muurk/smartrelay/internal/configstore"
	"github.com/muurk/smartrelay/internal/indicator"
	"github.com/muurk/smartrelay/internal/logging"
	"github.com/muurk/smartrelay/internal/portal"
	"github.com/muurk/smartrelay/internal/wifi"
	"go.uber.org/zap"
)

// Store loads and saves the connection parameters.
type Store interface {
	Load() configstore.ConnectionConfig
	Save(cfg configstore.ConnectionConfig) error
}

// Indicator shows the current phase on the status pin.
type Indicator interface {
	SetMode(mode indicator.Mode)
}

// Portal is the captive form shown while the access point is up.
type Portal interface {
	Start(defaults configstore.ConnectionConfig) error
	Submissions() <-chan portal.Submission
	SetStatus(msg string)
	Stop(ctx context.Context) error
}

// Restarter restarts the device.
type Restarter interface {
	Restart(reason string) error
}

// Deps are the collaborators the manager drives.
type Deps struct {
	Store     Store
	Station   wifi.Station
	AP        wifi.AccessPoint
	Portal    Portal
	Indicator Indicator
	Restarter Restarter
	// OnConnected starts the connected services. It runs once, after the
	// config has been persisted.
	OnConnected func(ctx context.Context, cfg configstore.ConnectionConfig) error
}

func (d Deps) validate() error {
	switch {
	case d.Store == nil:
		return fmt.Errorf("store is required")
	case d.Station == nil:
		return fmt.Errorf("station is required")
	case d.AP == nil:
		return fmt.Errorf("access point is required")
	case d.Portal == nil:
		return fmt.Errorf("portal is required")
	case d.Indicator == nil:
		return fmt.Errorf("indicator is required")
	case d.Restarter == nil:
		return fmt.Errorf("restarter is required")
	}
	return nil
}

// Manager owns the connectivity state machine:
//
//	Idle -> Connecting -> Connected
//	            |
//	            v
//	      ProvisioningAP -> Connected
//	            |
//	            v
//	      RestartPending
type Manager struct {
	opts Options
	deps Deps

	settings *configstore.Settings

	mu          sync.Mutex
	state       State
	session     *ProvisioningSession
	transitions []State
	ran         bool
}

// NewManager validates opts and deps and returns a manager in Idle
func NewManager(opts Options, deps Deps) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Manager{opts: opts, deps: deps, state: Idle}, nil
}

// State returns the current state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns a copy of the provisioning session, or nil outside
// ProvisioningAP
func (m *Manager) Session() *ProvisioningSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// Transitions returns every state entered so far, in order
func (m *Manager) Transitions() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// Settings returns the working config. It is nil before Run.
func (m *Manager) Settings() *configstore.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Run drives the lifecycle until the device is connected, the provisioning
// window ends, or ctx is cancelled. It returns nil once Connected, a
// ProvisionTimeout *Error after requesting a restart, and ctx.Err() on
// cancellation. A manager runs once.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.ran {
		m.mu.Unlock()
		return fmt.Errorf("connectivity manager already ran")
	}
	m.ran = true
	m.mu.Unlock()

	m.enter(Idle)
	settings := configstore.NewSettings(m.deps.Store.Load())
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()

	m.enter(Connecting)
	err := m.connect(ctx)
	if err == nil {
		return m.connected(ctx)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	logging.Warn("Could not join stored network, opening provisioning access point", zap.Error(err))

	m.enter(ProvisioningAP)
	joined, err := m.provision(ctx)
	if joined {
		return m.connected(ctx)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return m.restart(err)
}

// enter switches state and updates the indicator exactly once.
func (m *Manager) enter(s State) {
	m.mu.Lock()
	from := m.state
	m.state = s
	m.transitions = append(m.transitions, s)
	first := len(m.transitions) == 1
	m.mu.Unlock()

	if first {
		logging.Info("Connectivity manager starting", zap.String("state", s.String()))
	} else {
		logging.LogTransition(from.String(), s.String())
	}
	m.deps.Indicator.SetMode(s.IndicatorMode())
}

func (m *Manager) connect(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	if err := m.deps.Station.Join(cctx, nil); err != nil {
		msg := "join with stored credentials failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("no connection within %s", m.opts.ConnectTimeout)
		}
		return &Error{Kind: ConnectTimeout, Message: msg, Err: err}
	}
	return nil
}

// provision runs the access point window. It reports whether a submitted
// network was joined; when it was not, the error says why the window ended.
func (m *Manager) provision(ctx context.Context) (bool, error) {
	if err := m.deps.AP.Start(ctx, m.opts.APSSID, m.opts.APPassword); err != nil {
		return false, &Error{Kind: ProvisionTimeout, Message: "access point failed to start", Err: err}
	}
	defer m.stopAP()

	if err := m.deps.Portal.Start(m.settings.Current()); err != nil {
		return false, &Error{Kind: ProvisionTimeout, Message: "portal failed to start", Err: err}
	}
	defer m.stopPortal()

	now := time.Now()
	session := newSession(m.opts.APSSID, now, m.opts.PortalTimeout)
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	logging.Info("Provisioning access point open",
		zap.String("session", session.ID),
		zap.String("ssid", session.SSID),
		zap.Time("deadline", session.Deadline),
	)

	timer := time.NewTimer(session.Remaining(now))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.clearSession()
			return false, ctx.Err()

		case sub := <-m.deps.Portal.Submissions():
			if m.trySubmission(ctx, sub) {
				m.clearSession()
				return true, nil
			}

		case <-timer.C:
			if m.opts.APClientCheck && m.deps.AP.Clients() > 0 {
				deadline := m.extendSession()
				logging.Info("Station still associated, extending provisioning window",
					zap.String("session", session.ID),
					zap.Time("deadline", deadline),
				)
				timer.Reset(time.Until(deadline))
				continue
			}
			m.clearSession()
			return false, &Error{
				Kind:    ProvisionTimeout,
				Message: fmt.Sprintf("no network joined within %s", m.opts.PortalTimeout),
			}
		}
	}
}

// trySubmission applies submitted parameters and joins the submitted
// network. A failed join leaves the portal open for another attempt.
func (m *Manager) trySubmission(ctx context.Context, sub portal.Submission) bool {
	if err := m.settings.Apply(sub.Server, sub.Port); err != nil {
		logging.Warn("Rejected submitted parameters", zap.Error(err))
		m.deps.Portal.SetStatus("Invalid parameters: " + err.Error())
		return false
	}

	jctx, cancel := context.WithTimeout(ctx, m.opts.SaveConnectTimeout)
	defer cancel()

	creds := sub.Credentials
	if err := m.deps.Station.Join(jctx, &creds); err != nil {
		logging.Warn("Could not join submitted network",
			zap.String("ssid", creds.SSID),
			zap.Error(err),
		)
		m.deps.Portal.SetStatus(fmt.Sprintf("Could not join %q, check the password and try again.", creds.SSID))
		return false
	}
	return true
}

func (m *Manager) extendSession() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Deadline = time.Now().Add(m.opts.PortalTimeout)
	return m.session.Deadline
}

func (m *Manager) clearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}

func (m *Manager) stopPortal() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.deps.Portal.Stop(ctx); err != nil {
		logging.Warn("Failed to stop portal", zap.Error(err))
	}
}

func (m *Manager) stopAP() {
	if err := m.deps.AP.Stop(); err != nil {
		logging.Warn("Failed to stop access point", zap.Error(err))
	}
}

func (m *Manager) connected(ctx context.Context) error {
	m.enter(Connected)

	// A failed write keeps the dirty flag; the values still apply to this run.
	_ = m.settings.Persist(m.deps.Store)

	if m.deps.OnConnected == nil {
		return nil
	}
	if err := m.deps.OnConnected(ctx, m.settings.Current()); err != nil {
		return fmt.Errorf("failed to start connected services: %w", err)
	}
	return nil
}

func (m *Manager) restart(cause error) error {
	m.enter(RestartPending)

	var connErr *Error
	if !errors.As(cause, &connErr) {
		connErr = &Error{Kind: ProvisionTimeout, Message: "provisioning ended", Err: cause}
	}

	logging.Error("Provisioning failed, restarting device", zap.Error(connErr))
	if err := m.deps.Restarter.Restart(connErr.Error()); err != nil {
		logging.Error("Restart request failed", zap.Error(err))
	}
	return connErr
}
