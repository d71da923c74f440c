package portal

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/miekg/dns"
	"github.com/muurk/smartrelay/internal/configstore"
	"github.com/muurk/smartrelay/internal/logging"
	"github.com/muurk/smartrelay/internal/server"
	"github.com/muurk/smartrelay/internal/wifi"
	"go.uber.org/zap"
)

// Submission is one completed provisioning form.
type Submission struct {
	Credentials wifi.Credentials
	Server      string
	Port        string
}

// Config holds the portal's listen addresses
type Config struct {
	Title    string
	HTTPHost string
	HTTPPort int
	// DNSAddr is the captive DNS listen address; empty disables DNS.
	DNSAddr string
	// APIP is the access point's own address, returned for every DNS query.
	APIP string
}

// DefaultConfig returns the addresses used on the device
func DefaultConfig() Config {
	return Config{
		Title:    "smartrelay setup",
		HTTPPort: 80,
		DNSAddr:  ":53",
		APIP:     "192.168.4.1",
	}
}

// Portal serves the provisioning form while the access point is up.
type Portal struct {
	config      Config
	submissions chan Submission

	mu       sync.Mutex
	defaults configstore.ConnectionConfig
	status   string
	http     *server.Server
	dns      *dns.Server
}

// New creates a portal
func New(config Config) *Portal {
	if config.Title == "" {
		config.Title = DefaultConfig().Title
	}
	return &Portal{
		config:      config,
		submissions: make(chan Submission, 1),
		defaults:    configstore.Defaults(),
	}
}

// Submissions delivers accepted forms. At most one is buffered; further posts
// are refused until it has been taken.
func (p *Portal) Submissions() <-chan Submission {
	return p.submissions
}

// SetStatus shows msg above the form, e.g. the outcome of the last join
func (p *Portal) SetStatus(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = msg
}

// Handler returns the portal's HTTP routes
func (p *Portal) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", p.handleForm)
	r.Post("/save", p.handleSave)
	// Everything else is an OS connectivity probe or a stray URL; send it
	// to the form so the captive sheet opens.
	r.NotFound(p.handleRedirect)
	r.MethodNotAllowed(p.handleRedirect)
	return r
}

// Start opens the HTTP form and the captive DNS. defaults prefill the form.
func (p *Portal) Start(defaults configstore.ConnectionConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.http != nil {
		return fmt.Errorf("portal already started")
	}

	p.defaults = defaults
	p.status = ""

	// Drop a submission left over from a previous run.
	select {
	case <-p.submissions:
	default:
	}

	httpSrv := server.New(server.Config{
		Name: "portal",
		Host: p.config.HTTPHost,
		Port: p.config.HTTPPort,
	}, p.Handler())
	if err := httpSrv.Start(); err != nil {
		return err
	}

	if p.config.DNSAddr != "" {
		ip := net.ParseIP(p.config.APIP).To4()
		if ip == nil {
			_ = httpSrv.Shutdown(context.Background())
			return fmt.Errorf("invalid access point address %q", p.config.APIP)
		}
		dnsSrv, err := startDNS(p.config.DNSAddr, ip)
		if err != nil {
			_ = httpSrv.Shutdown(context.Background())
			return err
		}
		p.dns = dnsSrv
	}

	p.http = httpSrv
	return nil
}

// Addr returns the bound HTTP address, or "" when stopped
func (p *Portal) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.http == nil {
		return ""
	}
	return p.http.Addr()
}

// Stop closes the form and DNS. Stopping a stopped portal is a no-op.
func (p *Portal) Stop(ctx context.Context) error {
	p.mu.Lock()
	httpSrv, dnsSrv := p.http, p.dns
	p.http, p.dns = nil, nil
	p.mu.Unlock()

	var firstErr error
	if dnsSrv != nil {
		if err := dnsSrv.Shutdown(); err != nil {
			firstErr = fmt.Errorf("failed to stop captive DNS: %w", err)
		}
	}
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Portal) page() formPage {
	p.mu.Lock()
	defer p.mu.Unlock()
	page := newFormPage(p.config.Title, p.defaults)
	page.Status = p.status
	return page
}

func (p *Portal) render(w http.ResponseWriter, status int, page formPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, page); err != nil {
		logging.Warn("Failed to render portal page", zap.Error(err))
	}
}

func (p *Portal) handleForm(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusOK, p.page())
}

func (p *Portal) handleSave(w http.ResponseWriter, r *http.Request) {
	page := p.page()

	sub, err := parseSubmission(r)
	if err != nil {
		page.SSID = sub.Credentials.SSID
		if sub.Server != "" {
			page.Server = sub.Server
		}
		if sub.Port != "" {
			page.Port = sub.Port
		}
		page.Error = err.Error()
		p.render(w, http.StatusBadRequest, page)
		return
	}

	select {
	case p.submissions <- sub:
	default:
		page.Error = "A previous submission is still being applied, try again shortly."
		p.render(w, http.StatusServiceUnavailable, page)
		return
	}

	logging.Info("Provisioning form submitted",
		zap.String("ssid", sub.Credentials.SSID),
		zap.String("mqtt_server", sub.Server),
		zap.String("mqtt_port", sub.Port),
	)

	page.Saved = true
	page.SSID = sub.Credentials.SSID
	p.render(w, http.StatusOK, page)
}

func (p *Portal) handleRedirect(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if p.config.APIP != "" {
		target = "http://" + p.config.APIP + "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}
