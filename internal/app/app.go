package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/grandcat/zeroconf"
	"github.com/muurk/smartrelay/internal/bridge"
	"github.com/muurk/smartrelay/internal/configstore"
	"github.com/muurk/smartrelay/internal/connectivity"
	"github.com/muurk/smartrelay/internal/events"
	"github.com/muurk/smartrelay/internal/hue"
	"github.com/muurk/smartrelay/internal/indicator"
	"github.com/muurk/smartrelay/internal/logging"
	"github.com/muurk/smartrelay/internal/mqttlink"
	"github.com/muurk/smartrelay/internal/ota"
	"github.com/muurk/smartrelay/internal/portal"
	"github.com/muurk/smartrelay/internal/server"
	"github.com/muurk/smartrelay/internal/update"
	"go.uber.org/zap"
)

// errServicesFailed marks a failure to bring up the connected services.
var errServicesFailed = errors.New("connected services failed to start")

// App holds every component of a running controller.
type App struct {
	cfg      Config
	backends Backends

	queue     *events.Queue
	store     *configstore.Store
	indicator *indicator.Indicator
	portal    *portal.Portal
	manager   *connectivity.Manager
	updates   *update.Service
	receiver  *ota.Receiver
	bridge    *bridge.Bridge
	hueAPI    *hue.API

	mu           sync.Mutex
	api          *server.Server
	updateSrv    *server.Server
	ssdp         *hue.SSDP
	mdns         *zeroconf.Server
	mqtt         *mqttlink.Link
	shutdownOnce sync.Once
}

// New wires the application. Nothing is started until Run.
func New(cfg Config, backends Backends) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := backends.validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "smartrelay"
	}

	a := &App{
		cfg:      cfg,
		backends: backends,
		queue:    events.NewQueue(),
	}

	store, err := configstore.Open(cfg.ConfigDir)
	if err != nil {
		return nil, err
	}
	a.store = store

	statusPin, err := backends.GPIO.Output(cfg.Profile.StatusPin, cfg.Profile.StatusPolarity.Level(false))
	if err != nil {
		return nil, fmt.Errorf("failed to claim status pin %d: %w", cfg.Profile.StatusPin, err)
	}
	a.indicator = indicator.New(statusPin, cfg.Profile.StatusPolarity)

	a.bridge, err = bridge.New(backends.GPIO, cfg.Profile.Devices)
	if err != nil {
		return nil, err
	}

	a.updates = update.NewService(func() error {
		return a.backends.Restarter.Restart("firmware update installed")
	})
	if cfg.OTAPassword != "" {
		target := cfg.FirmwarePath
		if target == "" {
			if target, err = ota.DefaultTarget(); err != nil {
				return nil, err
			}
		}
		a.receiver, err = ota.NewReceiver(ota.Config{
			Password: cfg.OTAPassword,
			Target:   target,
		}, update.Deferred(a.queue))
		if err != nil {
			return nil, err
		}
	}

	if cfg.Profile.BridgeEnabled {
		a.hueAPI = hue.NewAPI(hue.Info{Name: cfg.Name, Serial: hardwareSerial()}, a.bridge, a.queue)
	}

	a.portal = portal.New(cfg.Portal)
	a.manager, err = connectivity.NewManager(cfg.Connectivity, connectivity.Deps{
		Store:     a.store,
		Station:   backends.WiFi,
		AP:        backends.WiFi,
		Portal:    a.portal,
		Indicator: a.indicator,
		Restarter: backends.Restarter,
		OnConnected: func(ctx context.Context, cc configstore.ConnectionConfig) error {
			if err := a.startServices(ctx, cc); err != nil {
				return fmt.Errorf("%w: %w", errServicesFailed, err)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Queue returns the main-loop event queue
func (a *App) Queue() *events.Queue { return a.queue }

// Bridge returns the device bridge
func (a *App) Bridge() *bridge.Bridge { return a.bridge }

// Updates returns the update service
func (a *App) Updates() *update.Service { return a.updates }

// State returns the connectivity state
func (a *App) State() connectivity.State { return a.manager.State() }

// PortalAddr returns the provisioning form address while it is open
func (a *App) PortalAddr() string { return a.portal.Addr() }

// APIAddr returns the bridge API address once connected
func (a *App) APIAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.api == nil {
		return ""
	}
	return a.api.Addr()
}

// UpdateAddr returns the update channel address once connected
func (a *App) UpdateAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.updateSrv != nil {
		return a.updateSrv.Addr()
	}
	if a.api != nil && a.receiver != nil {
		return a.api.Addr()
	}
	return ""
}

// Run brings the controller online and runs the main loop until ctx is
// cancelled. A provisioning timeout returns the connectivity error after the
// restart was requested.
func (a *App) Run(ctx context.Context) error {
	defer a.Shutdown()

	logging.Info("Starting controller",
		zap.String("name", a.cfg.Name),
		zap.String("profile", a.cfg.Profile.Name),
		zap.Int("devices", len(a.cfg.Profile.Devices)),
	)

	if err := a.manager.Run(ctx); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil
		}
		if errors.Is(err, errServicesFailed) {
			logging.Error("Restarting after service startup failure", zap.Error(err))
			if rerr := a.backends.Restarter.Restart(errServicesFailed.Error()); rerr != nil {
				logging.Error("Restart failed", zap.Error(rerr))
			}
		}
		return err
	}
	return a.loop(ctx)
}

func (a *App) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.queue.Ready():
			a.queue.Drain(a.dispatch)
		}
	}
}

func (a *App) dispatch(ev events.Event) {
	switch {
	case a.bridge.Dispatch(ev):
	case a.updates.Handle(ev):
	default:
		logging.Warn("Dropping unknown event", zap.String("type", fmt.Sprintf("%T", ev)))
	}
}

// startServices runs once the network is up.
func (a *App) startServices(ctx context.Context, cfg configstore.ConnectionConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	api := chi.NewRouter()
	api.Get("/status", a.handleStatus)
	if a.hueAPI != nil {
		a.hueAPI.Routes(api)
	}

	var updates chi.Router = api
	if a.receiver != nil && !a.cfg.sharedListener() {
		updates = chi.NewRouter()
		updates.Get("/status", a.handleStatus)
	}
	if a.receiver != nil {
		updates.Handle(ota.Path, a.receiver)
	} else {
		logging.Warn("No update password set, update channel disabled")
	}

	a.api = server.New(server.Config{Name: "api", Host: a.cfg.HTTPHost, Port: a.cfg.HTTPPort}, api)
	if err := a.api.Start(); err != nil {
		a.api = nil
		return err
	}
	if updates != api {
		a.updateSrv = server.New(server.Config{Name: "update", Host: a.cfg.HTTPHost, Port: a.cfg.UpdatePort}, updates)
		if err := a.updateSrv.Start(); err != nil {
			a.updateSrv = nil
			return err
		}
	}

	if a.hueAPI != nil && a.cfg.Discovery {
		a.startDiscovery()
	}

	if a.cfg.Profile.MQTTEnabled {
		link := mqttlink.New(mqttlink.Config{
			BrokerURL: cfg.BrokerURL(),
			ClientID:  a.cfg.Name,
			Prefix:    a.cfg.MQTTPrefix,
		}, a.deviceNames(), a.queue)
		if err := link.Connect(); err != nil {
			logging.Error("MQTT unavailable", zap.Error(err))
		} else {
			a.mqtt = link
			a.bridge.Subscribe(link)
		}
	}

	logging.Info("Services started", zap.String("api", a.api.Addr()))
	return nil
}

func (a *App) startDiscovery() {
	_, port, _ := net.SplitHostPort(a.api.Addr())
	host := a.cfg.AdvertiseHost
	if host == "" {
		host = outboundIP()
	}
	location := "http://" + net.JoinHostPort(host, port) + "/description.xml"

	ssdp := hue.NewSSDP(location, a.hueAPI.UDN())
	if err := ssdp.Start(); err != nil {
		logging.Warn("SSDP discovery unavailable", zap.Error(err))
	} else {
		a.ssdp = ssdp
	}

	p, _ := strconv.Atoi(port)
	mdns, err := hue.Advertise(a.cfg.Name, p, len(a.cfg.Profile.Devices))
	if err != nil {
		logging.Warn("mDNS advertisement unavailable", zap.Error(err))
		return
	}
	a.mdns = mdns
}

func (a *App) deviceNames() []string {
	names := make([]string, len(a.cfg.Profile.Devices))
	for i, d := range a.cfg.Profile.Devices {
		names[i] = d.Name
	}
	return names
}

// Shutdown stops every started service and releases the pins. It is safe
// to call more than once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		a.mu.Lock()
		defer a.mu.Unlock()

		if a.mqtt != nil {
			a.mqtt.Close()
		}
		if a.mdns != nil {
			a.mdns.Shutdown()
		}
		if a.ssdp != nil {
			_ = a.ssdp.Stop()
		}
		if a.updateSrv != nil {
			_ = a.updateSrv.Shutdown(ctx)
		}
		if a.api != nil {
			_ = a.api.Shutdown(ctx)
		}
		_ = a.portal.Stop(ctx)

		a.indicator.SetMode(indicator.ModeOff)
		if err := a.backends.GPIO.Close(); err != nil {
			logging.Warn("Failed to release GPIO", zap.Error(err))
		}
		logging.Info("Controller stopped")
	})
}

// outboundIP returns the address used for the default route, falling back
// to loopback.
func outboundIP() string {
	conn, err := net.Dial("udp4", net.JoinHostPort(hue.SSDPGroup, strconv.Itoa(hue.SSDPPort)))
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// hardwareSerial returns the first interface MAC as 12 hex digits, or ""
// to let the API pick a random one.
func hardwareSerial() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != 6 {
			continue
		}
		return fmt.Sprintf("%x", []byte(iface.HardwareAddr))
	}
	return ""
}
