package app

import (
	"net/http"
	"time"

	"github.com/muurk/smartrelay/internal/server"
	"github.com/muurk/smartrelay/internal/update"
	"github.com/muurk/smartrelay/internal/version"
)

// DeviceStatus is one switch in the status report.
type DeviceStatus struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Pin      int    `json:"pin"`
	Polarity string `json:"polarity"`
	On       bool   `json:"on"`
	Value    uint8  `json:"value"`
}

// Status is served as JSON on /status.
type Status struct {
	Name            string         `json:"name"`
	Version         string         `json:"version"`
	Profile         string         `json:"profile"`
	State           string         `json:"state"`
	Devices         []DeviceStatus `json:"devices"`
	UnknownCommands int            `json:"unknown_commands"`
	Update          update.Status  `json:"update"`
	UpdatesEnabled  bool           `json:"updates_enabled"`
	MQTTEnabled     bool           `json:"mqtt_enabled"`
	BridgeEnabled   bool           `json:"bridge_enabled"`
	Time            time.Time      `json:"time"`
}

// Status returns a snapshot of the controller
func (a *App) Status() Status {
	devices := a.bridge.Devices()
	out := make([]DeviceStatus, len(devices))
	for i, d := range devices {
		out[i] = DeviceStatus{
			ID:       d.ID,
			Name:     d.Name,
			Pin:      d.Pin,
			Polarity: d.Polarity.String(),
			On:       d.On,
			Value:    d.Value,
		}
	}

	return Status{
		Name:            a.cfg.Name,
		Version:         version.Version,
		Profile:         a.cfg.Profile.Name,
		State:           a.manager.State().String(),
		Devices:         out,
		UnknownCommands: a.bridge.UnknownCount(),
		Update:          a.updates.Status(),
		UpdatesEnabled:  a.receiver != nil,
		MQTTEnabled:     a.cfg.Profile.MQTTEnabled,
		BridgeEnabled:   a.cfg.Profile.BridgeEnabled,
		Time:            time.Now(),
	}
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, a.Status())
}
