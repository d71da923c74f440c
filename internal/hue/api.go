package hue

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/amimof/huego"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/muurk/smartrelay/internal/bridge"
	"github.com/muurk/smartrelay/internal/events"
	"github.com/muurk/smartrelay/internal/logging"
	"github.com/muurk/smartrelay/internal/server"
	"go.uber.org/zap"
)

// DefaultPort is the port voice-assistant hubs expect a Hue bridge on.
const DefaultPort = 80

// Values reported for every emulated light.
const (
	lightType    = "Dimmable light"
	modelID      = "LWB010"
	manufacturer = "Philips"
)

// Hue API error types.
const (
	errResourceNotAvailable = 3
	errBodyContainsInvalid  = 2
)

// Lights is the read side of the device bridge.
type Lights interface {
	Devices() []bridge.Device
	Device(id int) (bridge.Device, bool)
}

// Info identifies the emulated bridge.
type Info struct {
	Name string
	// Serial is 12 hex digits, usually the MAC address.
	Serial string
}

// API serves the subset of the Hue REST API used for discovery and on/off
// control. Commands are queued, never applied on the HTTP goroutine.
type API struct {
	info   Info
	lights Lights
	queue  *events.Queue
}

// NewAPI creates the API handler state
func NewAPI(info Info, lights Lights, queue *events.Queue) *API {
	if info.Name == "" {
		info.Name = "smartrelay"
	}
	if info.Serial == "" {
		info.Serial = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	return &API{info: info, lights: lights, queue: queue}
}

// Routes mounts the API on r
func (a *API) Routes(r chi.Router) {
	r.Get("/description.xml", a.handleDescription)
	r.Post("/api", a.handleCreateUser)
	r.Route("/api/{user}", func(r chi.Router) {
		r.Get("/", a.handleFullState)
		r.Get("/lights", a.handleLights)
		r.Get("/lights/{id}", a.handleLight)
		r.Put("/lights/{id}/state", a.handleSetState)
	})
}

// Handler returns a router serving only the API
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	a.Routes(r)
	return r
}

type specVersion struct {
	Major int `xml:"major"`
	Minor int `xml:"minor"`
}

type upnpDevice struct {
	DeviceType       string `xml:"deviceType"`
	FriendlyName     string `xml:"friendlyName"`
	Manufacturer     string `xml:"manufacturer"`
	ManufacturerURL  string `xml:"manufacturerURL"`
	ModelDescription string `xml:"modelDescription"`
	ModelName        string `xml:"modelName"`
	ModelNumber      string `xml:"modelNumber"`
	ModelURL         string `xml:"modelURL"`
	SerialNumber     string `xml:"serialNumber"`
	UDN              string `xml:"UDN"`
	PresentationURL  string `xml:"presentationURL"`
}

type upnpRoot struct {
	XMLName     xml.Name    `xml:"urn:schemas-upnp-org:device-1-0 root"`
	SpecVersion specVersion `xml:"specVersion"`
	URLBase     string      `xml:"URLBase"`
	Device      upnpDevice  `xml:"device"`
}

// UDN returns the device's UPnP unique name
func (a *API) UDN() string {
	return "uuid:2f402f80-da50-11e1-9b23-" + a.info.Serial
}

func (a *API) handleDescription(w http.ResponseWriter, r *http.Request) {
	root := upnpRoot{
		SpecVersion: specVersion{Major: 1, Minor: 0},
		URLBase:     "http://" + r.Host + "/",
		Device: upnpDevice{
			DeviceType:       "urn:schemas-upnp-org:device:Basic:1",
			FriendlyName:     fmt.Sprintf("%s (%s)", a.info.Name, r.Host),
			Manufacturer:     "Royal Philips Electronics",
			ManufacturerURL:  "http://www.philips.com",
			ModelDescription: "Philips hue Personal Wireless Lighting",
			ModelName:        "Philips hue bridge 2012",
			ModelNumber:      "929000226503",
			ModelURL:         "http://www.meethue.com",
			SerialNumber:     a.info.Serial,
			UDN:              a.UDN(),
			PresentationURL:  "index.html",
		},
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		logging.Debug("Failed to encode description", zap.Error(err))
	}
}

// handleCreateUser accepts any pairing request.
func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceType string `json:"devicetype"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	username := strings.ReplaceAll(uuid.NewString(), "-", "")
	logging.Info("Hue pairing request", zap.String("devicetype", req.DeviceType))

	server.WriteJSON(w, http.StatusOK, []map[string]interface{}{
		{"success": map[string]string{"username": username}},
	})
}

func (a *API) light(d bridge.Device) huego.Light {
	return huego.Light{
		State: &huego.State{
			On:        d.On,
			Bri:       d.Value,
			Alert:     "none",
			Reachable: true,
		},
		Type:             lightType,
		Name:             d.Name,
		ModelID:          modelID,
		ManufacturerName: manufacturer,
		UniqueID:         a.uniqueID(d.ID),
		SwVersion:        "66012040",
	}
}

// uniqueID follows the "MAC-endpoint" form Hue uses.
func (a *API) uniqueID(id int) string {
	s := a.info.Serial
	var parts []string
	for i := 0; i+2 <= len(s) && len(parts) < 6; i += 2 {
		parts = append(parts, s[i:i+2])
	}
	return fmt.Sprintf("%s-%02x", strings.Join(parts, ":"), id)
}

func (a *API) lightMap() map[string]huego.Light {
	out := make(map[string]huego.Light)
	for _, d := range a.lights.Devices() {
		out[strconv.Itoa(d.ID)] = a.light(d)
	}
	return out
}

func (a *API) handleFullState(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"lights": a.lightMap(),
	})
}

func (a *API) handleLights(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, a.lightMap())
}

func (a *API) lookup(w http.ResponseWriter, r *http.Request) (bridge.Device, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err == nil {
		if d, ok := a.lights.Device(id); ok {
			return d, true
		}
	}
	writeError(w, errResourceNotAvailable, "/lights/"+raw, fmt.Sprintf("resource, /lights/%s, not available", raw))
	return bridge.Device{}, false
}

func (a *API) handleLight(w http.ResponseWriter, r *http.Request) {
	d, ok := a.lookup(w, r)
	if !ok {
		return
	}
	server.WriteJSON(w, http.StatusOK, a.light(d))
}

// stateRequest keeps absent fields distinguishable from false/zero.
type stateRequest struct {
	On  *bool  `json:"on"`
	Bri *uint8 `json:"bri"`
}

func (a *API) handleSetState(w http.ResponseWriter, r *http.Request) {
	d, ok := a.lookup(w, r)
	if !ok {
		return
	}

	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBodyContainsInvalid, "/lights/"+strconv.Itoa(d.ID)+"/state", "body contains invalid json")
		return
	}

	// A brightness-only request turns the light on, as a dimmer would.
	on := d.On
	switch {
	case req.On != nil:
		on = *req.On
	case req.Bri != nil:
		on = *req.Bri > 0
	}

	a.queue.Push(bridge.Command{
		Source: "hue",
		Device: d.Name,
		On:     on,
		Value:  req.Bri,
	})

	prefix := fmt.Sprintf("/lights/%d/state/", d.ID)
	resp := []map[string]interface{}{
		{"success": map[string]interface{}{prefix + "on": on}},
	}
	if req.Bri != nil {
		resp = append(resp, map[string]interface{}{
			"success": map[string]interface{}{prefix + "bri": *req.Bri},
		})
	}
	server.WriteJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, errType int, address, description string) {
	server.WriteJSON(w, http.StatusOK, []map[string]interface{}{
		{"error": map[string]interface{}{
			"type":        errType,
			"address":     address,
			"description": description,
		}},
	})
}
