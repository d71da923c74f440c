// Package hue emulates enough of a Philips Hue bridge for voice assistants
// to discover and switch the controller's relays.
//
// Discovery runs over SSDP (UDP 1900): an M-SEARCH for the root device is
// answered with the location of /description.xml. The REST side exposes
// each bridge device as a dimmable light; a PUT to a light's state queues a
// bridge.Command for the main loop. Wire types come from huego so the same
// structures serve the device and the smartrelay-cfg client.
//
// The bridge is also published over mDNS as _hue._tcp with a
// model=smartrelay TXT record.
package hue
