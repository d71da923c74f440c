// Package profile holds the table of controller variants.
//
// A variant decides which services run (MQTT, relay bridge) and how the
// status LED and relays are wired, including each relay's polarity. The
// built-in table is embedded from profiles.yaml; an operator can point the
// controller at an external file with the same layout.
package profile
