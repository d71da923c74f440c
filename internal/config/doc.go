// Package config keeps the operator-side record of known controllers.
//
// smartrelay-cfg stores each controller it discovers in a small YAML file
// next to the controller settings, keyed by mDNS instance name. Operators can
// give controllers nicknames and use them wherever an address is expected:
//
//	smartrelay-cfg alias "smartrelay-a1b2c3" kitchen
//	smartrelay-cfg list --device kitchen
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/smartrelay/controllers.yaml or $HOME/.config/smartrelay/controllers.yaml
//   - macOS: $HOME/.config/smartrelay/controllers.yaml
//   - Windows: %LOCALAPPDATA%\smartrelay\controllers.yaml
//
// # Security
//
// Update passwords are never stored. They are taken from the command line,
// the environment or a prompt.
package config
