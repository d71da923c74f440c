// Package configstore persists the controller's connection parameters.
//
// Two string parameters are stored: the MQTT broker address (mqtt_server) and
// port (mqtt_port). They live in a small YAML file:
//
//	mqtt_server: 192.168.1.1
//	mqtt_port: "1883"
//
// # Bounds
//
// The server is limited to 39 characters and the port to 5, mirroring the
// 40- and 6-byte fields of the provisioning form. Over-long values are
// rejected by validation and never truncated.
//
// # Failure Policy
//
// Load never fails. A missing file, unparsable YAML or out-of-bound values
// yield the built-in defaults and a log entry. Save reports a WriteFailure and
// Settings keeps its dirty flag so the caller may retry.
//
// # Usage Example
//
//	store, _ := configstore.Open("")
//	settings := configstore.NewSettings(store.Load())
//	if err := settings.Apply("broker.lan", "8883"); err != nil {
//	    // rejected: bounds
//	}
//	_ = settings.Persist(store)
package configstore
