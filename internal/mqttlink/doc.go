// Package mqttlink connects the device bridge to an MQTT broker.
//
// Topics are rooted at a prefix (default "smartrelay"):
//
//	<prefix>/status         online/offline, retained, offline is the will
//	<prefix>/<device>/set   commands: ON, OFF (also true/false, 1/0)
//	<prefix>/<device>/state retained state published after every command
//
// Incoming commands are pushed onto the main-loop queue as bridge.Command
// values; they are never applied from the paho callback goroutine.
package mqttlink
