// Package wifi is the controller's view of the wireless stack.
//
// Two roles are exposed: Station joins a network, AccessPoint hosts the
// provisioning network. Sim implements both in-process for development hosts
// and tests. NMCLI drives NetworkManager on a Linux board.
package wifi
