// Package connectivity owns the controller's network lifecycle.
//
// On boot the manager loads the stored parameters and tries the remembered
// network. If that fails it opens a provisioning access point with a captive
// form; a submitted network that joins within the save-connect timeout ends
// provisioning. If the portal window runs out the device is restarted rather
// than retried in place, so successive boots alternate between the stored
// network and provisioning.
//
// Every state entry sets the status indicator once:
//
//	Idle            off
//	Connecting      toggling at 1 Hz
//	ProvisioningAP  toggling at 5 Hz
//	Connected       steady on
//	RestartPending  off
package connectivity
