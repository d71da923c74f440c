// Package relayclient is the operator-side client for a controller's bridge
// API. It speaks the Hue REST dialect through huego, so the same calls work
// against the controller and are checked against what a voice-assistant hub
// would send.
//
// # Usage Example
//
//	client := relayclient.NewClient("192.168.1.40")
//	switches, err := client.Switches(ctx)
//	if err != nil {
//	    fmt.Println(relayclient.GetShortErrorMessage(err))
//	}
//	_, err = client.Set(ctx, "light", true)
//
// # Error Handling
//
// Every error is a *DeviceError. Network errors and 5xx responses are
// retried with exponential backoff; validation errors such as an unknown
// switch name are returned immediately.
package relayclient
