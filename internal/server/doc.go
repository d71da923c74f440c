// Package server hosts the controller's HTTP surfaces.
//
// The captive portal, the smart-home API and the update endpoint all run on
// a Server: a listener plus a handler, started in the background and shut
// down with a bounded wait. Every request is logged through RequestLogger.
//
// # Usage Example
//
//	srv := server.New(server.Config{Name: "api", Port: 80}, router)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Shutdown(context.Background())
package server
