// Package discovery finds smartrelay controllers with mDNS.
//
// Controllers advertise the emulated bridge as a "_hue._tcp" service. Real
// Hue bridges use the same service type, so entries are kept only when their
// TXT record carries "model=smartrelay".
//
// # Usage Example
//
//	devices, err := discovery.ScanForDevices(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range devices {
//	    fmt.Printf("%s version %s\n", d.Address(), d.Version())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Controllers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
