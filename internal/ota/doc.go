// Package ota carries firmware images over a websocket.
//
// The exchange on Path is:
//
//	client                          device
//	{"type":"begin", password,
//	  size, md5}            ---->
//	                        <----   {"type":"ready"}      (or "error")
//	binary frames ...       ---->
//	{"type":"end"}          ---->
//	                        <----   {"type":"done"}       (or "error")
//
// A password mismatch is refused before any data is read. The image is
// staged next to the target and renamed over it only after its size and
// checksum match. Receiver reports each attempt through update.Hooks;
// Pusher is the client used by smartrelay-cfg.
package ota
