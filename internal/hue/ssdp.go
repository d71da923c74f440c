package hue

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
)

// SSDP multicast group and port.
const (
	SSDPGroup = "239.255.255.250"
	SSDPPort  = 1900
)

// search targets the responder answers.
var searchTargets = []string{
	"ssdp:all",
	"upnp:rootdevice",
	"urn:schemas-upnp-org:device:basic:1",
}

// SSDP answers M-SEARCH discovery requests with the description URL.
type SSDP struct {
	location string
	udn      string

	mu   sync.Mutex
	conn net.PacketConn
	done chan struct{}
}

// NewSSDP creates a responder advertising location (the description.xml URL)
func NewSSDP(location, udn string) *SSDP {
	return &SSDP{location: location, udn: udn}
}

// Start joins the multicast group on every multicast-capable interface and
// serves in the background.
func (s *SSDP) Start() error {
	conn, err := net.ListenPacket("udp4", fmt.Sprintf("0.0.0.0:%d", SSDPPort))
	if err != nil {
		return fmt.Errorf("failed to listen for SSDP: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	group := &net.UDPAddr{IP: net.ParseIP(SSDPGroup)}

	ifaces, err := net.Interfaces()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to list interfaces: %w", err)
	}
	joined := 0
	for i := range ifaces {
		iface := ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := pc.JoinGroup(&iface, group); err != nil {
			logging.Debug("SSDP join failed", zap.String("iface", iface.Name), zap.Error(err))
			continue
		}
		joined++
	}
	if joined == 0 {
		_ = conn.Close()
		return fmt.Errorf("could not join SSDP group on any interface")
	}

	logging.Info("SSDP responder listening",
		zap.Int("interfaces", joined),
		zap.String("location", s.location),
	)
	return s.Serve(conn)
}

// Serve answers requests arriving on conn in the background. It is split
// from Start so a unicast socket can be used in tests.
func (s *SSDP) Serve(conn net.PacketConn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return fmt.Errorf("SSDP responder already running")
	}
	s.conn = conn
	s.done = make(chan struct{})

	go s.loop(conn, s.done)
	return nil
}

// Stop closes the socket and waits for the responder to exit
func (s *SSDP) Stop() error {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn, s.done = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	return err
}

func (s *SSDP) loop(conn net.PacketConn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}

		st, ok := parseSearch(buf[:n])
		if !ok {
			continue
		}

		logging.Debug("SSDP search", zap.String("from", addr.String()), zap.String("st", st))
		if _, err := conn.WriteTo(s.response(st), addr); err != nil {
			logging.Debug("SSDP reply failed", zap.Error(err))
		}
	}
}

// parseSearch returns the search target of an M-SEARCH we should answer.
func parseSearch(packet []byte) (string, bool) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(packet)))
	if err != nil || req.Method != "M-SEARCH" {
		return "", false
	}
	if !strings.EqualFold(strings.Trim(req.Header.Get("Man"), `"`), "ssdp:discover") {
		return "", false
	}

	st := req.Header.Get("St")
	for _, target := range searchTargets {
		if strings.EqualFold(st, target) {
			return st, true
		}
	}
	return "", false
}

func (s *SSDP) response(st string) []byte {
	usn := s.udn
	if !strings.EqualFold(st, "ssdp:all") {
		usn += "::" + st
	}

	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("EXT:\r\n")
	b.WriteString("CACHE-CONTROL: max-age=100\r\n")
	fmt.Fprintf(&b, "LOCATION: %s\r\n", s.location)
	b.WriteString("SERVER: FreeRTOS/6.0.5, UPnP/1.0, IpBridge/1.17.0\r\n")
	fmt.Fprintf(&b, "hue-bridgeid: %s\r\n", strings.ToUpper(strings.TrimPrefix(s.udn, "uuid:2f402f80-da50-11e1-9b23-")))
	fmt.Fprintf(&b, "ST: %s\r\n", st)
	fmt.Fprintf(&b, "USN: %s\r\n", usn)
	b.WriteString("\r\n")
	return []byte(b.String())
}
