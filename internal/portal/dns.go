package portal

import (
	"fmt"
	"net"

	"github.com/miekg/dns"
	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
)

// captiveTTL keeps clients from caching the fake answers past provisioning.
const captiveTTL = 60

// newCaptiveHandler answers every A query with apIP so that any hostname a
// client looks up lands on the portal. Other query types get an empty answer.
func newCaptiveHandler(apIP net.IP) dns.Handler {
	return dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		m.Authoritative = true

		for _, q := range r.Question {
			if q.Qtype != dns.TypeA || q.Qclass != dns.ClassINET {
				continue
			}
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{
					Name:   q.Name,
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    captiveTTL,
				},
				A: apIP,
			})
			logging.Debug("Captive DNS answer", zap.String("name", q.Name), zap.String("ip", apIP.String()))
		}

		if err := w.WriteMsg(m); err != nil {
			logging.Debug("Captive DNS write failed", zap.Error(err))
		}
	})
}

// startDNS binds addr and serves captive answers in the background.
func startDNS(addr string, apIP net.IP) (*dns.Server, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for DNS on %s: %w", addr, err)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           newCaptiveHandler(apIP),
		NotifyStartedFunc: func() { close(started) },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ActivateAndServe()
	}()

	// Shutdown refuses a server that has not started yet.
	select {
	case <-started:
	case err := <-errc:
		_ = pc.Close()
		return nil, fmt.Errorf("captive DNS failed to start: %w", err)
	}

	logging.Info("Captive DNS listening", zap.String("addr", pc.LocalAddr().String()))
	return srv, nil
}
