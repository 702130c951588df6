// Package mdns implements the MeshCoP border agent discovery engine: a
// one-shot multicast DNS-SD scan for `_meshcop._udp.local.` PTR records,
// decoding each response's TXT attributes into a borderagent.BorderAgent.
//
// The engine owns a single multicast socket for the duration of
// a scan. Cancellation is modeled the idiomatic Go way: closing the
// underlying connection unblocks the pending read the way writing to a
// cancellation pipe would in an event-loop built on select(2)/poll(2).
package mdns

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/ipv4"

	"github.com/openthread-go/tncctl/internal/borderagent"
	"github.com/openthread-go/tncctl/internal/metrics"
	"github.com/openthread-go/tncctl/internal/tncerr"
	"github.com/openthread-go/tncctl/internal/tracing"
)

const (
	mdnsAddr    = "224.0.0.251:5353"
	defaultPort = 5353
)

// Handler is invoked once per decoded response, including ones where TXT
// decode produced a partial error (see decodeTXT). err is nil on a fully
// clean record.
type Handler func(ba *borderagent.BorderAgent, err error)

// Engine runs one discovery scan at a time. It is safe to reuse across
// scans but not safe to run two scans concurrently.
type Engine struct {
	iface *net.Interface

	mu      sync.Mutex
	running bool
}

// NewEngine constructs an Engine bound to the given network interface. A nil
// interface lets the OS pick based on routing, matching the teacher's
// resolver default.
func NewEngine(iface *net.Interface) *Engine {
	return &Engine{iface: iface}
}

// Discover runs one scan: it sends a single PTR query, then processes
// responses until timeout elapses or ctx is cancelled, invoking handler for
// each decoded record. It returns once the timer fires or ctx ends; socket
// teardown is synchronous before Discover returns.
func (e *Engine) Discover(ctx context.Context, timeout time.Duration, handler Handler) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return tncerr.New(tncerr.InvalidState, "mdns: discovery already running")
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	group := &net.UDPAddr{IP: net.IPv4(224, 0, 0, 251), Port: defaultPort}
	conn, err := net.ListenMulticastUDP("udp4", e.iface, group)
	if err != nil {
		return tncerr.Wrap(tncerr.IOError, err, "mdns: join multicast group")
	}
	pconn := ipv4.NewPacketConn(conn)
	_ = pconn.SetMulticastLoopback(true)
	_ = pconn.SetMulticastTTL(1)

	// cancellation pipe equivalent: closing conn unblocks the pending
	// blocking ReadFrom below from whichever goroutine issued it.
	cancelOnce := sync.Once{}
	closeConn := func() { cancelOnce.Do(func() { _ = conn.Close() }) }

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-timer.C:
		case <-done:
		}
		closeConn()
	}()
	defer close(done)

	if err := e.query(conn); err != nil {
		return err
	}

	buf := make([]byte, 9000)
	for {
		n, _, rerr := conn.ReadFromUDP(buf)
		if rerr != nil {
			// conn closed by the watcher goroutine above, on timeout or
			// context cancellation; that is the normal end of a scan.
			return nil
		}
		ba, derr := parseResponse(buf[:n])
		if ba == nil && derr == nil {
			continue // not a matching response, ignore
		}
		handler(ba, derr)
	}
}

func (e *Engine) query(conn *net.UDPConn) error {
	msg := new(dns.Msg)
	msg.SetQuestion(ServiceType, dns.TypePTR)
	msg.RecursionDesired = false
	packed, err := msg.Pack()
	if err != nil {
		return tncerr.Wrap(tncerr.IOError, err, "mdns: pack query")
	}
	dst := &net.UDPAddr{IP: net.IPv4(224, 0, 0, 251), Port: defaultPort}
	if _, err := conn.WriteToUDP(packed, dst); err != nil {
		return tncerr.Wrap(tncerr.IOError, err, "mdns: send query")
	}
	return nil
}

// parseResponse decodes a single mDNS response packet into a BorderAgent.
// It returns (nil, nil) for packets that don't carry an SRV/TXT record for
// our service (e.g. unrelated mDNS chatter on the same multicast group).
func parseResponse(raw []byte) (*borderagent.BorderAgent, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(raw); err != nil {
		return nil, nil
	}

	ba := &borderagent.BorderAgent{}
	matched := false

	records := append(append([]dns.RR{}, msg.Answer...), msg.Extra...)
	for _, rr := range records {
		switch rec := rr.(type) {
		case *dns.PTR:
			if rec.Hdr.Name != ServiceType {
				continue
			}
			ba.ServiceName = rec.Ptr
			ba.Present |= borderagent.ServiceNameBit
			matched = true
		case *dns.SRV:
			ba.Port = rec.Port
			ba.Present |= borderagent.PortBit
			matched = true
		case *dns.A:
			if !ba.Has(borderagent.AddrBit) {
				ba.Addr = rec.A.String()
				ba.Present |= borderagent.AddrBit
			}
		case *dns.AAAA:
			// AAAA always wins over a previously seen A record.
			ba.Addr = rec.AAAA.String()
			ba.Present |= borderagent.AddrBit
		case *dns.TXT:
			txt := make(map[string][]byte, len(rec.Txt))
			for _, s := range rec.Txt {
				k, v, ok := splitAttr(s)
				if ok {
					txt[k] = v
				}
			}
			matched = true
			if err := decodeTXT(ba, txt); err != nil {
				if ba.Present != 0 {
					ba.Present |= borderagent.UpdateTimestampBit
				}
				return ba, err
			}
		}
	}

	if !matched {
		return nil, nil
	}
	if ba.Present != 0 {
		ba.Present |= borderagent.UpdateTimestampBit
	}
	return ba, nil
}

// splitAttr splits a raw mDNS TXT character-string "key=value" into its key
// and raw value bytes. DNS TXT character-strings carry raw bytes, not UTF-8
// text, which is why binary keys like "sb"/"xp"/"at" survive round-trip.
func splitAttr(s string) (string, []byte, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], []byte(s[i+1:]), true
		}
	}
	return "", nil, false
}

// DiscoverOnce is a convenience wrapper used by the interpreter's `br scan`
// command: run one scan and collect all responses into a slice.
func DiscoverOnce(ctx context.Context, iface *net.Interface, timeout time.Duration) ([]*borderagent.BorderAgent, error) {
	ctx, span := tracing.StartSpan(ctx, "mdns.discover_scan",
		trace.WithAttributes(attribute.Int64("tncctl.scan_timeout_ms", timeout.Milliseconds())),
	)
	defer span.End()

	m := metrics.Default()
	m.RecordDiscoveryScan()

	e := NewEngine(iface)
	var out []*borderagent.BorderAgent
	var firstErr error
	err := e.Discover(ctx, timeout, func(ba *borderagent.BorderAgent, err error) {
		if ba != nil {
			out = append(out, ba)
		}
		if err != nil {
			log.Debug().Err(err).Msg("mdns: partial decode error")
			if firstErr == nil {
				firstErr = err
			}
			m.RecordDiscoveryRecord(metrics.DiscoveryPartial)
		} else if ba != nil {
			m.RecordDiscoveryRecord(metrics.DiscoveryClean)
		}
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("tncctl.records_found", len(out)))
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
