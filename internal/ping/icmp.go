package ping

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"speedlog/internal/models"
)

const protocolICMP = 1

// DefaultPayload is sent in every echo request unless overridden
var DefaultPayload = []byte("speedlog-probe")

var seq uint32

// ErrSocketUnavailable means neither a datagram nor a raw ICMP socket could be opened
var ErrSocketUnavailable = errors.New("icmp socket unavailable")

// ICMPPinger sends a single ICMP echo request and waits for the reply
type ICMPPinger struct {
	payload []byte
	// listen is swappable for tests
	listen func(network, address string) (*icmp.PacketConn, error)
}

// NewICMP creates an ICMPPinger that sends payload in each echo
func NewICMP(payload []byte) *ICMPPinger {
	if len(payload) == 0 {
		payload = DefaultPayload
	}
	return &ICMPPinger{
		payload: payload,
		listen:  icmp.ListenPacket,
	}
}

// Probe sends one echo request to target. A lost or refused echo is reported
// through the result, not the error. Failing to open any ICMP socket is a
// local problem and is returned as an error.
func (p *ICMPPinger) Probe(ctx context.Context, target string, timeout time.Duration) (models.PingResult, error) {
	result := models.PingResult{
		Timestamp: time.Now(),
		Target:    target,
	}
	ip, err := parseTarget(target)
	if err != nil {
		return result, err
	}

	conn, privileged, err := p.open()
	if err != nil {
		return result, err
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		result.ErrorMessage = err.Error()
		return result, nil
	}

	// Unblock the read on cancellation
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	id := os.Getpid() & 0xffff
	sequence := int(atomic.AddUint32(&seq, 1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: sequence, Data: p.payload},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return result, fmt.Errorf("marshal echo: %w", err)
	}

	var dst net.Addr = &net.UDPAddr{IP: ip}
	if privileged {
		dst = &net.IPAddr{IP: ip}
	}

	start := time.Now()
	if _, err := conn.WriteTo(wb, dst); err != nil {
		result.ErrorMessage = err.Error()
		return result, nil
	}

	rb := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			if ctx.Err() != nil {
				result.ErrorMessage = ctx.Err().Error()
			} else {
				result.ErrorMessage = err.Error()
			}
			return result, nil
		}
		rtt := time.Since(start)

		reply, err := icmp.ParseMessage(protocolICMP, rb[:n])
		if err != nil {
			log.WithError(err).Debug("Discarding unparsable ICMP packet")
			continue
		}
		if !matchesEcho(reply, id, sequence, privileged) || !samePeer(peer, ip) {
			continue
		}

		result.Success = true
		result.RTT = float64(rtt.Microseconds()) / 1000.0
		return result, nil
	}
}

// open prefers an unprivileged datagram socket and falls back to a raw one
func (p *ICMPPinger) open() (*icmp.PacketConn, bool, error) {
	conn, err := p.listen("udp4", "0.0.0.0")
	if err == nil {
		return conn, false, nil
	}
	rawConn, rawErr := p.listen("ip4:icmp", "0.0.0.0")
	if rawErr == nil {
		return rawConn, true, nil
	}
	return nil, false, fmt.Errorf("%w: %w", ErrSocketUnavailable, errors.Join(err, rawErr))
}

// matchesEcho checks a reply belongs to our request. Datagram sockets have
// their echo ID rewritten by the kernel, so only the sequence is compared.
func matchesEcho(m *icmp.Message, id, sequence int, privileged bool) bool {
	if m.Type != ipv4.ICMPTypeEchoReply {
		return false
	}
	echo, ok := m.Body.(*icmp.Echo)
	if !ok {
		return false
	}
	if echo.Seq != sequence {
		return false
	}
	return !privileged || echo.ID == id
}

func samePeer(addr net.Addr, ip net.IP) bool {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.Equal(ip)
	case *net.IPAddr:
		return a.IP.Equal(ip)
	default:
		return false
	}
}
