package ping

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

func TestParsePingOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected float64
	}{
		{
			name:     "macOS individual response",
			output:   "64 bytes from 8.8.8.8: icmp_seq=0 ttl=118 time=44.347 ms",
			expected: 44.347,
		},
		{
			name:     "macOS summary line",
			output:   "round-trip min/avg/max/stddev = 44.347/44.347/44.347/0.000 ms",
			expected: 44.347,
		},
		{
			name:     "Linux individual response",
			output:   "64 bytes from 8.8.8.8: icmp_seq=0 ttl=118 time=12.3 ms",
			expected: 12.3,
		},
		{
			name:     "Linux summary line",
			output:   "round-trip min/avg/max = 12.3/12.3/12.3 ms",
			expected: 12.3,
		},
		{
			name:     "Windows response",
			output:   "Reply from 8.8.8.8: bytes=32 time=15ms TTL=118",
			expected: 15,
		},
		{
			name:     "Windows sub-millisecond",
			output:   "Reply from 8.8.8.8: bytes=32 time<1ms TTL=118",
			expected: 1, // upper bound
		},
		{
			name:     "No match",
			output:   "ping: unknown host example.invalid",
			expected: 0,
		},
		{
			name:     "Empty output",
			output:   "",
			expected: 0,
		},
		{
			name: "Multiple lines with macOS output",
			output: `PING 8.8.8.8 (8.8.8.8): 56 data bytes
64 bytes from 8.8.8.8: icmp_seq=0 ttl=118 time=44.347 ms

--- 8.8.8.8 ping statistics ---
1 packets transmitted, 1 packets received, 0.0% packet loss
round-trip min/avg/max/stddev = 44.347/44.347/44.347/0.000 ms`,
			expected: 44.347,
		},
		{
			name:     "iputils summary line",
			output:   "rtt min/avg/max/mdev = 9.871/9.871/9.871/0.000 ms",
			expected: 9.871,
		},
		{
			name:     "High precision RTT",
			output:   "64 bytes from 8.8.8.8: icmp_seq=0 ttl=118 time=123.456 ms",
			expected: 123.456,
		},
		{
			name:     "Single digit RTT",
			output:   "64 bytes from 8.8.8.8: icmp_seq=0 ttl=118 time=5.2 ms",
			expected: 5.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parsePingOutput(tt.output)
			if result != tt.expected {
				t.Errorf("parsePingOutput(%q) = %v, want %v", tt.output, result, tt.expected)
			}
		})
	}
}

func TestExecPingerProbe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ping integration test in short mode")
	}

	if _, err := exec.LookPath("ping"); err != nil {
		t.Skip("ping binary not available on PATH")
	}

	pinger := NewExec()

	result, err := pinger.Probe(context.Background(), "127.0.0.1", 5*time.Second)
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}

	t.Logf("Probe result: Success=%v, RTT=%v, Error=%s", result.Success, result.RTT, result.ErrorMessage)

	if !result.Success {
		t.Skipf("loopback ping failed in this environment: %s", result.ErrorMessage)
	}

	if result.Target != "127.0.0.1" {
		t.Errorf("Expected target to be '127.0.0.1', got %v", result.Target)
	}
}

func TestExecPingerMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := NewExec().Probe(context.Background(), "127.0.0.1", time.Second)
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("Expected exec.ErrNotFound, got %v", err)
	}
}

func TestProbeRejectsNonIPv4Target(t *testing.T) {
	targets := []string{"invalid.host.that.does.not.exist", "", "::1", "1.1.1"}

	for _, target := range targets {
		if _, err := NewExec().Probe(context.Background(), target, time.Second); err == nil {
			t.Errorf("exec: expected error for target %q", target)
		}
		if _, err := NewICMP(nil).Probe(context.Background(), target, time.Second); err == nil {
			t.Errorf("icmp: expected error for target %q", target)
		}
	}
}

func TestICMPProbeSocketUnavailable(t *testing.T) {
	pinger := NewICMP([]byte("payload"))
	var networks []string
	pinger.listen = func(network, address string) (*icmp.PacketConn, error) {
		networks = append(networks, network)
		return nil, errors.New("operation not permitted")
	}

	result, err := pinger.Probe(context.Background(), "1.1.1.1", time.Second)
	if !errors.Is(err, ErrSocketUnavailable) {
		t.Fatalf("Expected ErrSocketUnavailable, got %v", err)
	}
	if result.Success {
		t.Error("Expected no success without a socket")
	}
	if len(networks) != 2 || networks[0] != "udp4" || networks[1] != "ip4:icmp" {
		t.Errorf("Expected udp4 then ip4:icmp attempts, got %v", networks)
	}
}

func TestMatchesEcho(t *testing.T) {
	echo := func(typ icmp.Type, id, seq int) *icmp.Message {
		return &icmp.Message{Type: typ, Body: &icmp.Echo{ID: id, Seq: seq}}
	}

	tests := []struct {
		name       string
		msg        *icmp.Message
		privileged bool
		want       bool
	}{
		{"reply matches", echo(ipv4.ICMPTypeEchoReply, 7, 3), true, true},
		{"request is ignored", echo(ipv4.ICMPTypeEcho, 7, 3), true, false},
		{"wrong sequence", echo(ipv4.ICMPTypeEchoReply, 7, 4), true, false},
		{"wrong id on raw socket", echo(ipv4.ICMPTypeEchoReply, 8, 3), true, false},
		{"id rewritten on datagram socket", echo(ipv4.ICMPTypeEchoReply, 8, 3), false, true},
		{"unreachable", &icmp.Message{Type: ipv4.ICMPTypeDestinationUnreachable, Body: &icmp.DstUnreach{}}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesEcho(tt.msg, 7, 3, tt.privileged); got != tt.want {
				t.Errorf("matchesEcho() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if p, err := New(ModeICMP, nil); err != nil {
		t.Fatalf("New(icmp): %v", err)
	} else if _, ok := p.(*ICMPPinger); !ok {
		t.Errorf("New(icmp) returned %T", p)
	}
	if p, err := New(ModeExec, nil); err != nil {
		t.Fatalf("New(exec): %v", err)
	} else if _, ok := p.(*ExecPinger); !ok {
		t.Errorf("New(exec) returned %T", p)
	}
	if _, err := New("carrier-pigeon", nil); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
