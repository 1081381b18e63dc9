// Package ping implements the reachability probe.
package ping

import (
	"fmt"
	"net"

	"speedlog/internal/models"
)

const (
	ModeICMP = "icmp"
	ModeExec = "exec"
)

// New returns the pinger for mode
func New(mode string, payload []byte) (models.Pinger, error) {
	switch mode {
	case ModeICMP, "":
		return NewICMP(payload), nil
	case ModeExec:
		return NewExec(), nil
	default:
		return nil, fmt.Errorf("unknown ping mode %q", mode)
	}
}

func parseTarget(target string) (net.IP, error) {
	ip := net.ParseIP(target)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("target %q is not an IPv4 address", target)
	}
	return ip.To4(), nil
}
