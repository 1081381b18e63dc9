package models

import (
	"fmt"
	"strings"
	"time"
)

// SampleKind tags a raw measurement
type SampleKind int

const (
	Latency SampleKind = iota
	Download
	Upload
)

func (k SampleKind) String() string {
	switch k {
	case Latency:
		return "latency"
	case Download:
		return "download"
	case Upload:
		return "upload"
	default:
		return fmt.Sprintf("SampleKind(%d)", int(k))
	}
}

// Sample is one raw measurement. Magnitude is milliseconds for latency and
// megabits per second for throughput.
type Sample struct {
	Kind        SampleKind    `json:"kind"`
	Magnitude   float64       `json:"magnitude"`
	PayloadSize int           `json:"payload_size,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// Metadata describes the measurement endpoint as seen by the client
type Metadata struct {
	City    string `json:"city"`
	Country string `json:"country"`
	IP      string `json:"ip"`
	ASN     string `json:"asn"`
	Colo    string `json:"colo"`
}

func (m Metadata) String() string {
	parts := make([]string, 0, 5)
	add := func(key, val string) {
		if val != "" {
			parts = append(parts, key+"="+val)
		}
	}
	add("city", m.City)
	add("country", m.Country)
	add("ip", m.IP)
	add("asn", m.ASN)
	add("colo", m.Colo)
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " ")
}
