package models

import (
	"context"
	"time"
)

// Pinger interface defines reachability probe operations
type Pinger interface {
	Probe(ctx context.Context, target string, timeout time.Duration) (PingResult, error)
}

// ReportStore interface defines the persistence operations a run needs
type ReportStore interface {
	Insert(ctx context.Context, report Report, at time.Time) (int64, error)
}
