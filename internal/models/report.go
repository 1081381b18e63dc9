package models

import (
	"fmt"
	"time"
)

// NotAvailable is stored as metadata when no measurement took place
const NotAvailable = "N/A"

// Report is the outcome of one run. Implemented only by FailedReport and
// SucceededReport.
type Report interface {
	isReport()
}

// FailedReport records a run whose reachability probe failed
type FailedReport struct{}

// SucceededReport carries the aggregated measurements of a reachable run
type SucceededReport struct {
	Metadata    string
	AvgLatency  float64
	AvgDownload float64
	AvgUpload   float64
}

func (FailedReport) isReport()    {}
func (SucceededReport) isReport() {}

// StoredRow is the persisted form of a Report
type StoredRow struct {
	Time          time.Time `json:"time"`
	PingSucceeded bool      `json:"ping_succeeded"`
	Metadata      string    `json:"metadata"`
	AvgLatency    float64   `json:"avg_latency"`
	AvgDown       float64   `json:"avg_down"`
	AvgUp         float64   `json:"avg_up"`
}

// FromReport maps a report to the row written for it
func FromReport(r Report, at time.Time) (StoredRow, error) {
	switch rep := r.(type) {
	case FailedReport:
		return StoredRow{
			Time:          at,
			PingSucceeded: false,
			Metadata:      NotAvailable,
		}, nil
	case *FailedReport:
		return FromReport(FailedReport{}, at)
	case SucceededReport:
		return StoredRow{
			Time:          at,
			PingSucceeded: true,
			Metadata:      rep.Metadata,
			AvgLatency:    rep.AvgLatency,
			AvgDown:       rep.AvgDownload,
			AvgUp:         rep.AvgUpload,
		}, nil
	case *SucceededReport:
		if rep == nil {
			return StoredRow{}, fmt.Errorf("nil succeeded report")
		}
		return FromReport(*rep, at)
	default:
		return StoredRow{}, fmt.Errorf("unknown report type %T", r)
	}
}
