package ping

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"speedlog/internal/models"
)

var rttPatterns = []*regexp.Regexp{
	regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`),
	regexp.MustCompile(`time[=<]([0-9.]+)ms`),
	regexp.MustCompile(`round-trip min/avg/max(?:/stddev)? = [0-9.]+/([0-9.]+)/`),
	regexp.MustCompile(`rtt min/avg/max/mdev = [0-9.]+/([0-9.]+)/`),
}

// ExecPinger probes by running the system ping binary
type ExecPinger struct{}

// NewExec creates a new ExecPinger
func NewExec() *ExecPinger {
	return &ExecPinger{}
}

// Probe sends a single echo request through the system ping command
func (p *ExecPinger) Probe(ctx context.Context, target string, timeout time.Duration) (models.PingResult, error) {
	result := models.PingResult{
		Timestamp: time.Now(),
		Target:    target,
	}
	if _, err := parseTarget(target); err != nil {
		return result, err
	}

	// Hard stop slightly after the ping deadline in case the binary ignores it
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "ping", "-n", "1", "-w", strconv.Itoa(int(timeout.Milliseconds())), target)
	} else {
		secs := int(timeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		cmd = exec.CommandContext(ctx, "ping", "-c", "1", "-W", strconv.Itoa(secs), target)
	}

	output, err := cmd.CombinedOutput()
	if errors.Is(err, exec.ErrNotFound) {
		return result, fmt.Errorf("ping binary: %w", err)
	}
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, nil
	}

	result.Success = true
	result.RTT = parsePingOutput(string(output))
	return result, nil
}

// parsePingOutput parses RTT from ping output
func parsePingOutput(output string) float64 {
	// Linux/Mac: "time=XX.X ms"
	// Windows: "time=XXms" or "time<1ms"
	for _, re := range rttPatterns {
		matches := re.FindStringSubmatch(output)
		if len(matches) > 1 {
			if rtt, err := strconv.ParseFloat(matches[1], 64); err == nil {
				return rtt
			}
		}
	}
	return 0
}
