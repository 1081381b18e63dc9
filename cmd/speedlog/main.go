package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"speedlog/internal/config"
	"speedlog/internal/database"
	"speedlog/internal/logging"
	"speedlog/internal/models"
	"speedlog/internal/monitor"
	"speedlog/internal/ping"
	"speedlog/internal/speedtest"
)

var version = "dev"

const (
	exitSuccess   = 0
	exitFailure   = 1
	exitUsage     = 2
	exitInterrupt = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	cfg, opts, err := config.Parse(args, getenv, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		fmt.Fprintf(stderr, "speedlog: error: %v\n", err)
		return exitUsage
	}
	if opts.Version {
		fmt.Fprintf(stdout, "speedlog %s\n", version)
		return exitSuccess
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "speedlog: error: %v\n", err)
		return exitUsage
	}

	logCloser, err := logging.Setup(log.StandardLogger(), cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "speedlog: error: %v\n", err)
		return exitUsage
	}
	defer logCloser.Close()

	// Initialize database
	fmt.Fprintf(stdout, "Setting up database %s...\n", cfg.DatabasePath)
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fail(stderr, models.NewRunError(models.StageSetup, err))
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return fail(stderr, models.NewRunError(models.StageSetup, err))
	}

	// Initialize components
	pinger, err := ping.New(cfg.Ping.Mode, []byte(cfg.Ping.Payload))
	if err != nil {
		return fail(stderr, models.NewRunError(models.StageSetup, err))
	}
	service := speedtest.New(cfg.Measure.BaseURL, speedtest.WithTimeout(cfg.Measure.HTTPTimeout))
	runner := monitor.New(cfg, db, pinger, service, stdout)

	if cfg.Schedule == "" {
		if _, err := runner.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(stderr, "speedlog: interrupted")
				return exitInterrupt
			}
			return fail(stderr, err)
		}
		return exitSuccess
	}

	sched, err := monitor.NewScheduler(runner, cfg.Schedule)
	if err != nil {
		return fail(stderr, models.NewRunError(models.StageSetup, err))
	}
	sched.Start()
	log.WithField("schedule", cfg.Schedule).Info("Monitor started")

	<-ctx.Done()
	log.Info("Shutting down...")
	sched.Stop()
	sched.Wait()
	return exitSuccess
}

func fail(stderr io.Writer, err error) int {
	log.WithError(err).Error("Run aborted")
	fmt.Fprintf(stderr, "speedlog: error: %v\n", err)
	return exitFailure
}
