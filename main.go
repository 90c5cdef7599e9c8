// Command medprices ingests the reimbursed medicine price lists into SQLite
// and serves them over a read-only HTTP API.
//
// Usage:
//
//	medprices [flags] serve    run the HTTP API (default)
//	medprices [flags] ingest   run one ingestion and exit
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
	"time"

	"github.com/joho/godotenv"
	"github.com/medprices/medprices-api/company"
	"github.com/medprices/medprices-api/config"
	"github.com/medprices/medprices-api/data"
	"github.com/medprices/medprices-api/handlers"
	"github.com/medprices/medprices-api/health"
	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/pricelist"
	"github.com/medprices/medprices-api/scheduler"
	"github.com/medprices/medprices-api/server"
	"github.com/medprices/medprices-api/store"
	"github.com/medprices/medprices-api/validation"
)

const (
	commandServe  = "serve"
	commandIngest = "ingest"
)

// cliOptions holds the parsed command line
type cliOptions struct {
	command string
	envFile string
	verbose bool
}

func parseArgs(args []string, output io.Writer) (cliOptions, error) {
	fs := flag.NewFlagSet("medprices", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := cliOptions{command: commandServe}
	fs.StringVar(&opts.envFile, "env-file", ".env", "environment file to load before reading configuration")
	fs.BoolVar(&opts.verbose, "verbose", false, "show info logs on the console in the test environment")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		opts.command = fs.Arg(0)
	default:
		return cliOptions{}, fmt.Errorf("expected one command, got %v", fs.Args())
	}

	if opts.command != commandServe && opts.command != commandIngest {
		return cliOptions{}, fmt.Errorf("unknown command %q: use %q or %q", opts.command, commandServe, commandIngest)
	}

	return opts, nil
}

// app holds the collaborators shared by both commands
type app struct {
	cfg       *config.Config
	db        *store.SQLiteStore
	container *data.DataContainer
	validator interfaces.QueryValidator
	scheduler *scheduler.Scheduler
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	resolver, err := company.LoadCompanies(cfg.CompaniesFile)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	container := data.NewDataContainer()
	validator := validation.NewDataValidator()
	pipeline := pricelist.NewPipeline(pricelist.NewFileReader(), resolver)

	sched := scheduler.NewScheduler(container, db, pipeline, validator, scheduler.Options{
		DataDir:       cfg.DataDir,
		Schedule:      cfg.IngestSchedule,
		IngestOnStart: cfg.IngestOnStart,
	})

	return &app{
		cfg:       cfg,
		db:        db,
		container: container,
		validator: validator,
		scheduler: sched,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		logging.Error("Failed to close database", "error", err)
	}
}

func (a *app) ingest() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.scheduler.UpdateData(ctx)
}

func (a *app) serve() error {
	a.container.SetServerStartTime(time.Now())

	if err := a.scheduler.Start(); err != nil {
		return err
	}
	defer a.scheduler.Stop()

	checker := health.NewHealthChecker(a.container, a.db, a.cfg.IngestSchedule)
	handler := handlers.NewHTTPHandler(a.db, a.container, a.validator, checker)
	srv := server.NewServer(a.cfg, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

func run(args []string) int {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", opts.envFile, err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logging.InitLoggerWithOptions(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		Verbose:        opts.verbose,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() { _ = logging.Close() }()

	a, err := newApp(cfg)
	if err != nil {
		logging.Error("Failed to initialize", "error", err)
		return 1
	}
	defer a.close()

	switch opts.command {
	case commandIngest:
		err = a.ingest()
	default:
		err = a.serve()
	}

	if err != nil {
		logging.Error("Command failed", "command", opts.command, "error", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:]))
}
