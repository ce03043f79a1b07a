package main

import (
	"PushProbe/internal/adapters/eventbus"
	"PushProbe/internal/adapters/httpapi"
	"PushProbe/internal/adapters/postgres"
	"PushProbe/internal/adapters/pushloop"
	"PushProbe/internal/adapters/security"
	"PushProbe/internal/adapters/telegram"
	"PushProbe/internal/core/correlation"
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/probe"
	"PushProbe/internal/shared/config"
	"PushProbe/internal/shared/logger"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type options struct {
	Once bool `long:"once" description:"run the push test sequence once and exit"`
}

// parseOptions parses args. help reports that --help was requested and
// the usage has already been printed.
func parseOptions(args []string) (options, bool, error) {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return opts, true, nil
		}
		return opts, false, err
	}
	return opts, false, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	// 1. Parse flags
	opts, help, err := parseOptions(os.Args[1:])
	if help {
		return 0
	}
	if err != nil {
		return 2
	}

	// 2. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		return 1
	}

	// 3. Initialize Logger
	baseLogger := logger.New(cfg.AppEnv == "dev")
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("waiter_mode", cfg.Waiter.Mode).
		Bool("bot_enabled", cfg.Bot.Enabled()).
		Msg("Configuration loaded")

	// 4. Initialize the Security Service
	secSvc, err := security.NewAESServiceFromHex(cfg.EncryptionKey, &baseLogger)
	if err != nil {
		baseLogger.Error().Err(err).Msg("Failed to initialize security service")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Initialize Database
	if err := postgres.Migrate(ctx, cfg.Postgres.URL, &baseLogger); err != nil {
		baseLogger.Error().Err(err).Msg("Failed to migrate database")
		return 1
	}
	db, err := postgres.NewDB(ctx, cfg.Postgres.URL, &baseLogger)
	if err != nil {
		baseLogger.Error().Err(err).Msg("Failed to initialize database")
		return 1
	}
	defer db.Close()

	// 6. Initialize Repositories
	deviceRepo := postgres.NewDeviceRepository(db, secSvc, &baseLogger)
	runRepo := postgres.NewTestRunRepository(db, &baseLogger)

	// 7. Wire the push runtime
	bus := eventbus.NewInMemoryBus(&baseLogger)
	waiter, err := correlation.New(cfg.Waiter.Mode, cfg.Waiter.Retention)
	if err != nil {
		baseLogger.Error().Err(err).Msg("Failed to create correlation waiter")
		return 1
	}
	probe.NewPushReceiver(waiter, &baseLogger).Register(bus)

	gateway := pushloop.NewGateway(deviceRepo, bus, cfg.Push.ClientID, cfg.Push.DeliveryLatency, &baseLogger)
	console := probe.NewConsole(gateway, waiter, runRepo, probe.Options{
		WaitTimeout:     cfg.Push.WaitTimeout,
		BackgroundDelay: cfg.Push.BackgroundDelay,
	}, &baseLogger)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		console.Shutdown(shutdownCtx)
		gateway.Close()
		bus.Drain()
		baseLogger.Info().Msg("Application stopped")
	}()

	if opts.Once {
		return runOnce(ctx, console, &baseLogger)
	}

	// 8. Serve until a signal arrives
	g, gctx := errgroup.WithContext(ctx)

	router := httpapi.NewRouter(gctx, httpapi.Deps{
		Recorder: waiter,
		Runner:   console,
		Devices:  console,
		Runs:     runRepo,
	}, &baseLogger)
	httpServer := httpapi.NewServer(cfg.HTTP.ListenAddr, router, &baseLogger)
	g.Go(func() error { return httpServer.Start(gctx) })

	if cfg.Bot.Enabled() {
		orchestrator := telegram.NewOrchestrator(cfg, console, bus, &baseLogger)
		g.Go(func() error { return orchestrator.Start(gctx) })
	}

	baseLogger.Info().Msg("Application started")
	if err := g.Wait(); err != nil {
		baseLogger.Error().Err(err).Msg("Server failed")
		return 1
	}
	return 0
}

// runOnce executes the push test sequence and maps its outcome to an exit code.
func runOnce(ctx context.Context, console *probe.Console, log *zerolog.Logger) int {
	testRun, err := console.RunPushTests(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to run push tests")
		return 1
	}

	for _, s := range testRun.Steps {
		e := log.Info()
		if s.Status != domain.StepPassed {
			e = log.Error().Str("error", *s.Error)
		}
		e.Str("step", s.Name).Str("status", string(s.Status)).Dur("took", s.Duration).Msg("Step finished")
	}
	log.Info().Str("test_run_id", testRun.ID.String()).Str("status", string(testRun.Status)).Msg("Push tests finished")

	if testRun.Status != domain.RunPassed {
		return 1
	}
	return 0
}
