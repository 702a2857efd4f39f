package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/wealthflow-calculator/internal/adapter/cache"
	"github.com/simaogato/wealthflow-calculator/internal/adapter/calendar"
	grpcadapter "github.com/simaogato/wealthflow-calculator/internal/adapter/grpc"
	"github.com/simaogato/wealthflow-calculator/internal/adapter/grpc/calculatorv1"
	"github.com/simaogato/wealthflow-calculator/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-calculator/internal/adapter/repository/postgres"
	"github.com/simaogato/wealthflow-calculator/internal/config"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
	"github.com/simaogato/wealthflow-calculator/internal/logger"
	"github.com/simaogato/wealthflow-calculator/internal/scheduler"
	"github.com/simaogato/wealthflow-calculator/internal/trace"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/evaluation"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/evaluation/evaluationobs"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/pricing"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/pricing/pricingobs"
	"github.com/simaogato/wealthflow-calculator/internal/usecase/summary"
)

const version = "1.0.0"

// repositories bundles the storage ports for one backend
type repositories struct {
	executions      domain.ExecutionRepository
	prices          domain.PriceRepository
	evaluations     domain.EvaluationRepository
	discountFactors domain.DiscountFactorRepository
	transactor      domain.Transactor
	close           func() error
}

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	if err := trace.Init(trace.Config{Enabled: cfg.TracingEnabled, Version: version}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// 2. Storage
	repos, err := openRepositories(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("Failed to open storage")
	}
	defer repos.close()

	cal, err := calendar.Load(cfg.CalendarFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load market calendar")
	}

	discountFactors := cache.NewDiscountFactorRepository(repos.discountFactors, cfg.CurveCacheTTL, log)

	// 3. Services
	evaluationService := evaluation.NewEvaluationService(
		repos.executions, repos.prices, repos.evaluations, cal, repos.transactor, log,
	)
	evaluationService.Market = domain.MarketCode(cfg.Market)
	evaluationService.Updater = cfg.Updater
	evaluator := evaluationobs.Wrap(evaluationService)

	pricer := pricingobs.Wrap(pricing.NewPricingService(discountFactors, log))
	summaryService := summary.NewSummaryService(repos.evaluations)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := evaluation.NewDispatcher(evaluator, cfg.DispatcherWorkers, cfg.DispatcherQueue, log,
		evaluation.WithJobTimeout(cfg.JobTimeout),
	)
	dispatcher.Start(ctx)

	// 4. Optional nightly evaluation
	var sched *scheduler.Scheduler
	if cfg.ScheduleSpec != "" {
		sched = scheduler.New(log)
		job := scheduler.NewRegularEvaluationJob(dispatcher, cfg.ScheduledPortfolios, cfg.LookbackDays, log)
		if err := sched.AddJob(cfg.ScheduleSpec, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.ScheduleSpec).Msg("Failed to register regular evaluation job")
		}
		sched.Start()
		for _, entry := range sched.Upcoming(time.Now()) {
			log.Info().Str("job", entry.Name).Time("next_run", entry.Next).Msg("Scheduled job pending")
		}
	}

	// 5. gRPC server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)

	grpcAdapter := grpcadapter.NewServer(evaluator, dispatcher, pricer, summaryService, log)
	calculatorv1.RegisterCalculatorServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("Failed to listen")
	}

	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Str("storage", cfg.Storage).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	waitForShutdown(log)

	// Stop intake first, then drain queued jobs
	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
	defer shutdownCancel()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Dispatcher did not drain before timeout")
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}
}

func openRepositories(cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.Storage == config.StorageMemory {
		store := memory.NewStore()
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		return &repositories{
			executions:      store,
			prices:          store,
			evaluations:     store,
			discountFactors: store,
			transactor:      store,
			close:           func() error { return nil },
		}, nil
	}

	db, err := connectWithRetry(cfg.DBConnStr, 5, 2*time.Second, log)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := postgres.Migrate(db, log); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &repositories{
		executions:      postgres.NewExecutionRepository(db),
		prices:          postgres.NewPriceRepository(db),
		evaluations:     postgres.NewEvaluationRepository(db),
		discountFactors: postgres.NewDiscountFactorRepository(db),
		transactor:      postgres.NewTransactor(db),
		close:           db.Close,
	}, nil
}

// connectWithRetry waits for Postgres to accept connections
func connectWithRetry(connStr string, attempts int, delay time.Duration, log zerolog.Logger) (*postgres.DB, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := postgres.NewDB(connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i).Msg("Database not ready, retrying")
		time.Sleep(delay)
	}
	return nil, lastErr
}

// waitForShutdown blocks until SIGTERM or SIGINT
func waitForShutdown(log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")
}
