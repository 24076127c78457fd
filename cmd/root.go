package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/db"
	httpserver "github.com/opensignal/signalhub/internal/http"
	"github.com/opensignal/signalhub/internal/hub"
	"github.com/opensignal/signalhub/internal/kv"
	"github.com/opensignal/signalhub/internal/logging"
	"github.com/opensignal/signalhub/internal/metrics"
	"github.com/opensignal/signalhub/internal/pprof"
	"github.com/opensignal/signalhub/internal/pubsub"
	"github.com/opensignal/signalhub/internal/sdk"
	"github.com/USA-RedDragon/configulator"
	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "signalhub",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("signalhub - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	logging.Setup(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cleanup, err := setupTracing(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	defer func() {
		if err := cleanup(ctx); err != nil {
			slog.Error("failed to shutdown tracer", "error", err)
		}
	}()

	startBackgroundServices(cfg)

	var database *gorm.DB
	if cfg.Database.Driver != "" {
		database, err = db.MakeDB(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	kvStore, err := kv.MakeKV(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to key-value store: %w", err)
	}

	pubsubClient, err := pubsub.MakePubSub(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to pubsub: %w", err)
	}

	m := metrics.New()
	h := hub.New(cfg, database, kvStore, pubsubClient, m)

	scheduler, err := setupScheduler()
	if err != nil {
		return err
	}
	setupHubJobs(cfg, scheduler, h)
	scheduler.Start()

	srv := httpserver.MakeServer(cfg, h, database, cmd.Annotations["version"], cmd.Annotations["commit"])
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, httpserver.ErrClosed) {
			slog.Error("failed to start http server", "error", err)
			os.Exit(1)
		}
	}()

	setupShutdownHandlers(ctx, scheduler, &srv, kvStore, pubsubClient, cleanup)

	return nil
}

// loadConfig loads the configuration from context
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// setupScheduler creates and configures the job scheduler
func setupScheduler() (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return scheduler, nil
}

// setupTracing initializes OpenTelemetry tracing if configured.
// When tracing is not configured it returns a no-op cleanup function.
func setupTracing(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.Tracing.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	return initTracer(cfg)
}

// startBackgroundServices starts metrics and pprof servers, each on its own
// listener independent of the main API router.
func startBackgroundServices(cfg *config.Config) {
	go func() {
		err := metrics.CreateMetricsServer(cfg)
		if err != nil {
			slog.Error("failed to start metrics server", "error", err)
		}
	}()
	go func() {
		err := pprof.CreatePProfServer(cfg)
		if err != nil {
			slog.Error("failed to start pprof server", "error", err)
		}
	}()
}

const gcInterval = 5 * time.Minute
const gaugeInterval = 30 * time.Second

// setupHubJobs schedules the event/invite retention sweep and the
// Prometheus gauge refresh. Both are cheap, idempotent passes over the
// hub's in-memory and persisted state.
func setupHubJobs(_ *config.Config, scheduler gocron.Scheduler, h *hub.Hub) {
	_, err := scheduler.NewJob(
		gocron.DurationJob(gcInterval),
		gocron.NewTask(h.RunGC),
	)
	if err != nil {
		slog.Error("failed to schedule retention sweep", "error", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(gaugeInterval),
		gocron.NewTask(h.RefreshGauges),
	)
	if err != nil {
		slog.Error("failed to schedule gauge refresh", "error", err)
	}
}

// setupShutdownHandlers blocks until SIGINT/SIGTERM/SIGQUIT/SIGHUP is
// received, then stops the scheduler, the HTTP/WebSocket listener, the
// pubsub and KV connections, and the tracer in parallel, exiting with an
// error if they have not all finished within 10s (the tracer flush is also
// bounded by its own 5s timeout).
func setupShutdownHandlers(ctx context.Context, scheduler gocron.Scheduler, srv *httpserver.Server, kvStore kv.KV, pubsubClient pubsub.PubSub, cleanup func(context.Context) error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	sig := <-sigCh
	slog.Error("shutting down due to signal", "signal", sig)

	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scheduler.StopJobs(); err != nil {
			slog.Error("failed to stop scheduler jobs", "error", err)
		}
		if err := scheduler.Shutdown(); err != nil {
			slog.Error("failed to stop scheduler", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		srv.Stop()
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				slog.Error("failed to close pubsub", "error", err)
			}
		}
		if kvStore != nil {
			if err := kvStore.Close(); err != nil {
				slog.Error("failed to close kv", "error", err)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if cleanup != nil {
			const timeout = 5 * time.Second
			shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := cleanup(shutdownCtx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}
	}()

	const timeout = 10 * time.Second
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
		slog.Info("all servers stopped, shutting down gracefully")
		os.Exit(0)
	case <-time.After(timeout):
		slog.Error("shutdown timed out, forcing exit")
		os.Exit(1)
	}
}

func initTracer(cfg *config.Config) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Tracing.OTLPEndpoint),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "signalhub"),
			attribute.String("service.version", sdk.Version),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resources: %w", err)
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)
	return exporter.Shutdown, nil
}
