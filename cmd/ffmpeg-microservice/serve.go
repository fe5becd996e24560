package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ffmpeg-microservice/internal/handlers"
	"ffmpeg-microservice/internal/ingest"
	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/memory"
	"ffmpeg-microservice/internal/metrics"
	"ffmpeg-microservice/internal/middleware"
	"ffmpeg-microservice/internal/startup"
	"ffmpeg-microservice/internal/telemetry"
	"ffmpeg-microservice/internal/transcoder"
	"ffmpeg-microservice/internal/workspace"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), *configFlag)
		},
	}
}

// loadConfig reads the configuration and applies the log level it names.
func loadConfig(configPath string) (*startup.Config, error) {
	cfg, err := startup.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if level, ok := logging.ParseLevel(cfg.LogLevel); ok && os.Getenv("DEBUG") == "" {
		logging.SetLevel(level)
	}
	return cfg, nil
}

func newTranscoder(cfg *startup.Config) *transcoder.Transcoder {
	return transcoder.New(transcoder.Options{
		FFmpegPath:    cfg.FFmpegPath,
		FFprobePath:   cfg.FFprobePath,
		Timeout:       cfg.ToolTimeout,
		MaxConcurrent: cfg.MaxConcurrentTools,
	})
}

func runServer(ctx context.Context, configPath string) error {
	startTime := time.Now()

	memResult := memory.ConfigureFromEnv()
	startup.PrintBanner()
	startup.LogSystemInfo()
	startup.LogMemoryConfig(memResult)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	startup.LogConfig(cfg)

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    handlers.ServiceName,
		ServiceVersion: startup.Version,
		Endpoint:       cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	startup.LogTelemetryInit(cfg.OTLPEndpoint, cfg.TraceSampleRate)

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	trans := newTranscoder(cfg)
	startup.LogTranscoderInit(ctx, trans)

	ws, err := workspace.New(cfg.WorkDir)
	if err != nil {
		return err
	}
	if err := startup.LogWorkDirSetup(ws); err != nil {
		return err
	}
	startup.LogSweepResult(ws.Sweep(cfg.StaleFileAge))

	resolver := ingest.New(ingest.Options{
		MaxUploadBytes:   cfg.MaxUploadSize,
		MaxDownloadBytes: cfg.MaxDownloadSize,
		DownloadTimeout:  cfg.DownloadTimeout,
	})
	h := handlers.New(trans, resolver, ws)

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, cfg.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           buildHandler(router, cfg),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.MetricsEnabled {
		metricsSrv = newMetricsServer(cfg.MetricsPort, h)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error { return listen(srv, "application") })
	if metricsSrv != nil {
		g.Go(func() error { return listen(metricsSrv, "metrics") })
	}
	g.Go(func() error {
		ws.StartJanitor(gctx, cfg.SweepInterval, cfg.StaleFileAge)
		return nil
	})
	g.Go(func() error {
		reason := waitForShutdown(gctx)
		cancelRun()
		return shutdown(reason, cfg.ShutdownTimeout, trans, shutdownTracing, srv, metricsSrv)
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            cfg.Port,
		MetricsPort:     cfg.MetricsPort,
		MetricsEnabled:  cfg.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	return g.Wait()
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Media operations
	r.HandleFunc("/video/info", h.ProbeVideo).Methods("POST")
	r.HandleFunc("/video/convert", h.ConvertVideo).Methods("POST")
	r.HandleFunc("/video/convert-from-url", h.ConvertFromURL).Methods("POST")
	r.HandleFunc("/video/thumbnail", h.ExtractThumbnail).Methods("POST")
	r.HandleFunc("/audio/convert", h.ConvertAudio).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.NotFound)

	return r
}

// buildHandler wraps the router from outside so unmatched routes and
// preflight requests still pass through logging and CORS.
func buildHandler(router http.Handler, cfg *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = cfg.LogHealthChecks

	return middleware.Chain(router,
		middleware.Logger(loggingConfig),
		middleware.Recovery,
		middleware.Tracing(handlers.ServiceName),
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.Metrics(middleware.DefaultMetricsConfig()),
		middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		middleware.BodyLimit(middleware.BodyLimitConfig{
			MaxJSONBytes:   cfg.MaxJSONSize,
			MaxUploadBytes: cfg.MaxUploadSize,
		}),
		middleware.Compression(middleware.DefaultCompressionConfig()),
	)
}

func newMetricsServer(port string, h *handlers.Handlers) *http.Server {
	r := http.NewServeMux()
	r.Handle("/metrics", h.MetricsHandler())

	return &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func listen(srv *http.Server, name string) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

// waitForShutdown blocks until SIGINT/SIGTERM or ctx is done and returns
// the reason.
func waitForShutdown(ctx context.Context) string {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		return sig.String()
	case <-ctx.Done():
		return "context done"
	}
}

func shutdown(reason string, timeout time.Duration, trans *transcoder.Transcoder, shutdownTracing telemetry.ShutdownFunc, servers ...*http.Server) error {
	startup.LogShutdownInitiated(reason)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	startup.LogShutdownStep("Shutting down HTTP servers")
	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Server %s shutdown error: %v", srv.Addr, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	startup.LogShutdownStepComplete("HTTP servers stopped")

	// In-flight jobs still holding processes after the grace period are killed.
	startup.LogShutdownStep("Stopping ffmpeg processes")
	if n := trans.Running(); n > 0 {
		logging.Warn("  Killing %d running ffmpeg process(es)", n)
	}
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Flushing traces")
	if err := shutdownTracing(ctx); err != nil {
		logging.Warn("Trace shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Tracing stopped")
	}

	startup.LogShutdownComplete()
	return firstErr
}
