package startup

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/memory"
	"ffmpeg-microservice/internal/workspace"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// ToolChecker reports whether the media tools can be executed.
type ToolChecker interface {
	Available() error
	Version(ctx context.Context) (string, error)
}

func section(title string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("%s", title)
	logging.Info("------------------------------------------------------------")
}

// PrintBanner prints the startup banner with build information.
func PrintBanner() {
	banner := `
------------------------------------------------------------
    ________________  _____________
   / ____/ ____/  |/  / __ \/ ____/  ____ ___  _____
  / /_  / /_  / /|_/ / /_/ / / __   / __ '__ \/ ___/
 / __/ / __/ / /  / / ____/ /_/ /  / / / / / (__  )
/_/   /_/   /_/  /_/_/    \____/  /_/ /_/ /_/____/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

// LogSystemInfo logs runtime and host details.
func LogSystemInfo() {
	section("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

// LogMemoryConfig logs the outcome of memory limit configuration.
func LogMemoryConfig(result memory.ConfigResult) {
	section("MEMORY")
	if !result.Configured {
		logging.Info("  Go memory limit: not set")
		logging.Info("")
		return
	}
	logging.Info("  Source:          %s", result.Source)
	if result.ContainerLimit > 0 {
		logging.Info("  Container limit: %s", humanize.IBytes(uint64(result.ContainerLimit)))
		logging.Info("  Ratio:           %.2f", result.Ratio)
	}
	logging.Info("  GOMEMLIMIT:      %s", humanize.IBytes(uint64(result.GoMemLimit)))
	logging.Info("")
}

// LogWorkDirSetup creates the work directory and verifies it is writable.
func LogWorkDirSetup(ws *workspace.Workspace) error {
	section("WORK DIRECTORY")
	logging.Info("  Path: %s", ws.Dir())

	if err := ws.EnsureDir(); err != nil {
		return fmt.Errorf("work directory: %w", err)
	}
	if err := ws.Writable(); err != nil {
		return fmt.Errorf("work directory not writable: %w", err)
	}
	logging.Info("  [OK] Work directory is writable")
	return nil
}

// LogSweepResult logs the startup removal of files left by a previous run.
func LogSweepResult(removed int, err error) {
	if err != nil {
		logging.Warn("  Initial sweep failed: %v", err)
		return
	}
	if removed > 0 {
		logging.Info("  [OK] Removed %d stale file(s) from a previous run", removed)
	}
	logging.Info("")
}

// LogTranscoderInit checks the ffmpeg/ffprobe binaries. A missing binary
// is a warning only; readiness reports it until it is installed.
func LogTranscoderInit(ctx context.Context, tool ToolChecker) bool {
	section("TRANSCODER")
	if err := tool.Available(); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Media endpoints will fail until ffmpeg and ffprobe are installed")
		logging.Info("")
		return false
	}

	version, err := tool.Version(ctx)
	if err != nil {
		logging.Warn("  Could not read ffmpeg version: %v", err)
	} else {
		logging.Info("  %s", version)
	}
	logging.Info("  [OK] FFmpeg and FFprobe are available")
	logging.Info("")
	return true
}

// LogTelemetryInit logs whether trace export is enabled.
func LogTelemetryInit(endpoint string, sampleRate float64) {
	section("TELEMETRY")
	if endpoint == "" {
		logging.Info("  Tracing: OFF (set OTEL_EXPORTER_OTLP_ENDPOINT to enable)")
	} else {
		logging.Info("  Tracing: ON")
		logging.Info("    Endpoint:    %s", endpoint)
		logging.Info("    Sample rate: %.2f", sampleRate)
	}
	logging.Info("")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	groups := make(map[string][]RouteInfo)
	for _, route := range routes {
		prefix := getRouteGroup(route.Path)
		groups[prefix] = append(groups[prefix], route)
	}

	groupKeys := make([]string, 0, len(groups))
	for k := range groups {
		groupKeys = append(groupKeys, k)
	}
	sort.Strings(groupKeys)

	logging.Info("  Registered routes (%d total):", len(routes))
	for _, group := range groupKeys {
		logging.Debug("  [%s]", group)
		for _, route := range groups[group] {
			logging.Info("    %-6s %s", route.Method, route.Path)
		}
	}
	logging.Info("")

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup returns the first path segment, or "root".
func getRouteGroup(path string) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if first == "" {
		return "root"
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}
