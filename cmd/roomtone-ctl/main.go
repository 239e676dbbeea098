// Command roomtone-ctl is an interactive controller for roomtone audio
// appliances.
//
// It connects to one appliance's HTTP API and push event channel, keeps a
// live mirror of device state, and exposes playback, equalizer, zone and
// catalog commands on an interactive prompt.
//
// Usage:
//
//	roomtone-ctl [flags]
//
// Flags:
//
//	-config string   Configuration file path (default "roomtone.yaml")
//	-host string     Appliance hostname or IP (overrides config)
//	-discover        Discover the appliance via mDNS when no host is set
//	-log-file string Event log file path (overrides config)
//	-debug           Mirror client events to stderr
//
// Examples:
//
//	# Connect to a known appliance
//	roomtone-ctl -host livingroom.local
//
//	# Find the appliance on the local network
//	roomtone-ctl -discover
//
//	# Keep a CBOR event log for later inspection
//	roomtone-ctl -host livingroom.local -log-file events.cbor
package main

import (
	"context"
	"flag"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/roomtone/roomtone-go/cmd/roomtone-ctl/interactive"
	"github.com/roomtone/roomtone-go/pkg/config"
	"github.com/roomtone/roomtone-go/pkg/discovery"
	"github.com/roomtone/roomtone-go/pkg/log"
	"github.com/roomtone/roomtone-go/pkg/service"
)

var (
	configFile = flag.String("config", "roomtone.yaml", "Configuration file path")
	host       = flag.String("host", "", "Appliance hostname or IP (overrides config)")
	discover   = flag.Bool("discover", false, "Discover the appliance via mDNS when no host is set")
	logFile    = flag.String("log-file", "", "Event log file path (overrides config)")
	debug      = flag.Bool("debug", false, "Mirror client events to stderr")
)

func main() {
	flag.Parse()
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	cfg, err := loadConfig()
	if err != nil {
		stdlog.Fatalf("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	browser := discovery.NewBrowser(discovery.DefaultConfig())
	if cfg.Appliance.Host == "" {
		stdlog.Println("Discovering appliance...")
		appliance, err := findAppliance(ctx, browser)
		if err != nil {
			stdlog.Fatalf("Discovery failed: %v", err)
		}
		stdlog.Printf("Found %s at %s:%d", appliance.Name, appliance.Host, appliance.Port)
		cfg.Appliance.Host = appliance.Host
		cfg.Appliance.Port = int(appliance.Port)
	}

	logger, closeLog, err := buildLogger(cfg)
	if err != nil {
		stdlog.Fatalf("Log setup failed: %v", err)
	}
	defer closeLog()

	svcConfig := service.DefaultConfig(cfg.BaseURL(), cfg.EventsURL())
	svcConfig.Write.ThrottleDelay = cfg.ThrottleDelay()
	svcConfig.Write.FinalDelay = cfg.FinalDelay()
	svcConfig.Catalog.StaleAfter = cfg.CatalogStaleAfter()
	svcConfig.Catalog.TTL = cfg.CatalogTTL()
	svcConfig.SnapshotPath = snapshotPath(cfg)
	svcConfig.Logger = logger

	svc, err := service.NewControllerService(svcConfig)
	if err != nil {
		stdlog.Fatalf("Failed to create controller service: %v", err)
	}

	if err := svc.Start(ctx); err != nil {
		stdlog.Fatalf("Failed to start service: %v", err)
	}
	stdlog.Printf("Connected to %s (state: %s)", cfg.BaseURL(), svc.State())

	// Keep the device list fresh from mDNS in the background.
	go browseAppliances(ctx, browser, svc)

	console, err := interactive.New(svc)
	if err != nil {
		stdlog.Fatalf("Failed to create console: %v", err)
	}
	// Route log output through readline so it does not clobber the prompt.
	stdlog.SetOutput(console.Stdout())
	go console.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Cancelled by the quit command.
	}

	stdlog.SetOutput(os.Stderr)
	stdlog.Println("Shutting down...")

	cancel()
	browser.Stop()
	if err := svc.Stop(); err != nil {
		stdlog.Printf("Error stopping service: %v", err)
	}
}

// loadConfig merges the config file with the command line flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		// A host-less config file is fine when a flag locates the appliance.
		if err != config.ErrNoAppliance || (*host == "" && !*discover) {
			return nil, err
		}
		cfg = config.Default()
	}

	if *host != "" {
		cfg.Appliance.Host = *host
	}
	if *discover {
		cfg.Appliance.Discover = true
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if *debug {
		cfg.Log.Debug = true
	}
	return cfg, cfg.Validate()
}

// buildLogger assembles the event logger from the log configuration:
// a CBOR file sink, an stderr mirror, both, or none.
func buildLogger(cfg *config.Config) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeLog := func() {}

	if cfg.Log.File != "" {
		fileLogger, err := log.NewFileLogger(cfg.Log.File)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fileLogger)
		closeLog = func() { _ = fileLogger.Close() }
	}
	if cfg.Log.Debug {
		slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		loggers = append(loggers, log.NewSlogAdapter(slogger))
	}

	switch len(loggers) {
	case 0:
		return nil, closeLog, nil
	case 1:
		return loggers[0], closeLog, nil
	default:
		return log.NewMultiLogger(loggers...), closeLog, nil
	}
}

// findAppliance blocks until the first appliance shows up on the network.
func findAppliance(ctx context.Context, browser *discovery.Browser) (*discovery.ApplianceService, error) {
	findCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return browser.FindFirst(findCtx)
}

// browseAppliances registers every appliance seen via mDNS as a target, and
// flags targets whose announcements disappear.
func browseAppliances(ctx context.Context, browser *discovery.Browser, svc *service.ControllerService) {
	added, removed, err := browser.Browse(ctx)
	if err != nil {
		stdlog.Printf("mDNS browse unavailable: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case appliance, ok := <-added:
			if !ok {
				return
			}
			svc.RegisterTarget(appliance.Target())
		case appliance, ok := <-removed:
			if !ok {
				return
			}
			target := appliance.Target()
			target.Reachable = false
			svc.RegisterTarget(target)
		}
	}
}

// snapshotPath places the catalog snapshot inside the configured cache dir.
func snapshotPath(cfg *config.Config) string {
	if cfg.Catalog.Dir == "" {
		return ""
	}
	if err := os.MkdirAll(cfg.Catalog.Dir, 0o755); err != nil {
		stdlog.Printf("Cannot create cache dir %s: %v", cfg.Catalog.Dir, err)
		return ""
	}
	return filepath.Join(cfg.Catalog.Dir, "catalog.json")
}
