package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"heartlink/api"
	"heartlink/config"
	"heartlink/discovery"
	"heartlink/link"
	"heartlink/logging"
	"heartlink/notify"
	"heartlink/serial"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	port := flag.String("port", "", "Serial port to use instead of discovery")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	listPorts := flag.Bool("list-ports", false, "List available serial ports and exit")
	simulate := flag.Bool("simulate", false, "Print commands to stdout instead of using a device")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Display version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "HeartLink - haptic heart device bridge\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config config.json -port COM8\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list-ports\n", os.Args[0])
	}

	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("HeartLink version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Handle list-ports flag
	if *listPorts {
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		ports, err := discovery.New(quiet).List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Available serial ports:")
		if len(ports) == 0 {
			fmt.Println("  (none found)")
		} else {
			for _, p := range ports {
				fmt.Printf("  %s\n", p.Text())
			}
		}
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Device.Port = *port
	}
	if *simulate {
		cfg.Device.Simulate = true
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed:\n  %v\n", err)
		os.Exit(1)
	}

	// Handle validate flag
	if *validate {
		fmt.Println("Configuration is valid")
		fmt.Printf("  Instance: %s\n", cfg.App.InstanceID)
		device := cfg.Device.Port
		if device == "" {
			device = "(discover)"
		}
		fmt.Printf("  Device: %s, %d baud, settle %s\n", device, cfg.Device.BaudRate, cfg.Device.GetSettleDelay())
		fmt.Printf("  API port: %d\n", cfg.Server.Port)
		os.Exit(0)
	}

	// Setup logging
	appHandler, appCloser := logging.NewHandler(cfg.Logging, *debug, os.Stdout)
	defer appCloser.Close()
	trailHandler, trailCloser := logging.NewTrail(cfg.Trail)
	defer trailCloser.Close()

	logger := slog.New(appHandler)
	slog.SetDefault(logger)
	deviceLogger := slog.New(logging.Fanout(appHandler, trailHandler))

	logger.Info("HeartLink starting",
		"version", version,
		"instance", cfg.App.InstanceID,
		"simulate", cfg.Device.Simulate,
	)

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create Slack notifier
	slackNotifier := notify.NewSlackNotifier(&cfg.Slack, cfg.App.InstanceID, logger)

	// Transitions are reported off the connection lock
	var pending sync.WaitGroup
	onTransition := func(t link.Transition) {
		pending.Add(1)
		go func() {
			defer pending.Done()
			if err := slackNotifier.OnTransition(t); err != nil {
				logger.Warn("Failed to send device notification", "error", err)
			}
		}()
	}

	// Create device link
	disc := discovery.New(deviceLogger)
	manager := link.NewManager(linkConfig(cfg), disc, deviceLogger,
		link.WithOpener(opener(cfg)),
		link.WithStateHook(onTransition),
	)
	channel := link.NewChannel(manager)
	manager.Start()

	// Start API server
	info := api.Info{App: cfg.App.Name, InstanceID: cfg.App.InstanceID, Version: version}
	apiServer := api.NewServer(&cfg.Server, info, manager, channel, disc, logger)
	if err := apiServer.Start(); err != nil {
		logger.Error("Failed to start API server", "error", err)
		manager.Close()
		os.Exit(1)
	}

	// Send startup notification
	if err := slackNotifier.NotifyStartup(manager.Status()); err != nil {
		logger.Warn("Failed to send startup notification", "error", err)
	}

	startTime := time.Now()
	logger.Info("HeartLink running",
		"api_port", cfg.Server.Port,
		"device", manager.Status().PortName(),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("HeartLink shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("Error stopping API server", "error", err)
	}

	manager.Close()
	pending.Wait()

	stats := manager.Stats()
	uptime := time.Since(startTime)
	if err := slackNotifier.NotifyShutdown(stats, uptime); err != nil {
		logger.Warn("Failed to send shutdown notification", "error", err)
	}

	logger.Info("HeartLink stopped",
		"uptime", uptime,
		"commands_sent", stats.CommandsSent,
		"errors", stats.Errors,
	)
}

func linkConfig(cfg *config.Config) link.Config {
	lc := link.Config{
		Port:        cfg.Device.Port,
		BaudRate:    cfg.Device.BaudRate,
		ReadTimeout: cfg.Device.GetTimeout(),
		SettleDelay: cfg.Device.GetSettleDelay(),
	}
	if cfg.Device.Simulate {
		if lc.Port == "" {
			lc.Port = "simulator"
		}
		lc.SettleDelay = -1
	}
	return lc
}

func opener(cfg *config.Config) serial.Opener {
	if cfg.Device.Simulate {
		return serial.OpenStdoutPort
	}
	return serial.OpenPort
}
