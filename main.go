package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yeo-menghan/big-brother-watching/internal/config"
	"github.com/yeo-menghan/big-brother-watching/internal/daemon"
	"github.com/yeo-menghan/big-brother-watching/internal/database"
	"github.com/yeo-menghan/big-brother-watching/internal/monitor"
	"github.com/yeo-menghan/big-brother-watching/internal/store"
	"github.com/yeo-menghan/big-brother-watching/internal/summary"
	"github.com/yeo-menghan/big-brother-watching/internal/web"
	"github.com/yeo-menghan/big-brother-watching/pkg/capture"
	"github.com/yeo-menghan/big-brother-watching/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "start":
		startMonitor()
	case "serve":
		serveMonitor()
	case "stop":
		stopMonitor()
	case "status":
		showStatus()
	case "analyze":
		analyzeData()
	case "clear":
		clearData()
	case "version":
		showVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`bbw - Local screen activity monitor

Usage:
  bbw <command> [options]

Commands:
  start              Start a monitoring session in the background
  serve              Start the web dashboard (sessions driven from the browser)
  stop               Stop the background monitoring session
  status             Show monitor status and the current foreground window
  analyze [--json]   Summarize recorded activity
  clear              Delete all recorded data and screenshots
  version            Show version information
  help               Show this help message

Options for start/serve:
  --interval N       Capture interval in seconds (1-60)
  --duration N       Session duration in minutes (1-120, 0 = until stopped)
  --output DIR       Output directory for the log and screenshots

Examples:
  bbw start --interval 5 --duration 30
  bbw serve
  bbw status
  bbw analyze --json
  bbw stop

Environment Variables:
  BBW_OUTPUT_DIR     Output directory
  BBW_INTERVAL       Capture interval in seconds (1-60)
  BBW_DURATION       Session duration in minutes (1-120, 0 = unbounded)
  BBW_DB_PATH        Session history database path
  BBW_PID_FILE       PID file path
  BBW_WEB_HOST       Dashboard bind host
  BBW_WEB_PORT       Dashboard bind port
  BBW_CONFIG         Config file path (YAML)

Version: %s
`, version.Version)
}

// loadConfig builds the effective configuration: defaults, config
// file, environment, then command-line flags. Out-of-range flag values
// fail immediately, they are never clamped.
func loadConfig(args []string) *config.Config {
	cfg := config.New()

	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	interval := fs.Int("interval", 0, "capture interval in seconds (1-60)")
	duration := fs.Int("duration", -1, "session duration in minutes (1-120, 0 = until stopped)")
	output := fs.String("output", "", "output directory")
	fs.Parse(args)

	if *interval != 0 {
		if err := cfg.SetInterval(time.Duration(*interval) * time.Second); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}
	if *duration >= 0 {
		if err := cfg.SetMaxDuration(time.Duration(*duration) * time.Minute); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}
	if *output != "" {
		cfg.Storage.OutputDir = *output
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// buildService wires the store, capturer, and optional diagnostics
// repository into a monitor service.
func buildService(cfg *config.Config) (*monitor.Service, *store.Store, *database.Repository, func()) {
	st := store.New(cfg.Storage.OutputDir)

	capturer, err := capture.New(st.ScreenshotDir())
	if err != nil {
		log.Fatalf("Failed to initialize capturer: %v", err)
	}
	log.Printf("Capture strategy: %s", capturer.Name())

	var repo *database.Repository
	cleanup := func() { capturer.Close() }

	db, err := database.Connect(cfg.Storage.DatabasePath)
	if err != nil {
		log.Printf("Warning: session history unavailable: %v", err)
	} else if err := db.Initialize(); err != nil {
		log.Printf("Warning: session history unavailable: %v", err)
		db.Close()
	} else {
		repo = database.NewRepository(db)
		cleanup = func() {
			capturer.Close()
			db.Close()
		}
	}

	var diag monitor.Diagnostics
	if repo != nil {
		diag = repo
	}
	return monitor.NewService(cfg, st, capturer, diag), st, repo, cleanup
}

func startMonitor() {
	cfg := loadConfig(os.Args[2:])

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check monitor status: %v", err)
	}
	if running {
		log.Fatalf("Monitor is already running (PID: %d)", pid)
	}

	if os.Getenv("BBW_DAEMON_CHILD") != "1" {
		daemonize(false)
		return
	}

	runStartMonitor(cfg, dm)
}

func runStartMonitor(cfg *config.Config, dm *daemon.Daemon) {
	logPath := fmt.Sprintf("/tmp/bbw-%d.log", os.Getuid())
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	svc, _, _, cleanup := buildService(cfg)
	defer cleanup()

	if err := dm.WritePID(); err != nil {
		log.Fatalf("Failed to write PID file: %v", err)
	}
	defer dm.RemovePID()

	log.Println("Starting monitoring session...")
	log.Printf("Configuration:\n%s", cfg.String())

	if err := svc.Start(); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for an explicit stop or for the duration cutoff to end the
	// session on its own.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sigChan:
			log.Println("Received shutdown signal")
			svc.Stop()
			log.Println("Monitor stopped successfully")
			return
		case <-ticker.C:
			if !svc.IsRunning() {
				log.Println("Session completed")
				return
			}
		}
	}
}

func serveMonitor() {
	cfg := loadConfig(os.Args[2:])

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check monitor status: %v", err)
	}
	if running {
		log.Fatalf("Monitor is already running (PID: %d)", pid)
	}

	if os.Getenv("BBW_DAEMON_CHILD") != "1" {
		daemonize(true)
		return
	}

	runServeMonitor(cfg, dm)
}

func runServeMonitor(cfg *config.Config, dm *daemon.Daemon) {
	logPath := fmt.Sprintf("/tmp/bbw-%d.log", os.Getuid())
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	svc, st, repo, cleanup := buildService(cfg)
	defer cleanup()

	if err := dm.WritePID(); err != nil {
		log.Fatalf("Failed to write PID file: %v", err)
	}
	defer dm.RemovePID()

	webServer := web.NewServer(cfg, svc, st, repo)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("Web server error: %v", err)
		}
	}()

	log.Println("Starting dashboard...")
	log.Printf("Dashboard available at: http://%s", webServer.GetAddress())
	log.Printf("Configuration:\n%s", cfg.String())

	<-sigChan
	log.Println("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	svc.Stop()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down web server: %v", err)
	}
	log.Println("Monitor stopped successfully")
}

func stopMonitor() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check monitor status: %v", err)
	}
	if !running {
		fmt.Println("Monitor is not running")
		return
	}
	fmt.Printf("Stopping monitor (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		log.Fatalf("Failed to stop monitor: %v", err)
	}
	fmt.Println("Monitor stopped successfully")
}

func showStatus() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check monitor status: %v", err)
	}
	if !running {
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
		fmt.Printf("Capture Interval: %v\n", cfg.Monitor.Interval)
		fmt.Printf("Output Dir: %s\n", cfg.Storage.OutputDir)
	}

	st := store.New(cfg.Storage.OutputDir)
	if records, err := st.ReadAll(); err == nil && len(records) > 0 {
		fmt.Printf("Recorded captures: %d\n", len(records))
	}

	capturer, err := capture.New("")
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return
	}
	defer capturer.Close()

	obs, err := capturer.Capture()
	if err == nil && obs != nil {
		fmt.Printf("\nCurrent Window:\n")
		fmt.Printf("  Title: %s\n", obs.WindowTitle)
		fmt.Printf("  Strategy: %s\n", capturer.Name())
	}
}

func analyzeData() {
	cfg := config.New()
	st := store.New(cfg.Storage.OutputDir)

	records, err := st.ReadAll()
	if err != nil {
		// An unparsable log means no usable data, not a crash.
		log.Printf("Activity log unreadable, treating as empty: %v", err)
		records = nil
	}

	analysis := summary.Analyze(records)

	jsonOutput := len(os.Args) > 2 && os.Args[2] == "--json"
	if jsonOutput {
		out, err := summary.FormatJSON(analysis)
		if err != nil {
			log.Fatalf("Failed to format JSON: %v", err)
		}
		fmt.Println(out)
	} else {
		fmt.Print(summary.FormatText(analysis))
	}
}

func clearData() {
	cfg := config.New()
	fmt.Print("This will delete all recorded data and screenshots. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)
	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}

	st := store.New(cfg.Storage.OutputDir)
	if err := st.Clear(); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}

	if db, err := database.Connect(cfg.Storage.DatabasePath); err == nil {
		repo := database.NewRepository(db)
		if err := repo.Clear(); err != nil {
			log.Fatalf("Failed to clear session history: %v", err)
		}
		db.Close()
	}

	fmt.Println("All recorded data cleared successfully")
}

func daemonize(withWeb bool) {
	env := os.Environ()
	env = append(env, "BBW_DAEMON_CHILD=1")
	args := os.Args
	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}
	process, err := os.StartProcess(args[0], args, procAttr)
	if err != nil {
		log.Fatalf("Failed to start monitor process: %v", err)
	}
	logPath := fmt.Sprintf("/tmp/bbw-%d.log", os.Getuid())
	fmt.Printf("Monitor started successfully (PID: %d)\n", process.Pid)
	if withWeb {
		fmt.Println("Dashboard available on the configured web address")
	}
	fmt.Printf("Logs: %s\n", logPath)
}

func showVersion() {
	fmt.Printf("version: %s\n", version.Version)
	fmt.Printf("built  : %s\n", version.Date)
}
