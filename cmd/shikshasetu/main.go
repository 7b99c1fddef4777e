package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/muqeet1001/shikshasetu/internal/cache"
	"github.com/muqeet1001/shikshasetu/internal/cloud"
	"github.com/muqeet1001/shikshasetu/internal/config"
	"github.com/muqeet1001/shikshasetu/internal/gateway"
	"github.com/muqeet1001/shikshasetu/internal/logger"
	"github.com/muqeet1001/shikshasetu/internal/metrics"
	"github.com/muqeet1001/shikshasetu/internal/netmon"
	"github.com/muqeet1001/shikshasetu/internal/offline"
	"github.com/muqeet1001/shikshasetu/internal/router"
	"github.com/muqeet1001/shikshasetu/internal/session"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe()
	case "chat":
		cmdChat()
	case "setup":
		cmdSetup()
	case "status":
		cmdStatus()
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ShikshaSetu — Career guidance for students, online or off

Usage:
  shikshasetu <command>

Commands:
  setup          Write a default config file
  serve          Start the HTTP gateway
  chat <text>    Ask a one-shot question from the terminal
  status         Show the state of a running gateway
  version        Print version
  help           Show this help`)
}

// stack bundles everything the gateway and CLI need
type stack struct {
	cfg      *config.Config
	gateway  *gateway.Gateway
	router   *router.Router
	monitor  *netmon.Monitor
	prober   *netmon.Prober
	sessions *session.Store
}

func buildStack(cfg *config.Config) *stack {
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	collector := metrics.Default()
	respCache := cache.New(cfg.Performance.CacheEnabled, cfg.Performance.MaxCacheSize)
	cloudSvc := cloud.NewService(cfg, respCache, collector)
	engine := offline.New(cfg.Offline.ConfidenceThreshold, nil)
	monitor := netmon.New()
	rt := router.New(cfg, cloudSvc, engine, monitor, collector)

	dbPath := cfg.Session.DBPath
	if dbPath == "" {
		dbPath = session.DefaultDBPath()
	}
	store, err := session.NewStore(dbPath, cfg.Session.MaxHistory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Session persistence unavailable: %v\n", err)
		store = nil
	}

	var prober *netmon.Prober
	if cfg.Probe.Enabled {
		interval := time.Duration(cfg.Probe.IntervalSeconds) * time.Second
		prober = netmon.NewProber(monitor, cfg.Probe.URL, interval)
	}

	return &stack{
		cfg:      cfg,
		gateway:  gateway.New(cfg, rt, monitor, store, respCache, collector),
		router:   rt,
		monitor:  monitor,
		prober:   prober,
		sessions: store,
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("ℹ️  No config file found, using defaults. Run 'shikshasetu setup' to create one.")
		cfg = config.Default()
	}

	result := cfg.Validate()
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "⚠️  %s\n", w)
	}
	if !result.IsValid() {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "❌ %s\n", e)
		}
		os.Exit(1)
	}

	return cfg
}

func cmdServe() {
	cfg := loadConfig()
	s := buildStack(cfg)

	if s.prober != nil {
		s.prober.Start()
		defer s.prober.Stop()
	}

	fmt.Printf("🎓 ShikshaSetu v%s\n", version)
	if err := s.gateway.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdChat() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: shikshasetu chat <message>")
		os.Exit(1)
	}
	message := strings.Join(os.Args[2:], " ")

	cfg := loadConfig()
	s := buildStack(cfg)

	// Probe once so the router knows whether the cloud is reachable.
	if s.prober != nil {
		s.prober.Start()
		defer s.prober.Stop()
		deadline := time.Now().Add(3 * time.Second)
		for s.monitor.Snapshot().InternetReachable == nil && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Performance.TimeoutMs)*time.Millisecond)
	defer cancel()

	result, err := s.router.Send(ctx, message, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.Text)
	fmt.Printf("\n— %s (%s", result.Source, result.Mode)
	if result.FallbackReason != "" {
		fmt.Printf(", %s", result.FallbackReason)
	}
	fmt.Printf(", %dms)\n", result.ResponseTime.Milliseconds())

	s.router.Close()
	if s.sessions != nil {
		s.sessions.Close()
	}
}

func cmdSetup() {
	fmt.Printf("🎓 ShikshaSetu v%s - Setup\n\n", version)

	if _, err := config.Load(); err == nil {
		fmt.Printf("⚠️  Config already exists at %s, leaving it alone.\n", config.Path())
		return
	}

	path, err := config.Save(config.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Config written: %s\n\n", path)
	fmt.Println("Set provider keys via environment or the config file:")
	fmt.Println("  SHIKSHASETU_GEMINI_API_KEY        primary cloud provider")
	fmt.Println("  SHIKSHASETU_HUGGINGFACE_API_KEY   fallback cloud provider")
	fmt.Println("\nWithout keys the assistant still works in offline mode.")
}

func cmdStatus() {
	cfg := loadConfig()
	url := fmt.Sprintf("http://%s:%d/status", cfg.Gateway.Bind, cfg.Gateway.Port)

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("❌ Gateway is not reachable at %s\n", url)
		fmt.Println("Start it with: shikshasetu serve")
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading status: %v\n", err)
		os.Exit(1)
	}

	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Println(string(body))
	}
}

func cmdVersion() {
	fmt.Printf("ShikshaSetu v%s\n", version)
}
