// ABOUTME: Entry point for the hamco blog/notes server
// ABOUTME: Wires config, store, auth chain, key cache, and HTTP server together

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/hamco/hamco/internal/accounts"
	"github.com/hamco/hamco/internal/apikeys"
	"github.com/hamco/hamco/internal/auth"
	"github.com/hamco/hamco/internal/config"
	"github.com/hamco/hamco/internal/keycache"
	"github.com/hamco/hamco/internal/maintenance"
	"github.com/hamco/hamco/internal/metrics"
	"github.com/hamco/hamco/internal/notes"
	"github.com/hamco/hamco/internal/store"
	"github.com/hamco/hamco/internal/web"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _
| |__   __ _ _ __ ___   ___ ___
| '_ \ / _' | '_ ' _ \ / __/ _ \
| | | | (_| | | | | | | (_| (_) |
|_| |_|\__,_|_| |_| |_|\___\___/
`

// keyCacheMaxSize bounds the key validation cache. Automation fleets
// are small; a few thousand entries is generous.
const keyCacheMaxSize = 4096

// getConfigPath returns the path to the hamco config file.
// Priority: HAMCO_CONFIG env var > XDG_CONFIG_HOME/hamco/hamco.yaml > ~/.config/hamco/hamco.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HAMCO_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "hamco.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "hamco", "hamco.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: hamco <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                      Start the hamco server")
		fmt.Println("  init                       Write a starter config file")
		fmt.Println("  bootstrap --email ADDR     Create the first admin user")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	fmt.Println()

	logger.Info("starting hamco",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	var m *metrics.AuthMetrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	tokens := auth.NewTokenService(cfg.Auth)

	cache := keycache.New(auth.NewStoreResolver(st), cfg.Auth.KeyCacheTTL, keyCacheMaxSize)
	if m != nil {
		cache.WithObserver(m)
	}
	defer cache.Close()

	chain := auth.NewChain(tokens, cache)
	if m != nil {
		chain.WithObserver(m)
	}

	keySvc := apikeys.New(st, cache)
	accountSvc := accounts.New(st, tokens, &accounts.LogMailer{Logger: logger})
	noteSvc := notes.New(st)

	sched := maintenance.NewScheduler(cfg.Maintenance.Schedule, st, keySvc)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting maintenance scheduler: %w", err)
	}

	server := web.New(cfg, chain, accountSvc, noteSvc, keySvc, st, m)
	return server.Run(ctx)
}

// runBootstrap creates the first admin user directly against the store.
// Supports both "--email value" and "--email=value" formats.
func runBootstrap(ctx context.Context) error {
	var email string
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--email" || arg == "-e":
			if i+1 >= len(args) {
				return fmt.Errorf("--email requires a value")
			}
			email = args[i+1]
			i++
		case strings.HasPrefix(arg, "--email="):
			email = strings.TrimPrefix(arg, "--email=")
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("--email flag is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	password, err := readPassword()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user := &store.User{
		Email:         email,
		PasswordHash:  hash,
		Admin:         true,
		EmailVerified: true,
	}
	if err := st.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Println("Admin user created")
	fmt.Printf("  id:    %s\n", user.ID)
	fmt.Printf("  email: %s\n", user.Email)
	return nil
}

// readPassword reads a password from stdin, preferring the
// HAMCO_BOOTSTRAP_PASSWORD env var for non-interactive use.
func readPassword() (string, error) {
	if p := os.Getenv("HAMCO_BOOTSTRAP_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Print("Password: ")
	var p string
	if _, err := fmt.Scanln(&p); err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(p) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	return p, nil
}

// runInit writes a starter config file with a fresh random secret slot.
func runInit() error {
	outputFile := getConfigPath()
	if _, err := os.Stat(outputFile); err == nil {
		return fmt.Errorf("config file already exists: %s", outputFile)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	starter := `server:
  http_addr: ":8080"
  base_url: "http://localhost:8080"

database:
  path: hamco.db

auth:
  jwt_secret: ${HAMCO_JWT_SECRET}
  issuer: hamco
  audience: hamco-clients
  token_lifetime: 24h
  key_cache_ttl: 10s

logging:
  level: info
  format: text

metrics:
  enabled: false
  path: /metrics

maintenance:
  schedule: "0 3 * * *"
`

	if err := os.WriteFile(outputFile, []byte(starter), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("Wrote %s\n", outputFile)
	fmt.Println("Set HAMCO_JWT_SECRET (at least 32 bytes) before starting the server.")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs), then record attrs
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
