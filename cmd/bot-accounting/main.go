// Command bot-accounting runs the warehouse custody daemon: the JSON
// gateway used by the chat adapter and the auto-confirmation scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andrew11morozovtwo/bot-accounting/internal/api"
	"github.com/andrew11morozovtwo/bot-accounting/internal/autosign"
	"github.com/andrew11morozovtwo/bot-accounting/internal/config"
	"github.com/andrew11morozovtwo/bot-accounting/internal/custody"
	"github.com/andrew11morozovtwo/bot-accounting/internal/db"
	"github.com/andrew11morozovtwo/bot-accounting/internal/notify"
	"github.com/andrew11morozovtwo/bot-accounting/internal/session"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

func main() {
	fs := flag.NewFlagSet("bot-accounting", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var envPath string
	fs.StringVar(&envPath, "env", ".env", "")
	fs.StringVar(&envPath, "e", ".env", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: bot-accounting [flags]

Flags:
  -c, -config <path>      TOML config file (default: built-in settings)
  -d, -db <path>          SQLite database path (default: bot-accounting.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -e, -env <path>         dotenv file read before the config (default: .env)
  -h, -help               show this help and exit

Flags override the config file.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	if err := config.LoadEnv(envPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}

	closeLog, err := setupLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("daemon failed", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	// Idempotent; creates the tables on first run.
	if err := db.EnsureSchema(database); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	password, err := bootstrap(ctx, database, cfg)
	if err != nil {
		return err
	}
	if password != "" {
		printGeneratedPassword(cfg.DBPath, password)
		fmt.Println()
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return err
	}

	notifier := notify.Log{Logger: slog.Default().With("component", "notify")}
	svc := custody.New(database, notifier, custody.WithLogger(slog.Default().With("component", "custody")))
	engine := session.NewEngine(session.NewMemoryStore(cfg.SessionTTL), svc)
	scheduler := autosign.New(database, notifier,
		autosign.WithInterval(cfg.AutosignInterval),
		autosign.WithWindow(cfg.AutosignWindow),
		autosign.WithLogger(slog.Default().With("component", "autosign")),
	)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.LoggingMiddleware(api.NewRouter(svc, engine, scheduler, jwtSecret)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server started", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	// Graceful shutdown on SIGINT/SIGTERM or when either side fails.
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			slog.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("server stopped, closing database")
	return err
}
