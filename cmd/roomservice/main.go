package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rd "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/roomservice/internal/api"
	"github.com/dshills/roomservice/internal/config"
	"github.com/dshills/roomservice/internal/lock"
	"github.com/dshills/roomservice/internal/logging"
	"github.com/dshills/roomservice/internal/mcp"
	"github.com/dshills/roomservice/internal/menu"
	"github.com/dshills/roomservice/internal/notify"
	"github.com/dshills/roomservice/internal/repository"
	"github.com/dshills/roomservice/internal/service"
	"github.com/dshills/roomservice/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `usage: roomservice <command>

commands:
  serve            run the HTTP API (default)
  mcp              run the MCP server on stdio
  export <date>    write orders created on date (YYYY-MM-DD) as CSV to stdout
  --version        print build information
`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "--version", "version":
		fmt.Printf("Room Service\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		return
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	// Logs always go to stderr; stdout is reserved for MCP and CSV output.
	logger := logging.New("roomservice", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, os.Args[2:], cfg, logger); err != nil {
		logger.Error("roomservice exited", "action", "exit", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting",
		"action", "startup", "command", cmd, "version", version,
		"build_mode", storage.BuildMode, "driver", storage.DriverName, "db", cfg.DBPath)

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	catalog := menu.NewCatalog(store, cfg.MenuVersion, logger)
	if _, err := catalog.SeedDefault(ctx); err != nil {
		return fmt.Errorf("failed to seed menu: %w", err)
	}

	locker, closeLocker := newLocker(cfg, logger)
	defer closeLocker()

	bridge, err := notify.New(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize kitchen notifier: %w", err)
	}
	defer func() { _ = bridge.Close() }()

	repo := repository.New(store, repository.Options{
		Locker:      locker,
		LockTimeout: cfg.LockTimeout,
		Location:    cfg.Location,
		Logger:      logger,
	})
	svc := service.New(repo, catalog, bridge, service.Options{
		Location:     cfg.Location,
		PropertyName: cfg.PropertyName,
		Currency:     cfg.Currency,
		Logger:       logger,
	})

	switch cmd {
	case "serve":
		return serve(ctx, cfg, svc, store, logger)
	case "mcp":
		return mcp.NewServer(svc, logger).Serve(ctx)
	case "export":
		if len(args) != 1 {
			return fmt.Errorf("export requires a date (YYYY-MM-DD)")
		}
		out, err := svc.ExportCSV(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(os.Stdout, out)
		return err
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func serve(ctx context.Context, cfg config.Config, svc *service.Service, db pinger, logger *slog.Logger) error {
	gate, err := api.NewGate(cfg.Passphrase, cfg.PassphraseHash, 0)
	if err != nil {
		return fmt.Errorf("failed to initialize passphrase gate: %w", err)
	}
	if cfg.PassphraseHash == "" && cfg.Passphrase == config.DefaultPassphrase {
		logger.Warn("using the default operator passphrase", "action", "startup")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "action", "http_start", "addr", cfg.HTTPAddr)
		return api.Serve(ctx, cfg.HTTPAddr, api.NewRouter(svc, gate, logger))
	})
	g.Go(func() error {
		watchDatabase(ctx, db, logger)
		return nil
	})
	return g.Wait()
}

// watchDatabase logs when the database stops answering
func watchDatabase(ctx context.Context, db pinger, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.Ping(ctx); err != nil && ctx.Err() == nil {
				logger.Error("database ping failed", "action", "db_health", "error", err)
			}
		}
	}
}

// newLocker picks the Redis lock when REDIS_ADDR is set so several
// instances can share one database
func newLocker(cfg config.Config, logger *slog.Logger) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		return lock.NewKeyedMutex(), func() {}
	}
	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	logger.Info("using redis order lock", "action", "startup", "redis_addr", cfg.RedisAddr)
	return lock.NewRedisLocker(rdb, "roomservice", lock.DefaultTTL), func() { _ = rdb.Close() }
}
