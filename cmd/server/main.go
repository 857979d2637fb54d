package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"

	"event-scheduler/db"
	"event-scheduler/internal/api"
	"event-scheduler/internal/auth"
	"event-scheduler/internal/calendar"
	"event-scheduler/internal/client"
	"event-scheduler/internal/config"
	gweb "event-scheduler/internal/grpcweb"
	"event-scheduler/internal/handler"
	"event-scheduler/internal/middleware"
	"event-scheduler/internal/notifier"
	"event-scheduler/internal/reminder"
	"event-scheduler/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "event-scheduler",
		Usage: "Shared event calendar with double-booking checks and reminders.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", EnvVars: []string{"CONFIG_FILE"}, Usage: "YAML config file; missing means defaults."},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			notifyCommand(),
			hashSecretCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the gRPC service, the grpc-web bridge and the reminder loop.",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := connect(ctx, cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer pool.Close()
			if !cfg.SkipMigrate {
				if err := db.Migrate(ctx, pool, logger); err != nil {
					return err
				}
			}

			st := store.New(pool)
			events := calendar.New(st, logger)
			queue := reminder.NewQueue(st, cfg.Reminder.Lookahead, logger)
			h := handler.New(events, st, queue, handler.Options{
				Secret:       cfg.JWTSecret,
				TokenTTL:     cfg.TokenTTL,
				Clients:      cfg,
				CalendarHost: cfg.CalendarHost,
			}, logger)

			rl := middleware.NewRateLimiter(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
			srv := grpc.NewServer(
				grpc.ForceServerCodec(api.Codec{}),
				grpc.ChainUnaryInterceptor(
					middleware.Logging(logger),
					middleware.RateLimit(rl),
					middleware.Auth(cfg.JWTSecret),
				),
			)
			api.RegisterEventServiceServer(srv, h)

			grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
			if err != nil {
				return fmt.Errorf("listen grpc: %w", err)
			}
			webLis, err := net.Listen("tcp", ":"+cfg.WebPort)
			if err != nil {
				grpcLis.Close()
				return fmt.Errorf("listen web: %w", err)
			}

			// browsers go through the bridge, which dials the native server
			bridge, err := gweb.New("localhost:"+cfg.GRPCPort, h, st.Ping, cfg.JWTSecret, logger)
			if err != nil {
				grpcLis.Close()
				webLis.Close()
				return err
			}
			defer bridge.Close()
			httpSrv := &http.Server{
				Handler:           bridge.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			var loop *notifier.Loop
			if cfg.Reminder.InProcess {
				loop = notifier.New(queue, newSender(cfg, logger), st, cfg.Reminder.PollInterval, logger)
			}
			return run(ctx, logger, loop, srv, grpcLis, httpSrv, webLis)
		},
	}
}

// run starts the reminder loop, then serves both listeners until ctx ends
// or a server fails. Nothing is left running when it returns.
func run(ctx context.Context, logger *slog.Logger, loop *notifier.Loop, srv *grpc.Server, grpcLis net.Listener, httpSrv *http.Server, webLis net.Listener) error {
	if loop != nil {
		if err := loop.Start(); err != nil {
			grpcLis.Close()
			webLis.Close()
			return err
		}
	}

	errc := make(chan error, 2)
	go func() {
		if err := srv.Serve(grpcLis); err != nil {
			errc <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		if err := httpSrv.Serve(webLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	logger.Info("listening", "grpc", grpcLis.Addr().String(), "web", webLis.Addr().String())

	var err error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
		logger.Error("server failed", "error", err)
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if loop != nil {
		if err := loop.Stop(sctx); err != nil {
			logger.Warn("notifier stop", "error", err)
		}
	}
	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	srv.GracefulStop()
	return err
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations and exit.",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			pool, err := connect(c.Context, cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer pool.Close()
			return db.Migrate(c.Context, pool, logger)
		},
	}
}

func notifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Run the reminder loop against a remote server.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run a single poll and exit."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			if cfg.Notify.ClientID == "" || cfg.Notify.ClientSecret == "" {
				return errors.New("NOTIFY_CLIENT_ID and NOTIFY_CLIENT_SECRET are required")
			}

			remote, err := client.Dial(cfg.NotifyAddr(), cfg.Notify.ClientID, cfg.Notify.ClientSecret)
			if err != nil {
				return err
			}
			defer remote.Close()

			loop := notifier.New(remote, newSender(cfg, logger), remote, cfg.Reminder.PollInterval, logger)
			if c.Bool("once") {
				res, err := loop.Poll(c.Context)
				if err != nil {
					return err
				}
				logger.Info("poll done", "claimed", res.Claimed, "delivered", res.Delivered, "failed", res.Failed)
				return nil
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := loop.Start(); err != nil {
				return err
			}
			logger.Info("notifier running", "server", cfg.NotifyAddr(), "interval", loop.Interval())
			<-ctx.Done()

			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return loop.Stop(sctx)
		},
	}
}

func hashSecretCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-secret",
		Usage:     "Print the bcrypt hash of a client secret for the clients list.",
		ArgsUsage: "[secret]",
		Action: func(c *cli.Context) error {
			secret := c.Args().First()
			if secret == "" {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read secret: %w", err)
				}
				secret = strings.TrimSpace(line)
			}
			if secret == "" {
				return errors.New("empty secret")
			}
			hash, err := auth.HashSecret(secret)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func newSender(cfg *config.Config, logger *slog.Logger) notifier.Sender {
	if cfg.Reminder.WebhookURL != "" {
		return notifier.NewWebhookSender(cfg.Reminder.WebhookURL)
	}
	return notifier.LogSender{Log: logger}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
