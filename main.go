// @title askap-notifier API
// @version 1.0
// @description Alert lifecycle hooks that enrich alerts and forward them to Slack.
// @BasePath /
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/atnf/askap-notifier/internal/client"
	"github.com/atnf/askap-notifier/internal/config"
	"github.com/atnf/askap-notifier/internal/db"
	"github.com/atnf/askap-notifier/internal/handler"
	"github.com/atnf/askap-notifier/internal/model"
	"github.com/atnf/askap-notifier/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "askap-notifier",
		Usage: "Enrich alerts and forward them to Slack",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{
			serveCmd,
			renderCmd,
			migrateCmd,
		},
		DefaultCommand: "serve",
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logrus.Fatalf("%v", err)
	}
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Run the lifecycle hook HTTP server",
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx := cctx.Context
		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		renderer, err := client.NewSlackRenderer(cfg)
		if err != nil {
			return fmt.Errorf("invalid slack template: %w", err)
		}
		notifier := service.NewNotifier(cfg, store, renderer, client.NewSlackClient(cfg.Slack))
		alertHandler := handler.NewAlertHandler(notifier, store)

		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           handler.NewRouter(alertHandler),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logrus.Infof("Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logrus.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var renderCmd = &cli.Command{
	Name:      "render",
	Usage:     "Enrich an alert and print the Slack payload without sending it",
	ArgsUsage: "[alert.json]",
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}

		in := io.Reader(os.Stdin)
		if path := cctx.Args().First(); path != "" && path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		var alert model.Alert
		if err := json.NewDecoder(in).Decode(&alert); err != nil {
			return fmt.Errorf("failed to parse alert: %w", err)
		}

		renderer, err := client.NewSlackRenderer(cfg)
		if err != nil {
			return fmt.Errorf("invalid slack template: %w", err)
		}
		store := db.NewMemory(0)
		defer store.Close()

		notifier := service.NewNotifier(cfg, store, renderer, client.NewSlackClient(cfg.Slack))
		enriched, err := notifier.PreReceive(cctx.Context, &alert)
		if err != nil {
			return err
		}
		payload, err := renderer.Render(enriched, "", "")
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cctx.App.Writer, string(out))
		return nil
	},
}

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "Create the alert tables in PostgreSQL",
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		if !cfg.Postgres.Enabled() {
			return errors.New("DATABASE_URL or PGUSER/PGDATABASE is required")
		}

		pg, err := db.NewPostgres(cctx.Context, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.EnsureAlertSchema(cctx.Context); err != nil {
			return err
		}
		logrus.Info("Alert schema is up to date")
		return nil
	},
}

func loadConfig(cctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := configureLogging(cfg.Log); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func configureLogging(cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

type alertStore interface {
	service.AlertStore
	handler.AttributeReader
}

// openStore - DB 설정이 있으면 PostgreSQL, 없으면 메모리 저장소
func openStore(ctx context.Context, cfg config.Config) (alertStore, func(), error) {
	if !cfg.Postgres.Enabled() {
		logrus.Warn("PostgreSQL not configured, flapping history is kept in memory")
		mem := db.NewMemory(cfg.Memory.Retention)
		return mem, func() { _ = mem.Close() }, nil
	}

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureAlertSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	logrus.Info("Using PostgreSQL alert store")
	return pg, pg.Close, nil
}
