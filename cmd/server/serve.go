package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
	"todo-list/api"
	"todo-list/config"
	"todo-list/database"
	"todo-list/handler"
	"todo-list/logging"
	"todo-list/metrics"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// loadConfig 读取配置并应用命令行参数
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
	if flags.databaseURL != "" {
		cfg.Store.URL = flags.databaseURL
	}
	// 命令行参数应用完之后统一校验
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func storeConfig(cfg *config.Config) database.StoreConfig {
	return database.StoreConfig{
		URL:            cfg.Store.URL,
		Database:       cfg.Store.Database,
		ConnectTimeout: cfg.Store.ConnectTimeout,
	}
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	m := metrics.New("todo")
	repo := database.NewRepository(
		database.WithLogger(logging.Component(logger, "database")),
		database.WithObserver(m),
	)

	h := handler.NewHandler(repo, handler.Info{
		Environment: cfg.Server.Environment,
		FrontendURL: cfg.Server.AllowedOrigin,
		BackendURL:  fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
	}, logging.Component(logger, "handler"))

	mux := api.SetupRoutes(h, api.Options{
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Metrics:       m,
		Logger:        logging.Component(logger, "http"),
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 先监听端口，连接数据库不阻塞服务就绪
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("environment", cfg.Server.Environment).Msg("server started")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		mode := repo.Select(gctx, storeConfig(cfg))
		logger.Info().Str("mode", string(mode)).Msg("persistence mode selected")
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("server forced to shutdown")
		}
		return nil
	})

	err = g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if cerr := repo.Close(closeCtx); cerr != nil {
		logger.Warn().Err(cerr).Msg("failed to close database")
	}

	return err
}
