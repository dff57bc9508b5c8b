package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/reviewroom/server/internal/bridge"
	"github.com/reviewroom/server/internal/controller"
	"github.com/reviewroom/server/internal/repository/access/httpapi"
	connInmemory "github.com/reviewroom/server/internal/repository/connection/inmemory"
	registryInmemory "github.com/reviewroom/server/internal/repository/registry/inmemory"
	tokenRedis "github.com/reviewroom/server/internal/repository/token/redis"
	"github.com/reviewroom/server/internal/service/auth"
	"github.com/reviewroom/server/internal/service/room"
	"github.com/reviewroom/server/pkg/ctxlogger"
	"github.com/reviewroom/server/pkg/redisclient"
)

const (
	serviceName = "reviewroom"
	version     = "0.2.0"
)

type AppConfig struct {
	Secret        string `json:"-"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	LogLevel      string `json:"log_level"`
	ApiURL        string `json:"api_url"`
	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redis_db"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return fmt.Errorf("secret must be set")
	}
	if cfg.ApiURL == "" {
		return fmt.Errorf("api url must be set")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	// A missing message bus degrades to single-process fan-out and
	// unavailable locks; it must not keep the service from starting.
	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.WarnContext(ctx, "redis unreachable, running in single-process mode", "error", err)
		rc = nil
	} else {
		defer rc.Close()
	}

	registryRepo := registryInmemory.NewRepo(logger)
	connRepo := connInmemory.NewRepo(logger)
	accessRepo := httpapi.NewRepo(cfg.ApiURL, logger)

	authService := auth.NewService(cfg.Secret, tokenRedis.NewRepo(rc, logger), logger)

	b := bridge.New(rc, logger)
	roomService := room.NewService(registryRepo, connRepo, accessRepo, b, logger)
	ctrl := controller.NewController(roomService, authService, connRepo, serviceName, version, logger)

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	go func() {
		if err := b.Run(serverCtx, ctrl.Deliver); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(serverCtx, "bridge stopped", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
