package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sharetube/lockstep/internal/controller"
	connInmemory "github.com/sharetube/lockstep/internal/repository/connection/inmemory"
	roomRepo "github.com/sharetube/lockstep/internal/repository/room"
	roomInmemory "github.com/sharetube/lockstep/internal/repository/room/inmemory"
	roomRedis "github.com/sharetube/lockstep/internal/repository/room/redis"
	"github.com/sharetube/lockstep/internal/service/room"
	"github.com/sharetube/lockstep/pkg/ctxlogger"
	"github.com/sharetube/lockstep/pkg/redisclient"
	"github.com/sharetube/lockstep/pkg/ytvideodata"
)

const (
	StoreInmemory = "inmemory"
	StoreRedis    = "redis"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	LogLevel           string        `json:"log_level"`
	MembersLimit       int           `json:"members_limit"`
	PlaylistLimit      int           `json:"playlist_limit"`
	Store              string        `json:"store"`
	RedisHost          string        `json:"redis_host"`
	RedisPort          int           `json:"redis_port"`
	RedisPassword      string        `json:"-"`
	RoomTTL            time.Duration `json:"room_ttl"`
	NegativeAcks       bool          `json:"negative_acks"`
	WSPingPeriod       time.Duration `json:"ws_ping_period"`
	WSWriteWait        time.Duration `json:"ws_write_wait"`
	WSReadLimit        int64         `json:"ws_read_limit"`
	WSSendBuffer       int           `json:"ws_send_buffer"`
	VideoInfoCacheSize int           `json:"video_info_cache_size"`
	VideoInfoTimeout   time.Duration `json:"video_info_timeout"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.PlaylistLimit < 1 {
		return fmt.Errorf("playlist limit must be greater than 0")
	}
	if cfg.Store != StoreInmemory && cfg.Store != StoreRedis {
		return fmt.Errorf("unknown store %q, expected %q or %q", cfg.Store, StoreInmemory, StoreRedis)
	}
	if cfg.WSSendBuffer < 1 {
		return fmt.Errorf("ws send buffer must be greater than 0")
	}
	if cfg.VideoInfoCacheSize < 1 {
		return fmt.Errorf("video info cache size must be greater than 0")
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLogLevel(level string) (slog.Level, error) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return logLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return logLevel, nil
}

func NewLogger(level string) (*slog.Logger, error) {
	logLevel, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

func newRoomRepo(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (roomRepo.Repository, func(), error) {
	if cfg.Store != StoreRedis {
		return roomInmemory.NewRepo(logger), func() {}, nil
	}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	repo, err := roomRedis.NewRepo(ctx, rc, cfg.RoomTTL, logger)
	if err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("failed to create redis room repo: %w", err)
	}

	return repo, func() { rc.Close() }, nil
}

// NewHandler wires the relay and returns its HTTP handler. cleanup releases
// the store connection.
func NewHandler(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (handler http.Handler, cleanup func(), err error) {
	repo, cleanup, err := newRoomRepo(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	videoInfo, err := ytvideodata.NewCache(
		ytvideodata.NewFetcher(ytvideodata.WithHTTPClient(&http.Client{Timeout: cfg.VideoInfoTimeout})),
		cfg.VideoInfoCacheSize,
	)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create video info cache: %w", err)
	}

	connRepo := connInmemory.NewRepo(logger)
	roomService := room.NewService(repo, connRepo, &room.Config{
		MembersLimit:  cfg.MembersLimit,
		PlaylistLimit: cfg.PlaylistLimit,
	}, logger)
	ctrl := controller.NewController(roomService, connRepo, videoInfo, &controller.Config{
		NegativeAcks: cfg.NegativeAcks,
		PingPeriod:   cfg.WSPingPeriod,
		WriteWait:    cfg.WSWriteWait,
		ReadLimit:    cfg.WSReadLimit,
		SendBuffer:   cfg.WSSendBuffer,
	}, logger)

	return ctrl.GetMux(), cleanup, nil
}

// Run serves until ctx is cancelled or a termination signal arrives.
func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	handler, cleanup, err := NewHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: handler}

	// graceful shutdown
	serverCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	shutdownErr := make(chan error, 1)
	go func() {
		<-serverCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.InfoContext(shutdownCtx, "shutting down server")
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "store", cfg.Store)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
