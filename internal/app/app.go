package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/LFronza/CineLink-sub000/internal/controller"
	connInmemory "github.com/LFronza/CineLink-sub000/internal/repository/connection/inmemory"
	roomInmemory "github.com/LFronza/CineLink-sub000/internal/repository/room/inmemory"
	roomRedis "github.com/LFronza/CineLink-sub000/internal/repository/room/redis"
	"github.com/LFronza/CineLink-sub000/internal/resolver"
	"github.com/LFronza/CineLink-sub000/internal/service/room"
	"github.com/LFronza/CineLink-sub000/internal/service/transcode"
	"github.com/LFronza/CineLink-sub000/pkg/ctxlogger"
	"github.com/LFronza/CineLink-sub000/pkg/redisclient"
)

type AppConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	LogLevel      string `json:"log_level"`
	MembersLimit  int    `json:"members_limit"`
	PlaylistLimit int    `json:"playlist_limit"`

	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`

	FFmpegPath        string   `json:"ffmpeg_path"`
	MediaDir          string   `json:"media_dir"`
	ProxyAllowedHosts []string `json:"proxy_allowed_hosts"`
}

// Rooms idle past this are reclaimed by the store.
const roomExpireDuration = 24 * time.Hour

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.PlaylistLimit < 1 {
		return fmt.Errorf("playlist limit must be greater than 0")
	}
	if cfg.MediaDir == "" {
		return fmt.Errorf("media dir must not be empty")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}
	logger := slog.New(&h)

	clock := clockwork.NewRealClock()

	var roomRepo room.RoomRepo
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		roomRepo = roomRedis.NewRepo(rc, roomExpireDuration)
	} else {
		roomRepo = roomInmemory.NewRepo()
	}

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	engine := transcode.NewEngine(
		transcode.NewFFmpegRunner(cfg.FFmpegPath),
		clock,
		logger,
		&transcode.Config{OutputRoot: cfg.MediaDir},
	)

	serverCtx, serverStopCtx := context.WithCancel(ctx)
	go engine.RunSweeper(serverCtx, 10*time.Minute)

	connRepo := connInmemory.NewRepo()
	roomService := room.NewService(
		roomRepo,
		connRepo,
		resolver.New(cfg.ProxyAllowedHosts),
		engine,
		clock,
		logger,
		&room.Config{
			MembersLimit:  cfg.MembersLimit,
			PlaylistLimit: cfg.PlaylistLimit,
		},
	)

	ctrl := controller.NewController(roomService, logger, &controller.Config{
		StreamDir:         cfg.MediaDir,
		ProxyAllowedHosts: cfg.ProxyAllowedHosts,
	})
	roomService.OnUpdate(ctrl.BroadcastUpdate)

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.GetMux()}

	// graceful shutdown
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
