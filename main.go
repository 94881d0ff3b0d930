package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hoshinonyaruko/snake-web/api"
	"github.com/hoshinonyaruko/snake-web/config"
	"github.com/hoshinonyaruko/snake-web/highscore"
	"github.com/hoshinonyaruko/snake-web/memimg"
)

const (
	configPath  = "./config.json"
	sessionTTL  = 10 * time.Minute
	reapEvery   = time.Minute
	shutdownMax = 5 * time.Second
)

func main() {
	// Initialize the configuration
	conf := config.LoadConfig(configPath)
	logger := config.NewLogger(os.Stderr, "snake")
	EnsureFoldersExist(logger, conf.SpritesDir, "output")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 最高分存储
	store, closeStore, err := highscore.OpenStore(conf.Store, conf.DBPath, conf.ScoreFile)
	if err != nil {
		logger.Fatal("failed to open score store", "store", conf.Store, "err", err)
	}
	defer closeStore()
	tracker := highscore.NewTracker(store, logger.WithPrefix("highscore"))

	// 载入贴图到内存，检测并热更新，加速绘图；配置里换了目录就跟着换
	sprites := memimg.NewWatcher(ctx, logger.WithPrefix("sprites"))
	if err := sprites.Watch(conf.SpritesDir); err != nil {
		logger.Warn("failed to load sprites, using flat colors", "err", err)
	}
	config.OnReload(func(c *config.AppConfig) {
		if c.SpritesDir == sprites.Dir() {
			return
		}
		if err := sprites.Watch(c.SpritesDir); err != nil {
			logger.Warn("failed to load sprites, using flat colors", "dir", c.SpritesDir, "err", err)
		}
	})
	go func() {
		if err := config.WatchConfig(ctx, configPath, logger.WithPrefix("config")); err != nil {
			logger.Warn("config watcher stopped", "err", err)
		}
	}()

	hub := api.NewHub(ctx, tracker, logger)
	go hub.Reap(ctx, sessionTTL, reapEvery)

	srv := &http.Server{
		Addr:    ":" + conf.Port,
		Handler: api.NewRouter(hub),
	}
	go func() {
		logger.Info("listening", "port", conf.Port, "store", conf.Store, "high_score", tracker.Best())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownMax)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}

// EnsureFoldersExist 检查并创建必需的文件夹
func EnsureFoldersExist(logger *log.Logger, folders ...string) {
	for _, folder := range folders {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			// 文件夹不存在，尝试创建它
			if err := os.MkdirAll(folder, 0755); err != nil {
				logger.Fatal("failed to create directory", "dir", folder, "err", err)
			}
			logger.Info("created directory", "dir", folder)
		} else {
			logger.Debug("directory already exists", "dir", folder)
		}
	}
}
