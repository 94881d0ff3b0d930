package config

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// AppConfig holds the structure of the configuration
type AppConfig struct {
	SelfPath   string `json:"selfpath"`
	Port       string `json:"port"`
	Blocksize  int    `json:"blocksize"`
	Store      string `json:"store"` // sqlite, file or memory
	DBPath     string `json:"dbpath"`
	ScoreFile  string `json:"scorefile"`
	SpritesDir string `json:"spritesdir"`
	SSHAddr    string `json:"sshaddr"`
	HostKey    string `json:"hostkey"`
	LogLevel   string `json:"loglevel"`
}

// DefaultBlocksize is the cell size in pixels used when the configured one is not positive.
const DefaultBlocksize = 20

var (
	instance *AppConfig
	once     sync.Once
	mu       sync.RWMutex
	hooks    []func(*AppConfig)
)

func defaults() *AppConfig {
	return &AppConfig{
		SelfPath:   "localhost:38870", // Default value
		Port:       "38870",           // Default value
		Blocksize:  DefaultBlocksize,
		Store:      "sqlite",
		DBPath:     "game.db",
		ScoreFile:  "highscore.json",
		SpritesDir: "./sprites",
		SSHAddr:    ":2222",
		HostKey:    ".ssh/snake_ed25519",
		LogLevel:   "info",
	}
}

// LoadConfig initializes and returns the instance of AppConfig
func LoadConfig(filePath string) *AppConfig {
	once.Do(func() {
		c := defaults()
		// Load the config file if it exists, otherwise create one
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			saveConfig(filePath, c)
		} else {
			loadConfig(filePath, c)
		}
		applyEnv(c)
		if c.Blocksize <= 0 {
			c.Blocksize = DefaultBlocksize
		}

		mu.Lock()
		instance = c
		mu.Unlock()
	})
	return Get()
}

// Get returns a copy of the current configuration.
func Get() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		return defaults()
	}
	c := *instance
	return &c
}

// loadConfig loads the settings from the file
func loadConfig(filePath string, into *AppConfig) {
	file, err := os.Open(filePath)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(into); err != nil {
		panic(err)
	}
}

// saveConfig saves the current settings to the file
func saveConfig(filePath string, c *AppConfig) {
	file, err := os.Create(filePath)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		panic(err)
	}
}

// applyEnv lets SNAKE_* environment variables win over the file.
func applyEnv(c *AppConfig) {
	c.SelfPath = GetEnv("SNAKE_SELFPATH", c.SelfPath)
	c.Port = GetEnv("SNAKE_PORT", c.Port)
	if v, err := strconv.Atoi(GetEnv("SNAKE_BLOCKSIZE", strconv.Itoa(c.Blocksize))); err == nil && v > 0 {
		c.Blocksize = v
	}
	c.Store = GetEnv("SNAKE_STORE", c.Store)
	c.DBPath = GetEnv("SNAKE_DBPATH", c.DBPath)
	c.ScoreFile = GetEnv("SNAKE_SCOREFILE", c.ScoreFile)
	c.SpritesDir = GetEnv("SNAKE_SPRITESDIR", c.SpritesDir)
	c.SSHAddr = GetEnv("SNAKE_SSHADDR", c.SSHAddr)
	c.HostKey = GetEnv("SNAKE_HOSTKEY", c.HostKey)
	c.LogLevel = GetEnv("SNAKE_LOGLEVEL", c.LogLevel)
}

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not set.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetConfigValue returns the value of the configuration by key
func GetConfigValue(key string) interface{} {
	c := Get()
	switch key {
	case "selfpath":
		return c.SelfPath
	case "port":
		return c.Port
	case "blocksize":
		return c.Blocksize
	case "store":
		return c.Store
	case "dbpath":
		return c.DBPath
	case "scorefile":
		return c.ScoreFile
	case "spritesdir":
		return c.SpritesDir
	case "sshaddr":
		return c.SSHAddr
	case "hostkey":
		return c.HostKey
	case "loglevel":
		return c.LogLevel
	default:
		return ""
	}
}

// reload re-reads the file. Port and store only take effect on restart.
func reload(filePath string, logger *log.Logger) {
	next := Get()
	if err := decodeFile(filePath, next); err != nil {
		logger.Warn("config reload failed, keeping previous values", "err", err)
		return
	}
	applyEnv(next)
	if next.Blocksize <= 0 {
		next.Blocksize = Get().Blocksize
	}

	mu.Lock()
	if instance != nil && (next.Port != instance.Port || next.Store != instance.Store) {
		logger.Info("port and store changes apply after restart")
	}
	instance = next
	fns := append([]func(*AppConfig){}, hooks...)
	mu.Unlock()
	logger.Info("config reloaded", "blocksize", next.Blocksize, "spritesdir", next.SpritesDir)

	for _, fn := range fns {
		c := *next
		fn(&c)
	}
}

// OnReload registers fn to run with the new configuration after every hot reload.
func OnReload(fn func(*AppConfig)) {
	mu.Lock()
	defer mu.Unlock()
	hooks = append(hooks, fn)
}

func decodeFile(filePath string, into *AppConfig) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewDecoder(file).Decode(into)
}

// WatchConfig reloads the file whenever it is written, until ctx is done.
func WatchConfig(ctx context.Context, filePath string, logger *log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filePath); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				reload(filePath, logger)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher", "err", err)
		}
	}
}

// NewLogger builds a logger at the configured level. An unknown level falls back to info.
func NewLogger(w io.Writer, prefix string) *log.Logger {
	level, err := log.ParseLevel(Get().LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           level,
	})
}
