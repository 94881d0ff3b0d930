package config

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func resetSingleton() {
	once = sync.Once{}
	mu.Lock()
	instance = nil
	hooks = nil
	mu.Unlock()
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	resetSingleton()
	path := filepath.Join(t.TempDir(), "config.json")

	c := LoadConfig(path)
	if c.Port != "38870" || c.Blocksize != 20 || c.Store != "sqlite" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	var onDisk AppConfig
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk.Port != "38870" {
		t.Errorf("file port = %q", onDisk.Port)
	}
}

func TestLoadConfigReadsFileAndEnv(t *testing.T) {
	resetSingleton()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"port":"9000","blocksize":12,"store":"file"}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SNAKE_STORE", "memory")

	LoadConfig(path)
	if got := GetConfigValue("port").(string); got != "9000" {
		t.Errorf("port = %q", got)
	}
	if got := GetConfigValue("blocksize").(int); got != 12 {
		t.Errorf("blocksize = %d", got)
	}
	if got := GetConfigValue("store").(string); got != "memory" {
		t.Errorf("store = %q, env should win", got)
	}
	// 没有写在文件里的键使用默认值
	if got := GetConfigValue("dbpath").(string); got != "game.db" {
		t.Errorf("dbpath = %q", got)
	}
	if got := GetConfigValue("nope"); got != "" {
		t.Errorf("unknown key = %v", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SNAKE_TEST_KEY", "set")
	if got := GetEnv("SNAKE_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("SNAKE_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnv = %q", got)
	}
}

func TestWatchConfigReloads(t *testing.T) {
	resetSingleton()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"blocksize":20}`), 0644); err != nil {
		t.Fatal(err)
	}
	LoadConfig(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- WatchConfig(ctx, path, log.New(io.Discard)) }()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte(`{"blocksize":32}`), 0644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for GetConfigValue("blocksize").(int) != 32 {
		if time.Now().After(deadline) {
			t.Fatal("blocksize not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("WatchConfig = %v", err)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	resetSingleton()
	t.Setenv("SNAKE_LOGLEVEL", "debug")
	LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	if l := NewLogger(io.Discard, "snake"); l.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v", l.GetLevel())
	}

	resetSingleton()
	t.Setenv("SNAKE_LOGLEVEL", "loud")
	LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	if l := NewLogger(io.Discard, ""); l.GetLevel() != log.InfoLevel {
		t.Errorf("fallback level = %v", l.GetLevel())
	}
}

func TestLoadConfigRejectsBadBlocksize(t *testing.T) {
	for _, body := range []string{`{"blocksize":0}`, `{"blocksize":-4}`} {
		resetSingleton()
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		if c := LoadConfig(path); c.Blocksize != DefaultBlocksize {
			t.Errorf("%s: blocksize = %d, want %d", body, c.Blocksize, DefaultBlocksize)
		}
	}
}

func TestOnReloadSeesNewSpritesDir(t *testing.T) {
	resetSingleton()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"spritesdir":"./a"}`), 0644); err != nil {
		t.Fatal(err)
	}
	LoadConfig(path)

	got := make(chan string, 8)
	OnReload(func(c *AppConfig) {
		select {
		case got <- c.SpritesDir:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchConfig(ctx, path, log.New(io.Discard))
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte(`{"spritesdir":"./b"}`), 0644); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case dir := <-got:
			if dir == "./b" {
				return
			}
		case <-deadline:
			t.Fatal("reload hook not called with new spritesdir")
		}
	}
}
