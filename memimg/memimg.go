package memimg

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
)

// 贴图名称，对应目录下的 head.png / body.png / food.png
const (
	SpriteHead = "head"
	SpriteBody = "body"
	SpriteFood = "food"
)

var (
	sprites      = make(map[string]image.Image) // 原图
	versions     = make(map[string]int)         // 每次替换原图加一
	scaled       = make(map[string]image.Image) // name@size -> 缩放后的图
	spritesMutex sync.RWMutex
)

func spriteName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp":
		return true
	}
	return false
}

// LoadSprites reads every image in directory into memory. A missing
// directory is not an error; the renderer falls back to flat colors.
func LoadSprites(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isImage(path) {
			return nil
		}
		img, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("load sprite %s: %w", path, err)
		}
		storeSprite(spriteName(path), img)
		return nil
	})
}

func storeSprite(name string, img image.Image) {
	spritesMutex.Lock()
	defer spritesMutex.Unlock()
	sprites[name] = img
	versions[name]++
	// 原图变了，缩放缓存作废
	for key := range scaled {
		if strings.HasPrefix(key, name+"@") {
			delete(scaled, key)
		}
	}
}

// WatchSprites hot-reloads images written into directory until ctx is done.
func WatchSprites(ctx context.Context, directory string, logger *log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return err
	}
	if err := watcher.Add(directory); err != nil {
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
			if !isImage(event.Name) {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				img, err := imaging.Open(event.Name)
				if err != nil {
					// 文件可能还没写完，等下一次事件
					logger.Debug("sprite not readable yet", "file", event.Name, "err", err)
					continue
				}
				storeSprite(spriteName(event.Name), img)
				logger.Info("sprite reloaded", "name", spriteName(event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("sprite watcher", "err", err)
		}
	}
}

// GetSprite returns the named sprite scaled to size×size pixels.
func GetSprite(name string, size int) (image.Image, bool) {
	key := fmt.Sprintf("%s@%d", name, size)

	spritesMutex.RLock()
	img, ok := scaled[key]
	orig, exists := sprites[name]
	version := versions[name]
	spritesMutex.RUnlock()
	if ok {
		return img, true
	}
	if !exists || size <= 0 {
		return nil, false
	}

	// 缩放到格子大小
	img = imaging.Resize(orig, size, size, imaging.Lanczos)
	cacheScaled(key, name, version, img)
	return img, true
}

// cacheScaled stores img only if the original has not been replaced since
// it was scaled.
func cacheScaled(key, name string, version int, img image.Image) bool {
	spritesMutex.Lock()
	defer spritesMutex.Unlock()
	if versions[name] != version {
		return false
	}
	scaled[key] = img
	return true
}

// Reset drops every loaded sprite.
func Reset() {
	spritesMutex.Lock()
	defer spritesMutex.Unlock()
	sprites = make(map[string]image.Image)
	versions = make(map[string]int)
	scaled = make(map[string]image.Image)
}

// Watcher keeps the sprite cache bound to one directory and can move it to
// another, for example after the config file names a new sprites dir.
type Watcher struct {
	ctx    context.Context
	logger *log.Logger

	mu     sync.Mutex
	dir    string
	cancel context.CancelFunc
}

func NewWatcher(ctx context.Context, logger *log.Logger) *Watcher {
	return &Watcher{ctx: ctx, logger: logger}
}

// Watch reloads every sprite from dir and hot-reloads it from then on,
// dropping the previous directory. Watching the current directory again
// is a no-op. A load error is returned but the directory is still watched.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if dir == w.dir && w.cancel != nil {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}

	Reset()
	loadErr := LoadSprites(dir)

	ctx, cancel := context.WithCancel(w.ctx)
	w.dir, w.cancel = dir, cancel
	go func() {
		if err := WatchSprites(ctx, dir, w.logger); err != nil {
			w.logger.Warn("sprite watcher stopped", "dir", dir, "err", err)
		}
	}()
	w.logger.Info("watching sprites", "dir", dir)
	return loadErr
}

// Dir returns the directory currently watched.
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}
