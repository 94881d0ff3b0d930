package api

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/hoshinonyaruko/snake-web/config"
	"github.com/hoshinonyaruko/snake-web/memimg"
	"github.com/hoshinonyaruko/snake-web/structs"
)

// 全局缓存，网格背景只画一次
var drawingCache sync.Map

// renderBoard 渲染地图
func renderBoard(snap structs.Snapshot, blockSize int) image.Image {
	n := snap.GridSize
	if n <= 0 {
		n = structs.GridSize
	}
	if blockSize <= 0 {
		blockSize = config.DefaultBlocksize
	}
	canvas := n * blockSize

	// 构造缓存键
	cacheKey := fmt.Sprintf("grid_%d_%d", n, blockSize)
	var background image.Image
	if cached, ok := drawingCache.Load(cacheKey); ok {
		background = cached.(image.Image)
	} else {
		dc := gg.NewContext(canvas, canvas)
		dc.SetRGB(1, 1, 1)
		dc.Clear()
		renderGrid(dc, canvas, canvas, blockSize)
		background = dc.Image()
		drawingCache.Store(cacheKey, background)
	}

	dc := gg.NewContext(canvas, canvas)
	dc.DrawImage(background, 0, 0)

	board := structs.Board(snap)
	for y, row := range board {
		for x, kind := range row {
			switch kind {
			case structs.Food:
				drawCell(dc, memimg.SpriteFood, x, y, blockSize, 0.9, 0.2, 0.2)
			case structs.SnakeSegment:
				drawCell(dc, memimg.SpriteBody, x, y, blockSize, 0.3, 0.7, 0.4)
			}
		}
	}
	if len(snap.Snake) > 0 {
		head := snap.Snake[0]
		drawCell(dc, memimg.SpriteHead, head.X, head.Y, blockSize, 0.1, 0.5, 0.25)
	}

	if snap.Status == structs.GameOver {
		dc.SetRGBA(0, 0, 0, 0.5)
		dc.DrawRectangle(0, 0, float64(canvas), float64(canvas))
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(fmt.Sprintf("Game Over! Score: %d", snap.Score), float64(canvas)/2, float64(canvas)/2, 0.5, 0.5)
	}
	return dc.Image()
}

// drawCell 优先使用贴图，找不到时画纯色方块
func drawCell(dc *gg.Context, sprite string, x, y, blockSize int, r, g, b float64) {
	if img, ok := memimg.GetSprite(sprite, blockSize); ok {
		dc.DrawImage(img, x*blockSize, y*blockSize)
		return
	}
	dc.SetRGB(r, g, b)
	dc.DrawRectangle(float64(x*blockSize)+1, float64(y*blockSize)+1, float64(blockSize-2), float64(blockSize-2))
	dc.Fill()
}

func renderGrid(dc *gg.Context, width, height, blockSize int) {
	dc.SetRGB(0.9, 0.9, 0.9)
	for x := 0; x <= width; x += blockSize {
		dc.DrawLine(float64(x), 0, float64(x), float64(height))
		dc.Stroke()
	}
	for y := 0; y <= height; y += blockSize {
		dc.DrawLine(0, float64(y), float64(width), float64(y))
		dc.Stroke()
	}
}

// encodeBoard renders snap as PNG; width > 0 fits the image into width×width.
func encodeBoard(snap structs.Snapshot, blockSize, width int) ([]byte, error) {
	img := renderBoard(snap, blockSize)
	if width > 0 && width != img.Bounds().Dx() {
		img = imaging.Fit(img, width, width, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// saveBoard 保存图片到 ./output
func saveBoard(snap structs.Snapshot, blockSize int, id string) (string, error) {
	data, err := encodeBoard(snap, blockSize, 0)
	if err != nil {
		return "", err
	}
	fileName := filepath.Join("output", id+".png")
	if err := os.MkdirAll(filepath.Dir(fileName), os.ModePerm); err != nil {
		return "", err
	}
	return fileName, os.WriteFile(fileName, data, 0644)
}
