package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// gradient 每个像素颜色都不同，便于逐像素比对
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 5), B: uint8(x + y), A: 0xff})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}
	return buf.Bytes()
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.WriteFile(path, encodePNG(t, img), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// fakeMatter 忽略输入，返回固定的抠图结果
type fakeMatter struct {
	out   *image.NRGBA
	err   error
	calls int
}

func (m *fakeMatter) Matte(ctx context.Context, raw []byte) (*image.NRGBA, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.out, nil
}

type memoryCache struct {
	data map[string][]byte
	gets int
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) GetImage(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets++
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memoryCache) SetImage(ctx context.Context, key string, data []byte) error {
	c.sets++
	c.data[key] = data
	return nil
}
