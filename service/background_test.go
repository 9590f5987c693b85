package service

import (
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"testing"
)

func setupBackground(t *testing.T) (fgPath, bgPath string) {
	t.Helper()
	dir := t.TempDir()
	fgPath = filepath.Join(dir, "subject.png")
	bgPath = filepath.Join(dir, "0.png")
	writePNG(t, fgPath, gradient(400, 300))
	writePNG(t, bgPath, gradient(800, 600))
	return fgPath, bgPath
}

func TestReplaceBackgroundOpaqueForeground(t *testing.T) {
	fgPath, bgPath := setupBackground(t)

	matted := gradient(400, 300)
	r := NewBackgroundReplacer(&fakeMatter{out: matted}, NewAssetLoader())

	out, err := r.ReplaceBackground(context.Background(), fgPath, bgPath)
	if err != nil {
		t.Fatalf("ReplaceBackground() error: %v", err)
	}
	if out.Bounds().Dx() != 400 || out.Bounds().Dy() != 300 {
		t.Fatalf("output size = %v, want 400x300", out.Bounds().Size())
	}
	for i := range matted.Pix {
		if out.Pix[i] != matted.Pix[i] {
			t.Fatalf("byte %d = %d, want foreground %d", i, out.Pix[i], matted.Pix[i])
		}
	}
}

func TestReplaceBackgroundTransparentForeground(t *testing.T) {
	fgPath, bgPath := setupBackground(t)

	matted := solid(400, 300, color.NRGBA{R: 250, G: 250, B: 250, A: 0})
	loader := NewAssetLoader()
	r := NewBackgroundReplacer(&fakeMatter{out: matted}, loader)

	out, err := r.ReplaceBackground(context.Background(), fgPath, bgPath)
	if err != nil {
		t.Fatalf("ReplaceBackground() error: %v", err)
	}

	bg, err := loader.Open(bgPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	want := loader.Resize(bg, 400, 300)
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			got, exp := out.NRGBAAt(x, y), want.NRGBAAt(x, y)
			if got.R != exp.R || got.G != exp.G || got.B != exp.B || got.A != 0xff {
				t.Fatalf("pixel (%d,%d) = %v, want background %v", x, y, got, exp)
			}
		}
	}
}

func TestReplaceBackgroundMissingAssets(t *testing.T) {
	fgPath, bgPath := setupBackground(t)
	missing := filepath.Join(t.TempDir(), "nope.jpg")
	matter := &fakeMatter{out: gradient(400, 300)}
	r := NewBackgroundReplacer(matter, NewAssetLoader())

	if _, err := r.ReplaceBackground(context.Background(), missing, bgPath); !IsCode(err, ErrCodeMissingAsset) {
		t.Errorf("missing foreground error = %v, want MISSING_ASSET", err)
	}
	if _, err := r.ReplaceBackground(context.Background(), fgPath, missing); !IsCode(err, ErrCodeMissingAsset) {
		t.Errorf("missing background error = %v, want MISSING_ASSET", err)
	}
	if matter.calls != 0 {
		t.Errorf("matter called %d times for missing assets", matter.calls)
	}
}

func TestReplaceBackgroundMattingFailure(t *testing.T) {
	fgPath, bgPath := setupBackground(t)
	cause := errors.New("unsupported format")
	r := NewBackgroundReplacer(&fakeMatter{err: cause}, NewAssetLoader())

	out, err := r.ReplaceBackground(context.Background(), fgPath, bgPath)
	if !IsCode(err, ErrCodeMattingFailure) {
		t.Fatalf("error = %v, want MATTING_FAILURE", err)
	}
	if !errors.Is(err, cause) {
		t.Error("matting cause should be preserved")
	}
	if out != nil {
		t.Error("failed call should not return an image")
	}
}
