package service

import (
	"context"
	"errors"
	"image"
	"io/fs"
	"os"
	"time"

	"github.com/TIANLI0/MarkKit/utils"
	"go.uber.org/zap"
)

// BackgroundReplacer 把抠出的前景合成到新背景上
type BackgroundReplacer struct {
	matter Matter
	loader *AssetLoader
}

func NewBackgroundReplacer(matter Matter, loader *AssetLoader) *BackgroundReplacer {
	return &BackgroundReplacer{
		matter: matter,
		loader: loader,
	}
}

// ReplaceBackground 从路径读取前景和背景，输出尺寸与前景一致
func (r *BackgroundReplacer) ReplaceBackground(ctx context.Context, foregroundPath, backgroundPath string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(foregroundPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, WrapError(ErrCodeMissingAsset, err, "foreground %s does not exist", foregroundPath)
		}
		return nil, WrapError(ErrCodeMissingAsset, err, "failed to read foreground %s", foregroundPath)
	}

	background, err := r.loader.Open(backgroundPath)
	if err != nil {
		return nil, err
	}

	return r.ReplaceBackgroundBytes(ctx, raw, background)
}

// ReplaceBackgroundBytes 前景以原始字节交给抠图服务，背景拉伸到前景尺寸后作为底层
func (r *BackgroundReplacer) ReplaceBackgroundBytes(ctx context.Context, foreground []byte, background image.Image) (*image.NRGBA, error) {
	if background == nil {
		return nil, NewError(ErrCodeInvalidInput, "background image is nil")
	}

	start := time.Now()
	matted, err := r.matter.Matte(ctx, foreground)
	if err != nil {
		if CodeOf(err) != "" {
			return nil, err
		}
		return nil, WrapError(ErrCodeMattingFailure, err, "matting failed")
	}

	size := matted.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, NewError(ErrCodeMattingFailure, "matting returned an empty image")
	}

	canvas := newCanvas(r.loader.Resize(background, size.X, size.Y))
	over(canvas, matted, image.Point{})
	out := flatten(canvas)

	utils.Logger.Info("background replaced",
		zap.Int("width", size.X),
		zap.Int("height", size.Y),
		zap.Duration("duration", time.Since(start)))

	return out, nil
}
