package service

import (
	"bytes"
	"context"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/TIANLI0/MarkKit/model"
	"github.com/TIANLI0/MarkKit/utils"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// MarkService 组合布局、缩放、合成与缓存，对外提供图标叠加和换背景
type MarkService struct {
	layout         *LayoutEngine
	compositor     *Compositor
	loader         *AssetLoader
	library        *AssetLibrary
	replacer       *BackgroundReplacer
	cache          ResultCache
	backgroundPath string
	jpegQuality    int
}

type MarkServiceOptions struct {
	Library        *AssetLibrary
	Matter         Matter
	Cache          ResultCache
	BackgroundPath string
	JPEGQuality    int
}

func NewMarkService(opts MarkServiceOptions) *MarkService {
	loader := NewAssetLoader()
	cache := opts.Cache
	if cache == nil {
		cache = NullCache{}
	}
	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = 90
	}

	return &MarkService{
		layout:         NewLayoutEngine(),
		compositor:     NewCompositor(),
		loader:         loader,
		library:        opts.Library,
		replacer:       NewBackgroundReplacer(opts.Matter, loader),
		cache:          cache,
		backgroundPath: opts.BackgroundPath,
		jpegQuality:    quality,
	}
}

func (s *MarkService) Library() *AssetLibrary {
	return s.library
}

// Overlay 按 axis 把 icons 排布到 base 的两条对边上
func (s *MarkService) Overlay(ctx context.Context, base image.Image, axis model.Axis, icons []image.Image) (*image.NRGBA, model.LayoutSpec, error) {
	if base == nil {
		return nil, model.LayoutSpec{}, NewError(ErrCodeInvalidInput, "base image is nil")
	}
	size := base.Bounds().Size()

	spec, positions, err := s.layout.Plan(size.X, size.Y, axis, len(icons))
	if err != nil {
		return nil, model.LayoutSpec{}, err
	}

	placements := make([]model.Placement, len(icons))
	for i, icon := range icons {
		if err := ctx.Err(); err != nil {
			return nil, model.LayoutSpec{}, err
		}
		if icon == nil {
			return nil, model.LayoutSpec{}, NewError(ErrCodeInvalidInput, "icon %d is nil", i)
		}
		placements[i] = model.Placement{
			Icon:     s.loader.ResizeSquare(icon, spec.IconSize),
			Position: positions[i],
		}
	}

	out, err := s.compositor.Composite(base, placements)
	if err != nil {
		return nil, model.LayoutSpec{}, err
	}
	return out, spec, nil
}

// OverlayMarks 解码底图、按名称选取图标、叠加并编码为 JPEG，结果写入缓存
func (s *MarkService) OverlayMarks(ctx context.Context, baseRaw []byte, axis model.Axis, names []string) ([]byte, error) {
	if !axis.Valid() {
		return nil, NewError(ErrCodeInvalidAxis, "invalid layout axis %q, use %q or %q", axis, model.AxisTop, model.AxisSide)
	}
	if s.library == nil {
		return nil, NewError(ErrCodeMissingAsset, "marks library is not configured")
	}

	marks, err := s.library.Select(names)
	if err != nil {
		return nil, err
	}

	// 图标文件可能被原地替换，键里带上内容摘要
	digests := make([]string, len(marks))
	for i, m := range marks {
		sum, err := utils.FileSHA256(m.Path)
		if err != nil {
			return nil, WrapError(ErrCodeMissingAsset, err, "failed to read mark %s", m.Path)
		}
		digests[i] = sum
	}
	key := utils.HashKey("mark", utils.BytesSHA256(baseRaw), string(axis), strings.Join(digests, "|"), strconv.Itoa(s.jpegQuality))

	if data, hit, err := s.cache.GetImage(ctx, key); err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	} else if hit {
		utils.Logger.Info("cache hit", zap.String("cache_key", key))
		return data, nil
	}

	start := time.Now()
	base, err := s.loader.Decode(baseRaw)
	if err != nil {
		return nil, err
	}

	icons := make([]image.Image, len(marks))
	for i, m := range marks {
		icon, err := s.loader.Open(m.Path)
		if err != nil {
			return nil, err
		}
		icons[i] = icon
	}

	out, spec, err := s.Overlay(ctx, base, axis, icons)
	if err != nil {
		return nil, err
	}

	data, err := s.Encode(out)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetImage(ctx, key, data); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	utils.Logger.Info("marks placed",
		zap.String("axis", string(axis)),
		zap.Int("count", len(icons)),
		zap.Int("icon_size", spec.IconSize),
		zap.Int("margin", spec.Margin),
		zap.Duration("duration", time.Since(start)))

	return data, nil
}

// ReplaceBackground 用配置的背景图替换 foregroundPath 的背景
func (s *MarkService) ReplaceBackground(ctx context.Context, foregroundPath string) ([]byte, error) {
	if _, err := os.Stat(s.backgroundPath); err != nil {
		return nil, WrapError(ErrCodeMissingAsset, err, "background image %s not found", s.backgroundPath)
	}

	out, err := s.replacer.ReplaceBackground(ctx, foregroundPath, s.backgroundPath)
	if err != nil {
		return nil, err
	}
	return s.Encode(out)
}

// ReplaceBackgroundBytes 前景为内存中的原始图片
func (s *MarkService) ReplaceBackgroundBytes(ctx context.Context, foreground []byte) ([]byte, error) {
	background, err := s.loader.Open(s.backgroundPath)
	if err != nil {
		return nil, err
	}

	out, err := s.replacer.ReplaceBackgroundBytes(ctx, foreground, background)
	if err != nil {
		return nil, err
	}
	return s.Encode(out)
}

// Encode 输出 JPEG
func (s *MarkService) Encode(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(s.jpegQuality)); err != nil {
		return nil, WrapError(ErrCodeInternal, err, "failed to encode image")
	}
	return buf.Bytes(), nil
}
