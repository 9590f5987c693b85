package service

import (
	"bytes"
	"errors"
	"image"
	"io/fs"

	"github.com/disintegration/imaging"
)

// AssetLoader 负责读取图片并统一为 NRGBA，缩放使用双三次插值
type AssetLoader struct {
	filter imaging.ResampleFilter
}

func NewAssetLoader() *AssetLoader {
	return &AssetLoader{filter: imaging.CatmullRom}
}

// Open 读取图片文件，不存在或无法解码时返回 MISSING_ASSET
func (l *AssetLoader) Open(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, WrapError(ErrCodeMissingAsset, err, "image %s does not exist", path)
		}
		return nil, WrapError(ErrCodeMissingAsset, err, "failed to decode image %s", path)
	}
	return imaging.Clone(img), nil
}

// Decode 从内存解码图片
func (l *AssetLoader) Decode(raw []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, WrapError(ErrCodeMissingAsset, err, "failed to decode image")
	}
	return imaging.Clone(img), nil
}

// ResizeSquare 缩放为 size×size，不保持宽高比
func (l *AssetLoader) ResizeSquare(img image.Image, size int) *image.NRGBA {
	return l.Resize(img, size, size)
}

// Resize 拉伸到指定尺寸
func (l *AssetLoader) Resize(img image.Image, width, height int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, width, height, l.filter)
}
