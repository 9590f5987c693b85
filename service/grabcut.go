package service

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// GrabCutMatter 用 OpenCV GrabCut 在本地抠图
type GrabCutMatter struct {
	iterations int
	borderSize int
	maxSide    int
	masks      *MaskProcessor
}

func NewGrabCutMatter(iterations, borderSize int) *GrabCutMatter {
	return &GrabCutMatter{
		iterations: max(1, iterations),
		borderSize: borderSize,
		maxSide:    1200,
		masks:      NewMaskProcessor(),
	}
}

// Matte RGB 取自原图，alpha 为羽化后的前景掩码
func (m *GrabCutMatter) Matte(ctx context.Context, raw []byte) (*image.NRGBA, error) {
	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	out := imaging.Clone(src)
	width, height := out.Bounds().Dx(), out.Bounds().Dy()
	if err := m.checkSize(width, height); err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(raw, gocv.IMReadColor|gocv.IMReadIgnoreOrientation)
	if err != nil || img.Empty() {
		return nil, fmt.Errorf("failed to read image: %v", err)
	}
	defer img.Close()

	scaled := m.smartResize(&img)
	defer scaled.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask := m.segment(&scaled)
	defer mask.Close()

	if mask.Cols() != width || mask.Rows() != height {
		resized := gocv.NewMat()
		gocv.Resize(mask, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
		mask.Close()
		mask = resized
	}

	alpha, err := mask.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read mask: %w", err)
	}
	if len(alpha) != width*height {
		return nil, fmt.Errorf("mask has %d pixels, want %d", len(alpha), width*height)
	}

	for y := 0; y < height; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+width*4]
		for x := 0; x < width; x++ {
			row[x*4+3] = alpha[y*width+x]
		}
	}
	return out, nil
}

// segment 返回 0..255 的软掩码
func (m *GrabCutMatter) segment(img *gocv.Mat) gocv.Mat {
	w, h := img.Cols(), img.Rows()

	mask := gocv.NewMat()
	defer mask.Close()
	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	rect := m.masks.SubjectRect(img, m.border(w))
	gocv.GrabCut(*img, &mask, rect, &bgdModel, &fgdModel, m.iterations, gocv.GCInitWithRect)

	fg := m.masks.ExtractForeground(&mask)
	defer fg.Close()

	kernelSize := 3
	if max(w, h) > 600 {
		kernelSize = 5
	}
	cleaned := m.masks.MorphologyOptimize(&fg, kernelSize)
	defer cleaned.Close()

	return m.masks.Feather(&cleaned)
}

func (m *GrabCutMatter) border(width int) int {
	if m.borderSize >= 10 {
		return m.borderSize
	}
	return max(1, int(float64(width)*0.05))
}

// checkSize GrabCut 需要边框之外留有背景样本
func (m *GrabCutMatter) checkSize(width, height int) error {
	size := m.scaledSize(width, height)
	border := m.border(size.X)
	if size.X <= 2*border || size.Y <= 2*border {
		return NewError(ErrCodeMattingFailure,
			"image %dx%d is too small for grabcut with a %dpx border", width, height, border)
	}
	return nil
}

func (m *GrabCutMatter) scaledSize(width, height int) image.Point {
	maxDim := max(width, height)
	if maxDim <= m.maxSide {
		return image.Pt(width, height)
	}
	scale := float64(m.maxSide) / float64(maxDim)
	return image.Pt(int(float64(width)*scale), int(float64(height)*scale))
}

// smartResize 大图缩小后再分割
func (m *GrabCutMatter) smartResize(img *gocv.Mat) gocv.Mat {
	size := m.scaledSize(img.Cols(), img.Rows())
	if size.X == img.Cols() && size.Y == img.Rows() {
		return img.Clone()
	}

	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, size, 0, 0, gocv.InterpolationArea)
	return resized
}
