package service

import (
	"image"

	"gocv.io/x/gocv"
)

// GrabCut 掩码取值
const (
	gcForeground         = 1
	gcProbableForeground = 3
)

// MaskProcessor 负责 GrabCut 掩码的初始化与后处理
type MaskProcessor struct{}

func NewMaskProcessor() *MaskProcessor {
	return &MaskProcessor{}
}

// SubjectRect 用梯度显著性估计主体所在矩形，找不到时退回到去掉边框的整图
func (mp *MaskProcessor) SubjectRect(img *gocv.Mat, border int) image.Rectangle {
	width, height := img.Cols(), img.Rows()
	fallback := image.Rect(border, border, width-border, height-border)
	if fallback.Empty() {
		return image.Rect(0, 0, width, height)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	gradX := gocv.NewMat()
	defer gradX.Close()
	gradY := gocv.NewMat()
	defer gradY.Close()
	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)

	absX := gocv.NewMat()
	defer absX.Close()
	absY := gocv.NewMat()
	defer absY.Close()
	gocv.ConvertScaleAbs(gradX, &absX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absY, 1, 0)

	saliency := gocv.NewMat()
	defer saliency.Close()
	gocv.AddWeighted(absX, 0.5, absY, 0.5, 0, &saliency)
	gocv.GaussianBlur(saliency, &saliency, image.Point{X: 21, Y: 21}, 0, 0, gocv.BorderDefault)
	gocv.Threshold(saliency, &saliency, 0, 255, gocv.ThresholdOtsu)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 21, Y: 21})
	defer kernel.Close()
	gocv.Dilate(saliency, &saliency, kernel)

	contours := gocv.FindContours(saliency, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return fallback
	}

	var best image.Rectangle
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			bestArea = area
			best = gocv.BoundingRect(contours.At(i))
		}
	}

	// GrabCut 需要矩形外有背景像素
	rect := best.Intersect(fallback)
	if rect.Dx() < width/4 || rect.Dy() < height/4 {
		return fallback
	}
	return rect
}

// ExtractForeground 取确定前景与可能前景
func (mp *MaskProcessor) ExtractForeground(mask *gocv.Mat) gocv.Mat {
	fg := gocv.NewMat()
	sure := gocv.NewMatFromScalar(gocv.Scalar{Val1: gcForeground}, gocv.MatTypeCV8U)
	defer sure.Close()
	gocv.Compare(*mask, sure, &fg, gocv.CompareEQ)

	probable := gocv.NewMat()
	defer probable.Close()
	pr := gocv.NewMatFromScalar(gocv.Scalar{Val1: gcProbableForeground}, gocv.MatTypeCV8U)
	defer pr.Close()
	gocv.Compare(*mask, pr, &probable, gocv.CompareEQ)

	combined := gocv.NewMat()
	gocv.BitwiseOr(fg, probable, &combined)
	fg.Close()

	return combined
}

// MorphologyOptimize 开运算去噪点，闭运算补小洞
func (mp *MaskProcessor) MorphologyOptimize(mask *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(*mask, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	return closed
}

// Feather 模糊边缘得到软 alpha，不再二值化
func (mp *MaskProcessor) Feather(mask *gocv.Mat) gocv.Mat {
	soft := gocv.NewMat()
	gocv.GaussianBlur(*mask, &soft, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)
	return soft
}
