package service

import (
	"image"

	"github.com/TIANLI0/MarkKit/model"
	"github.com/disintegration/imaging"
)

// Compositor 按顺序把图标叠加到底图上，后放的图标压在先放的上面
type Compositor struct{}

func NewCompositor() *Compositor {
	return &Compositor{}
}

// Composite 返回不透明结果，不修改输入。任意一个图标无效时整体失败
func (c *Compositor) Composite(base image.Image, placements []model.Placement) (*image.NRGBA, error) {
	if base == nil {
		return nil, NewError(ErrCodeInvalidInput, "base image is nil")
	}

	canvas := newCanvas(base)
	for i, p := range placements {
		if p.Icon == nil {
			return nil, NewError(ErrCodeInvalidInput, "icon %d is nil", i)
		}
		over(canvas, p.Icon, p.Position.Point())
	}

	return flatten(canvas), nil
}

// newCanvas 底图的非预乘副本，原点为 (0,0)
func newCanvas(base image.Image) *image.NRGBA {
	return imaging.Clone(base)
}

// over 以非预乘形式计算 src over dst：
// outA = sa + da*(1-sa)，outC = (sc*sa + dc*da*(1-sa)) / outA。
// sa 为 0 的像素保持 dst 不变，图层之外同理，因此只处理图标覆盖的矩形。
func over(canvas *image.NRGBA, src image.Image, at image.Point) {
	icon := imaging.Clone(src)
	r := image.Rectangle{Min: at, Max: at.Add(icon.Bounds().Size())}.Intersect(canvas.Bounds())
	if r.Empty() {
		return
	}

	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := icon.PixOffset(r.Min.X-at.X, y-at.Y)
		di := canvas.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x, si, di = x+1, si+4, di+4 {
			s := icon.Pix[si : si+4 : si+4]
			d := canvas.Pix[di : di+4 : di+4]

			sa := uint32(s[3])
			switch sa {
			case 0:
				continue
			case 0xff:
				copy(d, s)
				continue
			}

			// 以 255*255 为刻度的整数运算
			da := uint32(d[3]) * (0xff - sa)
			outA := sa*0xff + da
			for k := 0; k < 3; k++ {
				c := uint32(s[k])*sa*0xff + uint32(d[k])*da
				d[k] = uint8((c + outA/2) / outA)
			}
			d[3] = uint8((outA + 0x7f) / 0xff)
		}
	}
}

// flatten 保留 RGB，丢弃 alpha 通道，输出 alpha 恒为 255
func flatten(canvas *image.NRGBA) *image.NRGBA {
	for i := 3; i < len(canvas.Pix); i += 4 {
		canvas.Pix[i] = 0xff
	}
	return canvas
}
