package service

import (
	"github.com/TIANLI0/MarkKit/model"
)

// LayoutEngine 根据底图尺寸、方向和图标数量计算图标尺寸与摆放坐标
type LayoutEngine struct{}

func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{}
}

// Plan 返回布局参数和 n 个坐标，坐标顺序与图标原始顺序一一对应。
//
// 坐标依次为：主行（上/左）的 n/2 个槽位；n 为奇数时再追加一个主行坐标
// step*(n/2)-margin，与主行最后一个槽位重合；其余为对边的槽位。
// 因此奇数时第 n/2 个图标落在重合的主行坐标上，最后一个图标在对边末尾。
func (e *LayoutEngine) Plan(width, height int, axis model.Axis, n int) (model.LayoutSpec, []model.Position, error) {
	if !axis.Valid() {
		return model.LayoutSpec{}, nil, NewError(ErrCodeInvalidAxis, "invalid layout axis %q, use %q or %q", axis, model.AxisTop, model.AxisSide)
	}
	if width <= 0 || height <= 0 {
		return model.LayoutSpec{}, nil, NewError(ErrCodeDegenerateGeometry, "canvas size %dx%d is empty", width, height)
	}
	if n < 1 {
		return model.LayoutSpec{}, nil, NewError(ErrCodeDegenerateGeometry, "at least one icon is required, got %d", n)
	}

	// Side 布局是 Top 布局的转置：在 long 方向上排布，short 方向上贴边
	long, short := width, height
	if axis == model.AxisSide {
		long, short = height, width
	}

	spec, err := planSpec(long, short, axis, n)
	if err != nil {
		return model.LayoutSpec{}, nil, err
	}

	half := n / 2
	step := long / (half + 1)
	positions := make([]model.Position, 0, n)

	// along 为沿 long 方向的坐标，across 为贴边方向的坐标
	place := func(along, across int) {
		if axis == model.AxisSide {
			positions = append(positions, model.Position{X: across, Y: along})
		} else {
			positions = append(positions, model.Position{X: along, Y: across})
		}
	}

	for i := 0; i < half; i++ {
		place(step*(i+1)-spec.Margin, spec.Padding)
	}
	rest := n
	if n%2 == 1 {
		place(step*half-spec.Margin, spec.Padding)
		rest--
	}
	far := short - spec.IconSize - spec.Padding
	for i := 0; i < rest-half; i++ {
		place(step*(i+1)-spec.Margin, far)
	}

	return spec, positions, nil
}

func planSpec(long, short int, axis model.Axis, n int) (model.LayoutSpec, error) {
	count := n / 2
	if n%2 == 1 {
		count++
	}

	iconSize := min(long/((count+1)*6)*5, short/6)
	padding := iconSize / 5

	if iconSize < 1 {
		return model.LayoutSpec{}, NewError(ErrCodeDegenerateGeometry,
			"canvas sides %d and %d are too small for %d icons", long, short, n)
	}
	extent := iconSize*count + padding*(count+1)
	if extent > long {
		return model.LayoutSpec{}, NewError(ErrCodeDegenerateGeometry,
			"row of %d icons needs %d pixels but only %d are available", count, extent, long)
	}

	return model.LayoutSpec{
		Axis:     axis,
		Count:    count,
		IconSize: iconSize,
		Padding:  padding,
		Margin:   (long-extent)/2 - padding,
	}, nil
}
