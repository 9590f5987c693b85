package model

import (
	"fmt"
	"image"
	"strings"
)

// Axis 图标分布的一对对边
type Axis string

const (
	AxisTop  Axis = "top"  // 上下两行
	AxisSide Axis = "side" // 左右两列
)

// ParseAxis 不区分大小写解析布局方向
func ParseAxis(s string) (Axis, error) {
	switch a := Axis(strings.ToLower(strings.TrimSpace(s))); a {
	case AxisTop, AxisSide:
		return a, nil
	default:
		return "", fmt.Errorf("invalid layout axis %q, use %q or %q", s, AxisTop, AxisSide)
	}
}

func (a Axis) Valid() bool {
	return a == AxisTop || a == AxisSide
}

// LayoutSpec 一次叠加计算出的布局参数
type LayoutSpec struct {
	Axis     Axis `json:"axis"`
	Count    int  `json:"count"` // 主行（上/左）的图标数
	IconSize int  `json:"icon_size"`
	Padding  int  `json:"padding"`
	Margin   int  `json:"margin"` // 可为负
}

// Position 图标左上角坐标
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) Point() image.Point {
	return image.Pt(p.X, p.Y)
}

// Placement 图标及其左上角位置
type Placement struct {
	Icon     image.Image
	Position Position
}
