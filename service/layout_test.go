package service

import (
	"reflect"
	"testing"

	"github.com/TIANLI0/MarkKit/model"
)

func TestPlanTopOddCount(t *testing.T) {
	spec, positions, err := NewLayoutEngine().Plan(1200, 600, model.AxisTop, 3)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	wantSpec := model.LayoutSpec{Axis: model.AxisTop, Count: 2, IconSize: 100, Padding: 20, Margin: 450}
	if spec != wantSpec {
		t.Errorf("spec = %+v, want %+v", spec, wantSpec)
	}

	// icon n/2 reuses the last top slot, the last icon ends the bottom row
	want := []model.Position{{150, 20}, {150, 20}, {150, 480}}
	if !reflect.DeepEqual(positions, want) {
		t.Errorf("positions = %v, want %v", positions, want)
	}
}

func TestPlanOddCountOrder(t *testing.T) {
	_, positions, err := NewLayoutEngine().Plan(1200, 600, model.AxisTop, 5)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	want := []model.Position{{10, 20}, {410, 20}, {410, 20}, {10, 480}, {410, 480}}
	if !reflect.DeepEqual(positions, want) {
		t.Errorf("positions = %v, want %v", positions, want)
	}
}

func TestPlanTopEvenCount(t *testing.T) {
	spec, positions, err := NewLayoutEngine().Plan(1200, 600, model.AxisTop, 4)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	// count=2, iconSize=min(66*5, 100)=100, padding=20, margin=450, step=400
	if spec.IconSize != 100 || spec.Margin != 450 {
		t.Fatalf("spec = %+v", spec)
	}
	want := []model.Position{{-50, 20}, {350, 20}, {-50, 480}, {350, 480}}
	if !reflect.DeepEqual(positions, want) {
		t.Errorf("positions = %v, want %v", positions, want)
	}
}

func TestPlanSideUsesShortWidth(t *testing.T) {
	spec, positions, err := NewLayoutEngine().Plan(600, 1200, model.AxisSide, 3)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if spec.IconSize != 100 || spec.Padding != 20 || spec.Margin != 450 {
		t.Fatalf("spec = %+v", spec)
	}
	want := []model.Position{{20, 150}, {20, 150}, {480, 150}}
	if !reflect.DeepEqual(positions, want) {
		t.Errorf("positions = %v, want %v", positions, want)
	}
}

func TestPlanPositionCount(t *testing.T) {
	engine := NewLayoutEngine()
	for _, axis := range []model.Axis{model.AxisTop, model.AxisSide} {
		for n := 1; n <= 24; n++ {
			_, positions, err := engine.Plan(2400, 1600, axis, n)
			if err != nil {
				t.Fatalf("Plan(%s, %d) error: %v", axis, n, err)
			}
			if len(positions) != n {
				t.Errorf("Plan(%s, %d) returned %d positions", axis, n, len(positions))
			}
		}
	}
}

func TestPlanTransposeOnSquareCanvas(t *testing.T) {
	engine := NewLayoutEngine()
	for n := 1; n <= 13; n++ {
		topSpec, top, err := engine.Plan(1000, 1000, model.AxisTop, n)
		if err != nil {
			t.Fatalf("Plan(top, %d) error: %v", n, err)
		}
		sideSpec, side, err := engine.Plan(1000, 1000, model.AxisSide, n)
		if err != nil {
			t.Fatalf("Plan(side, %d) error: %v", n, err)
		}

		if topSpec.IconSize != sideSpec.IconSize || topSpec.Padding != sideSpec.Padding || topSpec.Margin != sideSpec.Margin {
			t.Errorf("n=%d: top spec %+v differs from side spec %+v", n, topSpec, sideSpec)
		}
		for i := range top {
			if side[i].X != top[i].Y || side[i].Y != top[i].X {
				t.Errorf("n=%d i=%d: side %v is not transpose of top %v", n, i, side[i], top[i])
			}
		}
	}
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		axis   model.Axis
		n      int
		code   Code
	}{
		{"invalid axis", 1200, 600, model.Axis("diagonal"), 3, ErrCodeInvalidAxis},
		{"zero icons", 1200, 600, model.AxisTop, 0, ErrCodeDegenerateGeometry},
		{"empty canvas", 0, 600, model.AxisTop, 2, ErrCodeDegenerateGeometry},
		{"tiny canvas", 10, 10, model.AxisSide, 2, ErrCodeDegenerateGeometry},
		{"too many icons", 100, 600, model.AxisTop, 40, ErrCodeDegenerateGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, positions, err := NewLayoutEngine().Plan(tt.width, tt.height, tt.axis, tt.n)
			if err == nil {
				t.Fatal("Plan() should fail")
			}
			if !IsCode(err, tt.code) {
				t.Errorf("Plan() error code = %q, want %q", CodeOf(err), tt.code)
			}
			if positions != nil {
				t.Errorf("Plan() returned positions %v on error", positions)
			}
		})
	}
}
