package service

import (
	"context"
	"image"
	"image/color"
	"testing"
)

func TestGrabCutRejectsTinyImages(t *testing.T) {
	m := NewGrabCutMatter(5, 10)

	tests := []struct {
		width, height int
		ok            bool
	}{
		{20, 20, false},
		{21, 21, true},
		{400, 20, false},
		{20, 400, false},
		{4800, 200, true},
		{4800, 40, false}, // 缩放到 1200x10 后放不下边框
	}
	for _, tt := range tests {
		err := m.checkSize(tt.width, tt.height)
		if tt.ok && err != nil {
			t.Errorf("%dx%d: error = %v, want nil", tt.width, tt.height, err)
		}
		if !tt.ok && !IsCode(err, ErrCodeMattingFailure) {
			t.Errorf("%dx%d: error = %v, want MATTING_FAILURE", tt.width, tt.height, err)
		}
	}
}

func TestGrabCutMatteTinyImageFailsBeforeSegmenting(t *testing.T) {
	raw := encodePNG(t, solid(12, 12, color.NRGBA{R: 0xff, A: 0xff}))

	out, err := NewGrabCutMatter(5, 10).Matte(context.Background(), raw)
	if !IsCode(err, ErrCodeMattingFailure) {
		t.Fatalf("error = %v, want MATTING_FAILURE", err)
	}
	if out != nil {
		t.Error("expected no image")
	}
}

func TestGrabCutScaledSize(t *testing.T) {
	m := NewGrabCutMatter(5, 10)
	if got := m.scaledSize(2400, 1200); got != image.Pt(1200, 600) {
		t.Errorf("scaledSize = %v, want 1200x600", got)
	}
	if got := m.scaledSize(800, 600); got != image.Pt(800, 600) {
		t.Errorf("scaledSize = %v, want unchanged", got)
	}
}
