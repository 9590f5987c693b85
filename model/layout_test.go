package model

import "testing"

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in      string
		want    Axis
		wantErr bool
	}{
		{"top", AxisTop, false},
		{" SIDE ", AxisSide, false},
		{"Top", AxisTop, false},
		{"diagonal", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAxis(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAxis(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAxis(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if Axis("bottom").Valid() {
		t.Error("bottom should not be valid")
	}
}
