package vision

import "testing"

func TestRectClamp(t *testing.T) {
	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"inside", Rect{0.1, 0.2, 0.5, 0.6}, Rect{0.1, 0.2, 0.5, 0.6}},
		{"overflow", Rect{-0.5, -0.1, 1.2, 1.9}, Rect{0, 0, 1, 1}},
		{"inverted edges", Rect{0.8, 0.7, 0.2, 0.1}, Rect{0.2, 0.1, 0.8, 0.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(); got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFromPixels(t *testing.T) {
	r := FromPixels(160, 120, 320, 240, 640, 480)
	want := Rect{YMin: 0.25, XMin: 0.25, YMax: 0.75, XMax: 0.75}
	if r != want {
		t.Errorf("FromPixels = %+v, want %+v", r, want)
	}
}

func TestFromPixels_OutOfFrame(t *testing.T) {
	// A box hanging off the right edge clamps to the frame.
	r := FromPixels(600, 0, 200, 100, 640, 480)
	if r.XMax != 1 {
		t.Errorf("XMax = %f, want 1", r.XMax)
	}
	if r.XMin != 600.0/640.0 {
		t.Errorf("XMin = %f, want %f", r.XMin, 600.0/640.0)
	}
}

func TestFromPixels_DegenerateFrame(t *testing.T) {
	if r := FromPixels(10, 10, 5, 5, 0, 0); r != (Rect{}) {
		t.Errorf("FromPixels with zero frame = %+v, want zero rect", r)
	}
}

func TestRectDimensions(t *testing.T) {
	r := Rect{YMin: 0.2, XMin: 0.1, YMax: 0.7, XMax: 0.4}
	if w := r.Width(); w != 0.4-0.1 {
		t.Errorf("Width = %f", w)
	}
	if h := r.Height(); h != 0.7-0.2 {
		t.Errorf("Height = %f", h)
	}
}
