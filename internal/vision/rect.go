package vision

// Rect is a rectangle in normalized frame coordinates. Every edge lies in
// [0,1] with YMin <= YMax and XMin <= XMax.
type Rect struct {
	YMin float64 `json:"y_min"`
	XMin float64 `json:"x_min"`
	YMax float64 `json:"y_max"`
	XMax float64 `json:"x_max"`
}

// Width returns the normalized width of the rectangle.
func (r Rect) Width() float64 { return r.XMax - r.XMin }

// Height returns the normalized height of the rectangle.
func (r Rect) Height() float64 { return r.YMax - r.YMin }

// Clamp forces every edge into [0,1] and restores edge ordering.
func (r Rect) Clamp() Rect {
	r.YMin = clamp01(r.YMin)
	r.XMin = clamp01(r.XMin)
	r.YMax = clamp01(r.YMax)
	r.XMax = clamp01(r.XMax)
	if r.YMin > r.YMax {
		r.YMin, r.YMax = r.YMax, r.YMin
	}
	if r.XMin > r.XMax {
		r.XMin, r.XMax = r.XMax, r.XMin
	}
	return r
}

// FromPixels converts a pixel-space box (top-left corner plus size) into a
// normalized Rect for a frame of the given dimensions.
func FromPixels(x, y, w, h float64, frameW, frameH int) Rect {
	if frameW <= 0 || frameH <= 0 {
		return Rect{}
	}
	fw := float64(frameW)
	fh := float64(frameH)
	return Rect{
		YMin: y / fh,
		XMin: x / fw,
		YMax: (y + h) / fh,
		XMax: (x + w) / fw,
	}.Clamp()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
