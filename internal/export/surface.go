package export

import "context"

// Rect is a region in page coordinates (CSS pixels)
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pad grows r by p on every side
func (r Rect) Pad(p float64) Rect {
	return Rect{X: r.X - p, Y: r.Y - p, Width: r.Width + 2*p, Height: r.Height + 2*p}
}

// Surface is a rendered document holding the elements to capture. Elements
// are addressed by DOM id.
type Surface interface {
	// Exists reports whether an element with id is present
	Exists(ctx context.Context, id string) (bool, error)

	// InlineStyle returns the element's style attribute, "" when absent
	InlineStyle(ctx context.Context, id string) (string, error)

	// ComputedStyle returns the computed values of props
	ComputedStyle(ctx context.Context, id string, props []string) (map[string]string, error)

	// SetInlineStyle replaces the style attribute; "" removes it
	SetInlineStyle(ctx context.Context, id, css string) error

	// WaitImages blocks until every image inside the element has loaded or
	// failed, returning the sources that failed
	WaitImages(ctx context.Context, id string) ([]string, error)

	// Bounds returns the element's border box
	Bounds(ctx context.Context, id string) (Rect, error)

	// Capture renders clip to PNG at scale device pixels per CSS pixel
	Capture(ctx context.Context, clip Rect, scale float64) ([]byte, error)
}
