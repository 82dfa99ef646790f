package ir

// Point is a position in normalized stage coordinates, [0,1] on both axes.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// RegionShape selects the geometry of a Region.
type RegionShape string

const (
	ShapeRect   RegionShape = "rect"
	ShapeCircle RegionShape = "circle"
)

// Region is a stage area in normalized coordinates. Rectangles use the
// top-left corner (X, Y) with Width and Height; circles use the center
// (X, Y) with Radius.
type Region struct {
	Shape  RegionShape `json:"shape"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width,omitempty"`
	Height float64     `json:"height,omitempty"`
	Radius float64     `json:"radius,omitempty"`
}

// AlphaMask is a row-major per-pixel alpha map of an object's current frame.
type AlphaMask struct {
	Width  int     `json:"width" yaml:"width"`
	Height int     `json:"height" yaml:"height"`
	Alpha  []uint8 `json:"alpha" yaml:"alpha"`
}

// AlphaThreshold is the minimum alpha that counts as solid in pixel checks.
const AlphaThreshold = 16

// SolidAt reports whether the mask is solid at (u, v), both in [0,1) of the
// mask's extent. Out-of-range samples are transparent.
func (m *AlphaMask) SolidAt(u, v float64) bool {
	if m == nil || m.Width <= 0 || m.Height <= 0 {
		return true
	}
	if u < 0 || v < 0 || u >= 1 || v >= 1 {
		return false
	}
	px := int(u * float64(m.Width))
	py := int(v * float64(m.Height))
	idx := py*m.Width + px
	if idx < 0 || idx >= len(m.Alpha) {
		return false
	}
	return m.Alpha[idx] >= AlphaThreshold
}

// ObjectState is the engine's view of a game object owned by the host.
// X and Y are the top-left corner in normalized stage coordinates.
type ObjectState struct {
	ID             string     `json:"id" yaml:"id"`
	X              float64    `json:"x" yaml:"x"`
	Y              float64    `json:"y" yaml:"y"`
	Width          float64    `json:"width" yaml:"width"`
	Height         float64    `json:"height" yaml:"height"`
	Visible        bool       `json:"visible" yaml:"visible"`
	AnimationIndex int        `json:"animation_index" yaml:"animation_index"`
	Frame          int        `json:"frame" yaml:"frame"`
	Mask           *AlphaMask `json:"mask,omitempty" yaml:"mask,omitempty"`
}

// Center returns the center point of the object's bounding box.
func (o ObjectState) Center() Point {
	return Point{X: o.X + o.Width/2, Y: o.Y + o.Height/2}
}
