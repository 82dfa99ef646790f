package engine

import (
	"fmt"
	"math"

	"github.com/roach88/rulekit/internal/ir"
)

// rect is an axis-aligned box in normalized stage coordinates.
type rect struct {
	x0, y0, x1, y1 float64
}

func objectRect(o ir.ObjectState) rect {
	return rect{x0: o.X, y0: o.Y, x1: o.X + o.Width, y1: o.Y + o.Height}
}

func (r rect) empty() bool {
	return r.x1 <= r.x0 || r.y1 <= r.y0
}

// overlaps reports a non-empty intersection. Boxes that only share an
// edge do not overlap.
func (r rect) overlaps(o rect) bool {
	return r.x0 < o.x1 && o.x0 < r.x1 && r.y0 < o.y1 && o.y0 < r.y1
}

// touches is overlaps with shared edges counted.
func (r rect) touches(o rect) bool {
	return r.x0 <= o.x1 && o.x0 <= r.x1 && r.y0 <= o.y1 && o.y0 <= r.y1
}

func (r rect) intersect(o rect) rect {
	return rect{
		x0: math.Max(r.x0, o.x0),
		y0: math.Max(r.y0, o.y0),
		x1: math.Min(r.x1, o.x1),
		y1: math.Min(r.y1, o.y1),
	}
}

func (r rect) contains(p ir.Point) bool {
	return p.X >= r.x0 && p.X <= r.x1 && p.Y >= r.y0 && p.Y <= r.y1
}

// hitboxOverlap is the AABB test used by collision conditions. Hidden
// objects never collide.
func hitboxOverlap(a, b ir.ObjectState) bool {
	if !a.Visible || !b.Visible {
		return false
	}
	return objectRect(a).overlaps(objectRect(b))
}

// pixelSamples is the sampling grid per axis for pixel overlap.
const pixelSamples = 32

// pixelOverlap refines a hitbox overlap with the objects' alpha masks. It
// only samples inside the hitbox intersection, so callers run it after
// hitboxOverlap succeeds. Objects without a mask are treated as solid.
func pixelOverlap(a, b ir.ObjectState) bool {
	if a.Mask == nil && b.Mask == nil {
		return true
	}
	ix := objectRect(a).intersect(objectRect(b))
	if ix.empty() {
		return false
	}
	w := (ix.x1 - ix.x0) / pixelSamples
	h := (ix.y1 - ix.y0) / pixelSamples
	for j := 0; j < pixelSamples; j++ {
		py := ix.y0 + (float64(j)+0.5)*h
		for i := 0; i < pixelSamples; i++ {
			px := ix.x0 + (float64(i)+0.5)*w
			if solidAt(a, px, py) && solidAt(b, px, py) {
				return true
			}
		}
	}
	return false
}

func solidAt(o ir.ObjectState, px, py float64) bool {
	if o.Width <= 0 || o.Height <= 0 {
		return false
	}
	return o.Mask.SolidAt((px-o.X)/o.Width, (py-o.Y)/o.Height)
}

// regionContains reports whether p lies in the region, boundary included.
func regionContains(r ir.Region, p ir.Point) (bool, error) {
	switch r.Shape {
	case ir.ShapeRect, "":
		return rect{x0: r.X, y0: r.Y, x1: r.X + r.Width, y1: r.Y + r.Height}.contains(p), nil
	case ir.ShapeCircle:
		return math.Hypot(p.X-r.X, p.Y-r.Y) <= r.Radius, nil
	default:
		return false, fmt.Errorf("unknown region shape %q", r.Shape)
	}
}

// regionIntersects reports whether box and the region share any point.
func regionIntersects(r ir.Region, box rect) (bool, error) {
	switch r.Shape {
	case ir.ShapeRect, "":
		return rect{x0: r.X, y0: r.Y, x1: r.X + r.Width, y1: r.Y + r.Height}.touches(box), nil
	case ir.ShapeCircle:
		// Distance from the center to the closest point of the box.
		cx := math.Max(box.x0, math.Min(r.X, box.x1))
		cy := math.Max(box.y0, math.Min(r.Y, box.y1))
		return math.Hypot(r.X-cx, r.Y-cy) <= r.Radius, nil
	default:
		return false, fmt.Errorf("unknown region shape %q", r.Shape)
	}
}
