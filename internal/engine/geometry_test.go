package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rulekit/internal/ir"
	"github.com/roach88/rulekit/internal/testutil"
)

func TestRectOverlap(t *testing.T) {
	a := rect{0, 0, 1, 1}
	assert.True(t, a.overlaps(rect{0.5, 0.5, 2, 2}))
	assert.False(t, a.overlaps(rect{1, 0, 2, 1}), "shared edge is not an overlap")
	assert.True(t, a.touches(rect{1, 0, 2, 1}))
	assert.False(t, a.overlaps(rect{2, 2, 3, 3}))
}

func TestHitboxOverlap(t *testing.T) {
	a := testutil.Object("a", 0, 0, 0.5, 0.5)
	b := testutil.Object("b", 0.25, 0.25, 0.5, 0.5)
	assert.True(t, hitboxOverlap(a, b))

	b.Visible = false
	assert.False(t, hitboxOverlap(a, b))
}

func TestPixelOverlapWithoutMasks(t *testing.T) {
	a := testutil.Object("a", 0, 0, 0.5, 0.5)
	b := testutil.Object("b", 0.25, 0.25, 0.5, 0.5)
	assert.True(t, pixelOverlap(a, b))
}

func TestRegionContains(t *testing.T) {
	r := ir.Region{Shape: ir.ShapeRect, X: 0.2, Y: 0.2, Width: 0.2, Height: 0.2}
	in, err := regionContains(r, ir.Point{X: 0.4, Y: 0.4})
	require.NoError(t, err)
	assert.True(t, in, "boundary is inside")

	c := ir.Region{Shape: ir.ShapeCircle, X: 0.5, Y: 0.5, Radius: 0.1}
	in, err = regionContains(c, ir.Point{X: 0.58, Y: 0.5})
	require.NoError(t, err)
	assert.True(t, in)
	in, err = regionContains(c, ir.Point{X: 0.58, Y: 0.58})
	require.NoError(t, err)
	assert.False(t, in)

	_, err = regionContains(ir.Region{Shape: "star"}, ir.Point{})
	assert.Error(t, err)
}

func TestHitTest(t *testing.T) {
	masked := testutil.Object("masked", 0, 0, 1, 1)
	masked.Mask = &ir.AlphaMask{Width: 2, Height: 1, Alpha: []uint8{255, 0}}
	w := NewMemoryWorld(testutil.Object("floor", 0, 0, 1, 1), masked)

	id, ok := HitTest(w, ir.Point{X: 0.25, Y: 0.5})
	require.True(t, ok)
	assert.Equal(t, "masked", id)

	id, ok = HitTest(w, ir.Point{X: 0.75, Y: 0.5})
	require.True(t, ok)
	assert.Equal(t, "floor", id, "transparent pixels pass through")

	_, ok = HitTest(w, ir.Point{X: 2, Y: 2})
	assert.False(t, ok)

	_, ok = HitTest(nil, ir.Point{})
	assert.False(t, ok)
}

func TestMemoryWorld(t *testing.T) {
	w := NewMemoryWorld(testutil.Object("a", 0, 0, 1, 1))
	w.Put(testutil.Object("b", 0, 0, 1, 1))
	w.Put(testutil.Object("a", 0.5, 0, 1, 1))

	objs := w.Objects()
	require.Len(t, objs, 2)
	assert.Equal(t, "a", objs[0].ID, "replacing keeps paint order")
	assert.Equal(t, 0.5, objs[0].X)

	assert.True(t, w.SetVisible("a", false))
	assert.False(t, w.SetVisible("zzz", false))
	objs[1].X = 9
	b, _ := w.Object("b")
	assert.Equal(t, 0.0, b.X, "Objects returns a copy")
}
