package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlphaMaskSolidAt(t *testing.T) {
	// 2x2 mask, only the top-left pixel is solid.
	m := &AlphaMask{Width: 2, Height: 2, Alpha: []uint8{255, 0, 0, 0}}

	assert.True(t, m.SolidAt(0.1, 0.1))
	assert.False(t, m.SolidAt(0.9, 0.1))
	assert.False(t, m.SolidAt(0.1, 0.9))
	assert.False(t, m.SolidAt(1.0, 0.0))
	assert.False(t, m.SolidAt(-0.1, 0.0))

	var none *AlphaMask
	assert.True(t, none.SolidAt(0.5, 0.5), "no mask means fully solid")
}

func TestObjectCenter(t *testing.T) {
	o := ObjectState{X: 0.2, Y: 0.4, Width: 0.2, Height: 0.2}
	c := o.Center()
	assert.InDelta(t, 0.3, c.X, 1e-9)
	assert.InDelta(t, 0.5, c.Y, 1e-9)
}

func TestCollisionEventInvolves(t *testing.T) {
	e := CollisionEvent{A: "cat", B: "mouse", Phase: CollisionPhaseEnter}
	assert.True(t, e.Involves("cat", "mouse"))
	assert.True(t, e.Involves("mouse", "cat"))
	assert.False(t, e.Involves("cat", "dog"))
}
