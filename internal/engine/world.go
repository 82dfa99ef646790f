package engine

import (
	"slices"

	"github.com/roach88/rulekit/internal/ir"
)

// World is read access to the host's game objects. The engine never owns
// the object list; it looks objects up by id when a condition or action
// needs them.
type World interface {
	// Object returns the object with the given id.
	Object(id string) (ir.ObjectState, bool)

	// Objects returns all objects in paint order, bottom first.
	Objects() []ir.ObjectState
}

// MutableWorld is a World the engine may write action results into.
// Each setter reports whether the object exists. Mutations are also
// returned in TickResult for hosts that apply them themselves.
type MutableWorld interface {
	World
	SetVisible(id string, visible bool) bool
	SetPosition(id string, p ir.Point) bool
	SetAnimation(id string, index int) bool
}

// MemoryWorld is an in-memory MutableWorld. The CLI, harness and replay
// use it in place of a renderer.
type MemoryWorld struct {
	objects []ir.ObjectState
	index   map[string]int
}

// NewMemoryWorld creates a world holding copies of objs in paint order.
func NewMemoryWorld(objs ...ir.ObjectState) *MemoryWorld {
	w := &MemoryWorld{index: make(map[string]int, len(objs))}
	for _, o := range objs {
		w.Put(o)
	}
	return w
}

// Put adds o, or replaces the object with the same id in place.
func (w *MemoryWorld) Put(o ir.ObjectState) {
	if i, ok := w.index[o.ID]; ok {
		w.objects[i] = o
		return
	}
	w.index[o.ID] = len(w.objects)
	w.objects = append(w.objects, o)
}

// Object implements World.
func (w *MemoryWorld) Object(id string) (ir.ObjectState, bool) {
	i, ok := w.index[id]
	if !ok {
		return ir.ObjectState{}, false
	}
	return w.objects[i], true
}

// Objects implements World. The returned slice is a copy.
func (w *MemoryWorld) Objects() []ir.ObjectState {
	return slices.Clone(w.objects)
}

// SetVisible implements MutableWorld.
func (w *MemoryWorld) SetVisible(id string, visible bool) bool {
	return w.update(id, func(o *ir.ObjectState) { o.Visible = visible })
}

// SetPosition implements MutableWorld.
func (w *MemoryWorld) SetPosition(id string, p ir.Point) bool {
	return w.update(id, func(o *ir.ObjectState) { o.X, o.Y = p.X, p.Y })
}

// SetAnimation implements MutableWorld. The frame restarts at 0.
func (w *MemoryWorld) SetAnimation(id string, index int) bool {
	return w.update(id, func(o *ir.ObjectState) {
		o.AnimationIndex = index
		o.Frame = 0
	})
}

// SetFrame sets the current animation frame, as an animation player would.
func (w *MemoryWorld) SetFrame(id string, frame int) bool {
	return w.update(id, func(o *ir.ObjectState) { o.Frame = frame })
}

func (w *MemoryWorld) update(id string, fn func(*ir.ObjectState)) bool {
	i, ok := w.index[id]
	if !ok {
		return false
	}
	fn(&w.objects[i])
	return true
}

// HitTest returns the topmost visible object under p.
func HitTest(w World, p ir.Point) (string, bool) {
	if w == nil {
		return "", false
	}
	objs := w.Objects()
	for i := len(objs) - 1; i >= 0; i-- {
		o := objs[i]
		if !o.Visible {
			continue
		}
		r := objectRect(o)
		if !r.contains(p) {
			continue
		}
		if o.Mask != nil && o.Width > 0 && o.Height > 0 {
			if !o.Mask.SolidAt((p.X-o.X)/o.Width, (p.Y-o.Y)/o.Height) {
				continue
			}
		}
		return o.ID, true
	}
	return "", false
}
