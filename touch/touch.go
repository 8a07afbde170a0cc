// Package touch turns raw resistive touch samples into debounced pointer
// events.
//
// A Panel polls a Source on a fixed interval, maps each raw reading into
// screen space with a Normalizer, feeds it to a Debouncer and dispatches
// the resulting down, move and up events to application handlers. A
// second loop invokes an optional tick handler on the same interval.
package touch

import (
	"fmt"
	"image"
)

// Source reads one raw sample from a touch controller. The bool result
// reports contact; the point is in controller coordinates and is only
// meaningful when contact is true.
type Source interface {
	ReadRaw() (image.Point, bool, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (image.Point, bool, error)

func (f SourceFunc) ReadRaw() (image.Point, bool, error) {
	return f()
}

type Kind int

const (
	None Kind = iota
	Down
	Move
	Up
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is the outcome of a single poll. Pos is in screen coordinates.
type Event struct {
	Kind Kind
	Pos  image.Point
}

func (e Event) String() string {
	if e.Kind == None {
		return "none"
	}
	return fmt.Sprintf("%s%v", e.Kind, e.Pos)
}

type HandlerFunc func(x, y int)

// Handlers routes events to per-kind callbacks. A nil callback drops the
// event.
type Handlers struct {
	Down HandlerFunc
	Move HandlerFunc
	Up   HandlerFunc
}

// Dispatch calls the handler registered for e synchronously. Panics in
// handlers are not recovered.
func (h Handlers) Dispatch(e Event) {
	var f HandlerFunc
	switch e.Kind {
	case Down:
		f = h.Down
	case Move:
		f = h.Move
	case Up:
		f = h.Up
	}
	if f != nil {
		f(e.Pos.X, e.Pos.Y)
	}
}
