package touch

import (
	"fmt"
	"image"
)

type State int

const (
	Idle State = iota
	PressDebounce
	Touching
	ReleaseDebounce
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PressDebounce:
		return "press-debounce"
	case Touching:
		return "touching"
	case ReleaseDebounce:
		return "release-debounce"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultThreshold is the number of polls a contact or release must
// persist for after the poll that first observed it.
const DefaultThreshold = 3

// Debouncer is the press/release state machine. It is not safe for
// concurrent use.
type Debouncer struct {
	threshold int
	state     State
	count     int
	// last is the most recent position while touching.
	last image.Point
}

// NewDebouncer returns an idle debouncer. A threshold below 1 selects
// DefaultThreshold.
func NewDebouncer(threshold int) *Debouncer {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Debouncer{threshold: threshold}
}

func (d *Debouncer) State() State {
	return d.state
}

func (d *Debouncer) Reset() {
	d.state = Idle
	d.count = 0
	d.last = image.Point{}
}

// Step advances the machine by one poll and returns the event it
// produced, if any. The poll that starts a debounce only arms the
// counter, so a threshold of N reports Down on contact N+1 and Up on
// release N+1.
func (d *Debouncer) Step(p image.Point, contact bool) Event {
	switch d.state {
	case Idle:
		if contact {
			d.state = PressDebounce
			d.count = d.threshold
		}
	case PressDebounce:
		if !contact {
			d.state = Idle
			return Event{}
		}
		return d.press(p)
	case Touching:
		if !contact {
			d.state = ReleaseDebounce
			d.count = d.threshold
			return Event{}
		}
		d.last = p
		return Event{Kind: Move, Pos: p}
	case ReleaseDebounce:
		if contact {
			// The press never ended.
			d.state = Touching
			return Event{}
		}
		return d.release()
	}
	return Event{}
}

func (d *Debouncer) press(p image.Point) Event {
	d.count--
	if d.count > 0 {
		return Event{}
	}
	d.state = Touching
	d.last = p
	return Event{Kind: Down, Pos: p}
}

func (d *Debouncer) release() Event {
	d.count--
	if d.count > 0 {
		return Event{}
	}
	d.state = Idle
	return Event{Kind: Up, Pos: d.last}
}
