package touch

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

// script is a Source replaying fixed samples, then reporting no contact.
type script struct {
	mu      sync.Mutex
	samples []sample
	errs    map[int]error
	n       int
}

func (s *script) ReadRaw() (image.Point, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.n
	s.n++
	if err := s.errs[i]; err != nil {
		return image.Point{}, false, err
	}
	if i >= len(s.samples) {
		return image.Point{}, false, nil
	}
	return s.samples[i].p, s.samples[i].contact, nil
}

// identity maps raw readings one to one onto a 240x320 screen.
var identity = Calibration{XMin: 0, XMax: 240, YMin: 0, YMax: 320}

type recorder struct {
	evts []Event
}

func (r *recorder) register(p *Panel) {
	p.OnTouchDown(func(x, y int) { r.evts = append(r.evts, Event{Down, image.Pt(x, y)}) })
	p.OnTouchMove(func(x, y int) { r.evts = append(r.evts, Event{Move, image.Pt(x, y)}) })
	p.OnTouchUp(func(x, y int) { r.evts = append(r.evts, Event{Up, image.Pt(x, y)}) })
}

func TestPanelPoll(t *testing.T) {
	c := qt.New(t)
	samples := repeat(contactAt(10, 10), 4)
	samples = append(samples, contactAt(10, 11), contactAt(10, 12))
	samples = append(samples, repeat(released, 4)...)
	src := &script{samples: samples}
	p, err := New(Config{Source: src, Calibration: identity})
	c.Assert(err, qt.IsNil)
	r := new(recorder)
	r.register(p)
	for range len(src.samples) + 5 {
		p.Poll()
	}
	c.Assert(r.evts, qt.DeepEquals, []Event{
		{Down, image.Pt(10, 10)},
		{Move, image.Pt(10, 11)},
		{Move, image.Pt(10, 12)},
		{Up, image.Pt(10, 12)},
	})
	c.Assert(p.State(), qt.Equals, Idle)
}

func TestPanelLandscape(t *testing.T) {
	c := qt.New(t)
	src := &script{samples: repeat(contactAt(0, 0), 4)}
	p, err := New(Config{Source: src, Calibration: identity, Orientation: Landscape})
	c.Assert(err, qt.IsNil)
	var down image.Point
	p.OnTouchDown(func(x, y int) { down = image.Pt(x, y) })
	for range 4 {
		p.Poll()
	}
	c.Assert(down, qt.Equals, image.Pt(0, 240))
}

func TestPanelHandlerReplacement(t *testing.T) {
	c := qt.New(t)
	src := &script{samples: repeat(contactAt(1, 2), 7)}
	p, err := New(Config{Source: src, Calibration: identity})
	c.Assert(err, qt.IsNil)

	first, second := 0, 0
	p.OnTouchMove(func(x, y int) { first++ })
	for range 5 {
		p.Poll()
	}
	p.OnTouchMove(func(x, y int) { second++ })
	p.Poll()
	p.OnTouchMove(nil)
	c.Assert(p.Poll(), qt.Equals, Event{Move, image.Pt(1, 2)})
	c.Assert(first, qt.Equals, 1)
	c.Assert(second, qt.Equals, 1)
}

func TestPanelSourceErrors(t *testing.T) {
	c := qt.New(t)
	failure := errors.New("bus fault")
	src := &script{
		samples: repeat(contactAt(3, 4), 8),
		errs:    map[int]error{4: failure, 5: failure, 6: failure, 7: failure},
	}
	p, err := New(Config{Source: src, Calibration: identity})
	c.Assert(err, qt.IsNil)
	r := new(recorder)
	r.register(p)
	for range 8 {
		p.Poll()
	}
	c.Assert(r.evts, qt.DeepEquals, []Event{
		{Down, image.Pt(3, 4)},
		{Up, image.Pt(3, 4)},
	})
	c.Assert(p.SourceErrors(), qt.Equals, uint64(4))
}

func TestPanelConfig(t *testing.T) {
	c := qt.New(t)
	_, err := New(Config{})
	c.Assert(err, qt.ErrorMatches, "touch: no source")

	src := &script{}
	_, err = New(Config{Source: src, Calibration: Calibration{XMin: 1, XMax: 1, YMax: 5}})
	c.Assert(err, qt.ErrorMatches, ".*empty x range")

	_, err = New(Config{Source: src, Size: image.Pt(-1, 10)})
	c.Assert(err, qt.ErrorMatches, "touch: invalid screen size")

	p, err := New(Config{Source: src, Orientation: Landscape})
	c.Assert(err, qt.IsNil)
	c.Assert(p.norm.Size, qt.Equals, image.Pt(320, 240))
	c.Assert(p.norm.Calibration, qt.Equals, DefaultCalibration)
	c.Assert(p.interval, qt.Equals, DefaultInterval)
}

func TestPanelRun(t *testing.T) {
	c := qt.New(t)
	src := &script{samples: repeat(contactAt(7, 8), 4)}
	p, err := New(Config{Source: src, Calibration: identity, Interval: time.Millisecond})
	c.Assert(err, qt.IsNil)

	downs := make(chan image.Point, 1)
	p.OnTouchDown(func(x, y int) { downs <- image.Pt(x, y) })
	ticks := make(chan struct{}, 100)
	p.OnTick(func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case pos := <-downs:
		c.Assert(pos, qt.Equals, image.Pt(7, 8))
	case <-time.After(5 * time.Second):
		c.Fatal("no down event")
	}
	for range 3 {
		select {
		case <-ticks:
		case <-time.After(5 * time.Second):
			c.Fatal("tick handler not called")
		}
	}
	cancel()
	select {
	case err := <-done:
		c.Assert(err, qt.IsNil)
	case <-time.After(5 * time.Second):
		c.Fatal("Run did not stop")
	}
}

// TestPanelTickStall checks that a blocked tick handler does not stop
// touch polling.
func TestPanelTickStall(t *testing.T) {
	c := qt.New(t)
	src := &script{samples: repeat(contactAt(1, 1), 4)}
	p, err := New(Config{Source: src, Calibration: identity, Interval: time.Millisecond})
	c.Assert(err, qt.IsNil)

	release := make(chan struct{})
	p.OnTick(func() { <-release })
	downs := make(chan struct{}, 1)
	p.OnTouchDown(func(x, y int) { downs <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	select {
	case <-downs:
	case <-time.After(5 * time.Second):
		c.Fatal("touch polling stalled behind the tick handler")
	}
	cancel()
	close(release)
	c.Assert(<-done, qt.IsNil)
}

// TestPanelTickLate checks that a tick handler set while Run is active
// is picked up by the running tick loop.
func TestPanelTickLate(t *testing.T) {
	c := qt.New(t)
	p, err := New(Config{Source: &script{}, Interval: time.Millisecond})
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Let the loops run a few intervals without a handler.
	time.Sleep(5 * time.Millisecond)
	ticks := make(chan struct{}, 1)
	p.OnTick(func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	select {
	case <-ticks:
	case <-time.After(5 * time.Second):
		c.Fatal("tick handler set after Run was never called")
	}
	cancel()
	c.Assert(<-done, qt.IsNil)
}

func TestPanelRunCancelled(t *testing.T) {
	c := qt.New(t)
	src := &script{}
	p, err := New(Config{Source: src})
	c.Assert(err, qt.IsNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Assert(p.Run(ctx), qt.IsNil)
	c.Assert(src.n, qt.Equals, 0)
}
