package serialtouch

import (
	"image"
	"io"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"restouch.dev/trace"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// await polls p until it reports the wanted contact state.
func await(c *qt.C, p *Port, contact bool) image.Point {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		pt, ok, err := p.ReadRaw()
		c.Assert(err, qt.IsNil)
		if ok == contact {
			return pt
		}
		time.Sleep(time.Millisecond)
	}
	c.Fatalf("no sample with contact %v", contact)
	return image.Point{}
}

func TestPort(t *testing.T) {
	c := qt.New(t)
	r, w := io.Pipe()
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	p := newPort(r, clk.now)

	_, contact, err := p.ReadRaw()
	c.Assert(err, qt.IsNil)
	c.Assert(contact, qt.IsFalse)

	enc := trace.NewEncoder(w)
	c.Assert(enc.Encode(trace.Frame{X: 300, Y: 400, Contact: true}), qt.IsNil)
	c.Assert(await(c, p, true), qt.Equals, image.Pt(300, 400))

	// Stale samples are released.
	clk.advance(MaxAge + time.Millisecond)
	await(c, p, false)

	c.Assert(enc.Encode(trace.Frame{X: 310, Y: 410, Contact: true}), qt.IsNil)
	c.Assert(await(c, p, true), qt.Equals, image.Pt(310, 410))
	c.Assert(enc.Encode(trace.Frame{}), qt.IsNil)
	await(c, p, false)

	c.Assert(p.Close(), qt.IsNil)
	_, _, err = p.ReadRaw()
	c.Assert(err, qt.ErrorMatches, "serialtouch: .*")
}

func TestPortEOF(t *testing.T) {
	c := qt.New(t)
	r, w := io.Pipe()
	p := New(r)
	w.Close()
	<-p.done
	_, contact, err := p.ReadRaw()
	c.Assert(contact, qt.IsFalse)
	c.Assert(err, qt.ErrorMatches, "serialtouch: .*unexpected EOF")
}
