// Package bresenham walks the pixels of a line with the Bresenham
// algorithm.
package bresenham

import (
	"image"
	"iter"
)

type Line struct {
	// d is the minor axis error, doubled.
	d int
	// dmajor, dminor is the absolute line vector.
	dmajor, dminor int
	// sx, sy are the step directions.
	sx, sy int
	// swap is set if the major axis is y.
	swap bool
}

// Reset the stepper with a signed distance and return the number of
// steps.
func (l *Line) Reset(dist image.Point) int {
	l.sx, l.sy = 1, 1
	if dist.X < 0 {
		l.sx = -1
		dist.X = -dist.X
	}
	if dist.Y < 0 {
		l.sy = -1
		dist.Y = -dist.Y
	}
	l.swap = dist.Y > dist.X
	if l.swap {
		dist.X, dist.Y = dist.Y, dist.X
	}
	l.dmajor, l.dminor = dist.X, dist.Y
	l.d = 2*l.dminor - l.dmajor
	return l.dmajor
}

// Step returns the offset to the next pixel. Every step moves one pixel
// along the major axis and at most one along the minor axis.
func (l *Line) Step() image.Point {
	maj, min := 1, 0
	if l.d > 0 {
		min = 1
		l.d -= 2 * l.dmajor
	}
	l.d += 2 * l.dminor
	if l.swap {
		maj, min = min, maj
	}
	return image.Pt(maj*l.sx, min*l.sy)
}

// Points returns the pixels from a to b, both included.
func Points(a, b image.Point) iter.Seq[image.Point] {
	return func(yield func(image.Point) bool) {
		var l Line
		steps := l.Reset(b.Sub(a))
		p := a
		if !yield(p) {
			return
		}
		for range steps {
			p = p.Add(l.Step())
			if !yield(p) {
				return
			}
		}
	}
}
