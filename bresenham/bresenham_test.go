package bresenham

import (
	"image"
	"slices"
	"testing"
)

func TestPoints(t *testing.T) {
	tests := []image.Point{
		image.Pt(0, 0),
		image.Pt(0, 1),
		image.Pt(1, 0),
		image.Pt(1, 1),
		image.Pt(1, 100),
		image.Pt(100, 1),
		image.Pt(100, 0),
		image.Pt(1000, 50),
		image.Pt(20, 50),
	}
	dirs := []image.Point{
		image.Pt(1, 1),
		image.Pt(-1, 1),
		image.Pt(1, -1),
		image.Pt(-1, -1),
	}
	start := image.Pt(7, -3)
	for _, dir := range dirs {
		for _, dist := range tests {
			dist = image.Pt(dist.X*dir.X, dist.Y*dir.Y)
			end := start.Add(dist)
			pts := slices.Collect(Points(start, end))
			if want := max(abs(dist.X), abs(dist.Y)) + 1; len(pts) != want {
				t.Errorf("%v: %d points, expected %d", dist, len(pts), want)
				continue
			}
			if pts[0] != start || pts[len(pts)-1] != end {
				t.Errorf("%v: line from %v to %v, expected %v to %v", dist, pts[0], pts[len(pts)-1], start, end)
			}
			for i := 1; i < len(pts); i++ {
				if d := pts[i].Sub(pts[i-1]); abs(d.X) > 1 || abs(d.Y) > 1 {
					t.Errorf("%v: gap between %v and %v", dist, pts[i-1], pts[i])
				}
			}
		}
	}
}

func TestPointsStop(t *testing.T) {
	n := 0
	for range Points(image.Pt(0, 0), image.Pt(50, 10)) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("iterated %d points, expected 3", n)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
