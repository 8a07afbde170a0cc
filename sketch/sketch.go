// Package sketch is a small touch demo: it marks presses with a white
// cross, traces moves in green and marks releases with a red cross.
package sketch

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"restouch.dev/bresenham"
)

var (
	Black = color.RGBA{A: 0xff}
	White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Red   = color.RGBA{R: 0xff, A: 0xff}
	Green = color.RGBA{G: 0xff, A: 0xff}
	Blue  = color.RGBA{B: 0xff, A: 0xff}
)

// crossArm is the length of a cross arm on each side of the center.
const crossArm = 5

type Sketch struct {
	img   draw.Image
	label image.Rectangle
	// last is the previous trail point while touching.
	last     image.Point
	touching bool
}

// New clears img and shows a loading message until the first touch.
func New(img draw.Image) *Sketch {
	s := &Sketch{img: img}
	draw.Draw(img, img.Bounds(), image.NewUniform(Black), image.Point{}, draw.Src)
	s.label = s.drawLabel("Loading...")
	return s
}

func (s *Sketch) drawLabel(text string) image.Rectangle {
	face := basicfont.Face7x13
	b := s.img.Bounds()
	adv := font.MeasureString(face, text)
	m := face.Metrics()
	dot := fixed.Point26_6{
		X: fixed.I(b.Min.X+b.Dx()/2) - adv/2,
		Y: fixed.I(b.Min.Y+b.Dy()/2) + (m.Ascent-m.Descent)/2,
	}
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(White),
		Face: face,
		Dot:  dot,
	}
	bounds, _ := d.BoundString(text)
	d.DrawString(text)
	return image.Rect(
		bounds.Min.X.Floor(), bounds.Min.Y.Floor(),
		bounds.Max.X.Ceil(), bounds.Max.Y.Ceil(),
	)
}

func (s *Sketch) clearLabel() {
	if s.label.Empty() {
		return
	}
	draw.Draw(s.img, s.label, image.NewUniform(Black), image.Point{}, draw.Src)
	s.label = image.Rectangle{}
}

// Down marks a press.
func (s *Sketch) Down(x, y int) {
	s.clearLabel()
	s.cross(image.Pt(x, y), White)
	s.last = image.Pt(x, y)
	s.touching = true
}

// Move extends the trail to x, y.
func (s *Sketch) Move(x, y int) {
	p := image.Pt(x, y)
	from := s.last
	if !s.touching {
		from = p
	}
	b := s.img.Bounds()
	for q := range bresenham.Points(from, p) {
		if q.In(b) {
			s.img.Set(q.X, q.Y, Green)
		}
	}
	s.last = p
	s.touching = true
}

// Up marks a release.
func (s *Sketch) Up(x, y int) {
	s.cross(image.Pt(x, y), Red)
	s.touching = false
}

// cross strokes a one pixel wide cross centered on the pixel at p.
// Parts outside the image are clipped.
func (s *Sketch) cross(p image.Point, c color.Color) {
	b := s.img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), s.img, b)
	d := rasterx.NewDasher(b.Dx(), b.Dy(), scanner)
	d.SetStroke(fixed.I(1), 0, rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.Bevel, nil, 0)
	d.SetColor(c)
	// Pixel centers are at half coordinates.
	cx := float64(p.X-b.Min.X) + .5
	cy := float64(p.Y-b.Min.Y) + .5
	d.Start(rasterx.ToFixedP(cx-crossArm-.5, cy))
	d.Line(rasterx.ToFixedP(cx+crossArm-.5, cy))
	d.Stop(false)
	d.Start(rasterx.ToFixedP(cx, cy-crossArm-.5))
	d.Line(rasterx.ToFixedP(cx, cy+crossArm-.5))
	d.Stop(false)
	d.Draw()
}
