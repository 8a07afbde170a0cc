package st7789

import (
	"image"
	"image/color"
)

// Framebuffer is an image of 16-bit pixels in the controller's wire
// format: RGB565, most significant byte first. It tracks the area
// changed since the last flush.
type Framebuffer struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
	dirty  image.Rectangle
}

func NewFramebuffer(r image.Rectangle) *Framebuffer {
	return &Framebuffer{
		Pix:    make([]byte, r.Dx()*r.Dy()*2),
		Stride: r.Dx() * 2,
		Rect:   r,
	}
}

func (f *Framebuffer) Bounds() image.Rectangle {
	return f.Rect
}

func (f *Framebuffer) ColorModel() color.Model {
	return color.RGBAModel
}

func (f *Framebuffer) PixOffset(x, y int) int {
	return (y-f.Rect.Min.Y)*f.Stride + (x-f.Rect.Min.X)*2
}

func (f *Framebuffer) At(x, y int) color.Color {
	if !(image.Point{x, y}).In(f.Rect) {
		return color.RGBA{}
	}
	i := f.PixOffset(x, y)
	c := uint16(f.Pix[i])<<8 | uint16(f.Pix[i+1])
	r := uint8(c>>8) & 0xf8
	r |= r >> 5
	g := uint8(c>>3) & 0xfc
	g |= g >> 6
	b := uint8(c << 3)
	b |= b >> 5
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func (f *Framebuffer) Set(x, y int, c color.Color) {
	p := image.Point{x, y}
	if !p.In(f.Rect) {
		return
	}
	r, g, b, _ := c.RGBA()
	v := uint16(r>>8)&0xf8<<8 | uint16(g>>8)&0xfc<<3 | uint16(b>>8)>>3
	i := f.PixOffset(x, y)
	f.Pix[i] = byte(v >> 8)
	f.Pix[i+1] = byte(v)
	f.dirty = f.dirty.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
}

// Fill sets every pixel in r to c.
func (f *Framebuffer) Fill(r image.Rectangle, c color.Color) {
	r = r.Intersect(f.Rect)
	if r.Empty() {
		return
	}
	f.Set(r.Min.X, r.Min.Y, c)
	i := f.PixOffset(r.Min.X, r.Min.Y)
	hi, lo := f.Pix[i], f.Pix[i+1]
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := f.Pix[f.PixOffset(r.Min.X, y):f.PixOffset(r.Max.X, y)]
		for j := 0; j < len(row); j += 2 {
			row[j], row[j+1] = hi, lo
		}
	}
	f.dirty = f.dirty.Union(r)
}

// Dirty returns the area changed since the last call to Clean.
func (f *Framebuffer) Dirty() image.Rectangle {
	return f.dirty
}

func (f *Framebuffer) Clean() {
	f.dirty = image.Rectangle{}
}
