package touch

import (
	"errors"
	"image"
)

type Orientation int

const (
	Portrait Orientation = iota
	// Landscape rotates portrait coordinates by 90 degrees.
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// Calibration holds the raw controller readings at the screen edges.
type Calibration struct {
	XMin, XMax int
	YMin, YMax int
}

// DefaultCalibration matches the Waveshare 2.8" resistive panel.
var DefaultCalibration = Calibration{
	XMin: 130,
	XMax: 1943,
	YMin: 161,
	YMax: 1948,
}

func (c Calibration) Validate() error {
	if c.XMin == c.XMax {
		return errors.New("touch: calibration: empty x range")
	}
	if c.YMin == c.YMax {
		return errors.New("touch: calibration: empty y range")
	}
	return nil
}

// Normalizer maps raw readings into screen pixels. Size is the screen
// size in the selected orientation; the panel itself is portrait.
type Normalizer struct {
	Calibration Calibration
	Size        image.Point
	Orientation Orientation
}

// Normalize linearly maps raw into screen space. Readings outside the
// calibration range map outside the screen; nothing is clamped.
func (n Normalizer) Normalize(raw image.Point) image.Point {
	c := n.Calibration
	panel := n.Size
	if n.Orientation == Landscape {
		panel = image.Pt(n.Size.Y, n.Size.X)
	}
	nx := (raw.X - c.XMin) * panel.X / (c.XMax - c.XMin)
	ny := (raw.Y - c.YMin) * panel.Y / (c.YMax - c.YMin)
	if n.Orientation == Landscape {
		return image.Pt(ny, n.Size.Y-nx)
	}
	return image.Pt(nx, ny)
}
