package touch

import (
	"image"

	tinytouch "tinygo.org/x/drivers/touch"
)

// FromPointer adapts a TinyGo touch driver, such as the four-wire
// resistive driver, to a Source. Readings with a Z below minZ count as no
// contact; minZ below 1 means any positive Z is contact.
func FromPointer(p tinytouch.Pointer, minZ int) Source {
	if minZ < 1 {
		minZ = 1
	}
	return SourceFunc(func() (image.Point, bool, error) {
		pt := p.ReadTouchPoint()
		if pt.Z < minZ {
			return image.Point{}, false, nil
		}
		return image.Pt(pt.X, pt.Y), true, nil
	})
}
