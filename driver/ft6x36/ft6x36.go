// Package ft6x36 implements a driver for the FT6x36 capacitive touch
// controllers. It reports the first touch point as a raw sample, so
// capacitive panels can stand in for the resistive controller.
//
// Datasheet: https://www.buydisplay.com/download/ic/FT6236-FT6336-FT6436L-FT6436_Datasheet.pdf
package ft6x36

import (
	"fmt"
	"image"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	Address = 0x38

	regTDStatus = 0x02
)

type Device struct {
	dev  i2c.Dev
	bus  sync.Locker
	port i2c.BusCloser
	// Allocate enough space for a touch event read.
	buf [1 + 5]byte
}

// New returns a driver on bus. The lock is held during every read; nil
// means the bus is not shared.
func New(bus i2c.Bus, lock sync.Locker) *Device {
	if lock == nil {
		lock = new(sync.Mutex)
	}
	return &Device{
		dev: i2c.Dev{Bus: bus, Addr: Address},
		bus: lock,
	}
}

// Open initializes the host drivers and opens the named I2C bus, for
// example "I2C1". An empty name selects the first bus.
func Open(name string, lock sync.Locker) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ft6x36: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("ft6x36: %w", err)
	}
	d := New(b, lock)
	d.port = b
	return d, nil
}

func (d *Device) Close() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	return err
}

// ReadRaw reads the first touch point in panel coordinates.
func (d *Device) ReadRaw() (image.Point, bool, error) {
	d.bus.Lock()
	defer d.bus.Unlock()
	wr := d.buf[:1]
	rd := d.buf[1:]
	wr[0] = regTDStatus
	if err := d.dev.Tx(wr, rd); err != nil {
		return image.Point{}, false, fmt.Errorf("ft6x36: %w", err)
	}

	// The low nibble counts touch points; the chip tracks at most two.
	switch n := rd[0] & 0x0f; {
	case n == 0, n > 2:
		return image.Point{}, false, nil
	}

	return image.Point{
		X: int(rd[1]&0x0f)<<8 | int(rd[2]),
		Y: int(rd[3]&0x0f)<<8 | int(rd[4]),
	}, true, nil
}
