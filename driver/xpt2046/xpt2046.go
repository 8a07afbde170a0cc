// Package xpt2046 implements a driver for the XPT2046 resistive touch
// screen controller on a shared SPI bus.
//
// Datasheet: https://grobotronics.com/images/datasheets/xpt2046-datasheet.pdf
package xpt2046

import (
	"fmt"
	"image"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Control bytes for 12-bit differential conversions. The power-down bits
// are left clear so the controller sleeps with the pen interrupt enabled
// between conversions.
const (
	cmdX  = 0xd0
	cmdY  = 0x90
	cmdZ1 = 0xb0
	cmdZ2 = 0xc0

	maxValue = 1<<12 - 1
)

type Config struct {
	// MinPressure is the smallest z1+4095-z2 reading that counts as
	// contact. Defaults to 400.
	MinPressure int
	// Samples is the number of x and y conversions averaged per read.
	// Defaults to 4.
	Samples int
	// MaxSpread is the largest difference between averaged conversions
	// of one axis. Noisier reads are reported as no contact. Defaults to
	// 50.
	MaxSpread int
}

type Device struct {
	conn conn.Conn
	port spi.PortCloser
	bus  sync.Locker
	cfg  Config
	xs   []int
	ys   []int
}

// New returns a driver on an already connected SPI connection. The bus
// lock is held for the duration of every read; pass the lock shared with
// the other devices on the bus, or nil for a dedicated bus.
func New(c conn.Conn, bus sync.Locker, cfg Config) *Device {
	if cfg.MinPressure <= 0 {
		cfg.MinPressure = 400
	}
	if cfg.Samples <= 0 {
		cfg.Samples = 4
	}
	if cfg.MaxSpread <= 0 {
		cfg.MaxSpread = 50
	}
	if bus == nil {
		bus = new(sync.Mutex)
	}
	return &Device{
		conn: c,
		bus:  bus,
		cfg:  cfg,
		xs:   make([]int, cfg.Samples),
		ys:   make([]int, cfg.Samples),
	}
}

// Open initializes the host drivers and connects to the named SPI port,
// for example "SPI0.1". An empty name selects the first port.
func Open(port string, bus sync.Locker, cfg Config) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("xpt2046: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("xpt2046: %w", err)
	}
	// The controller is rated for 2.5 MHz.
	c, err := p.Connect(2*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("xpt2046: %w", err)
	}
	d := New(c, bus, cfg)
	d.port = p
	return d, nil
}

func (d *Device) Close() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	d.conn = nil
	return err
}

// Pressure returns the raw pressure reading; larger is firmer.
func (d *Device) Pressure() (int, error) {
	d.bus.Lock()
	defer d.bus.Unlock()
	return d.pressure()
}

// ReadRaw reads a touch point in controller coordinates. It reports no
// contact when the pressure is too low or the conversions disagree.
func (d *Device) ReadRaw() (image.Point, bool, error) {
	d.bus.Lock()
	defer d.bus.Unlock()
	z, err := d.pressure()
	if err != nil {
		return image.Point{}, false, err
	}
	if z < d.cfg.MinPressure {
		return image.Point{}, false, nil
	}
	// Interleave the axes; consecutive conversions of the same axis
	// settle towards each other and hide noise.
	for i := range d.xs {
		if d.xs[i], err = d.read(cmdX); err != nil {
			return image.Point{}, false, err
		}
		if d.ys[i], err = d.read(cmdY); err != nil {
			return image.Point{}, false, err
		}
	}
	x, xok := d.average(d.xs)
	y, yok := d.average(d.ys)
	if !xok || !yok {
		return image.Point{}, false, nil
	}
	return image.Pt(x, y), true, nil
}

func (d *Device) pressure() (int, error) {
	z1, err := d.read(cmdZ1)
	if err != nil {
		return 0, err
	}
	z2, err := d.read(cmdZ2)
	if err != nil {
		return 0, err
	}
	return z1 + maxValue - z2, nil
}

func (d *Device) average(vals []int) (int, bool) {
	lo, hi, sum := vals[0], vals[0], 0
	for _, v := range vals {
		lo = min(lo, v)
		hi = max(hi, v)
		sum += v
	}
	return sum / len(vals), hi-lo <= d.cfg.MaxSpread
}

// read runs a single conversion. The 12-bit result follows the busy bit
// and is left aligned in the last two bytes.
func (d *Device) read(cmd byte) (int, error) {
	w := [3]byte{cmd}
	var r [3]byte
	if err := d.conn.Tx(w[:], r[:]); err != nil {
		return 0, fmt.Errorf("xpt2046: %w", err)
	}
	v := (uint16(r[1])<<8 | uint16(r[2])) >> 3
	return int(v & maxValue), nil
}
