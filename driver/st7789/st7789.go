// Package st7789 implements a driver for ST7789 LCD controllers on a
// shared SPI bus, such as the 240x320 panel of the Waveshare 2.8"
// resistive touch display.
package st7789

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

type Rotation int

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

const (
	cmdSLPOUT = 0x11
	cmdNORON  = 0x13
	cmdINVON  = 0x21
	cmdDISPON = 0x29
	cmdCASET  = 0x2a
	cmdRASET  = 0x2b
	cmdRAMWR  = 0x2c
	cmdMADCTL = 0x36
	cmdCOLMOD = 0x3a
)

// madctl maps rotations to memory access control values.
var madctl = [...]byte{
	Rotation0:   0x00,
	Rotation90:  0x60, // MX | MV
	Rotation180: 0xc0, // MX | MY
	Rotation270: 0xa0, // MY | MV
}

// Pins are the control lines of the controller. BL may be nil.
type Pins struct {
	DC  gpio.PinOut
	RST gpio.PinOut
	BL  gpio.PinOut
}

type Config struct {
	// Port is the SPI port name, for example "SPI0.0".
	Port string
	// DC, RST and BL name the control pins, for example "GPIO25".
	DC, RST, BL string
	// Size is the display size after rotation. Defaults to 240x320.
	Size     image.Point
	Rotation Rotation
	// Bus is held during every transfer. Share it with the other devices
	// on the SPI bus.
	Bus sync.Locker
}

type Display struct {
	size      image.Point
	rotation  Rotation
	conn      conn.Conn
	port      spi.PortCloser
	pins      Pins
	bus       sync.Locker
	window    image.Rectangle
	txBuf     []byte
	backlight bool
}

// Open initializes the host drivers, connects to the SPI port and resets
// and configures the controller.
func Open(cfg Config) (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("st7789: %w", err)
	}
	var pins Pins
	for _, p := range []struct {
		name string
		pin  *gpio.PinOut
	}{
		{cfg.DC, &pins.DC},
		{cfg.RST, &pins.RST},
		{cfg.BL, &pins.BL},
	} {
		if p.name == "" {
			continue
		}
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return nil, fmt.Errorf("st7789: no such pin: %s", p.name)
		}
		*p.pin = pin
	}
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("st7789: %w", err)
	}
	c, err := port.Connect(40*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("st7789: %w", err)
	}
	d, err := New(c, pins, cfg)
	if err != nil {
		port.Close()
		return nil, err
	}
	d.port = port
	return d, nil
}

// New configures a controller on an already connected SPI connection.
func New(c conn.Conn, pins Pins, cfg Config) (*Display, error) {
	if pins.DC == nil || pins.RST == nil {
		return nil, errors.New("st7789: missing DC or RST pin")
	}
	if cfg.Rotation < Rotation0 || cfg.Rotation > Rotation270 {
		return nil, fmt.Errorf("st7789: invalid rotation: %d", cfg.Rotation)
	}
	size := cfg.Size
	if size == (image.Point{}) {
		size = image.Pt(240, 320)
		if cfg.Rotation == Rotation90 || cfg.Rotation == Rotation270 {
			size = image.Pt(320, 240)
		}
	}
	bus := cfg.Bus
	if bus == nil {
		bus = new(sync.Mutex)
	}
	d := &Display{
		size:     size,
		rotation: cfg.Rotation,
		conn:     c,
		pins:     pins,
		bus:      bus,
	}
	maxTx := 4096
	if lim, ok := c.(conn.Limits); ok {
		maxTx = lim.MaxTxSize()
	}
	d.txBuf = make([]byte, maxTx)
	if err := d.setup(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Display) Close() error {
	if d.pins.BL != nil {
		d.pins.BL.Out(gpio.Low)
	}
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	d.conn = nil
	return err
}

func (d *Display) Size() image.Point {
	return d.size
}

func (d *Display) sendCommand(cmd byte, data ...byte) error {
	if err := d.pins.DC.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(data) > 0 {
		if err := d.pins.DC.Out(gpio.High); err != nil {
			return err
		}
		if err := d.conn.Tx(data, nil); err != nil {
			return err
		}
	}
	return nil
}

func (d *Display) setup() error {
	d.bus.Lock()
	defer d.bus.Unlock()

	// Keep the backlight off until the first frame.
	if d.pins.BL != nil {
		if err := d.pins.BL.Out(gpio.Low); err != nil {
			return fmt.Errorf("st7789: %w", err)
		}
	}
	for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
		if err := d.pins.RST.Out(l); err != nil {
			return fmt.Errorf("st7789: %w", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(120 * time.Millisecond)

	var cmdErr error
	sendCommand := func(cmd byte, data ...byte) {
		if cmdErr != nil {
			return
		}
		cmdErr = d.sendCommand(cmd, data...)
	}
	sendCommand(cmdSLPOUT)
	if cmdErr == nil {
		time.Sleep(120 * time.Millisecond)
	}
	sendCommand(cmdCOLMOD, 0x55 /* 16 bits per pixel */)
	sendCommand(cmdMADCTL, madctl[d.rotation])
	sendCommand(cmdINVON)
	sendCommand(cmdNORON)
	sendCommand(cmdDISPON)
	if cmdErr != nil {
		return fmt.Errorf("st7789: SPI command: %w", cmdErr)
	}
	return nil
}

// Flush sends the dirty area of fb to the controller and marks fb clean.
func (d *Display) Flush(fb *Framebuffer) error {
	sr := fb.Dirty().Intersect(fb.Bounds()).Intersect(image.Rectangle{Max: d.size})
	if sr.Empty() {
		fb.Clean()
		return nil
	}
	d.bus.Lock()
	defer d.bus.Unlock()
	if err := d.setWindow(sr); err != nil {
		return fmt.Errorf("st7789: %w", err)
	}
	if err := d.pins.DC.Out(gpio.High); err != nil {
		return fmt.Errorf("st7789: %w", err)
	}
	rowLen := sr.Dx() * 2
	n := 0
	flush := func() error {
		if n == 0 {
			return nil
		}
		err := d.conn.Tx(d.txBuf[:n], nil)
		n = 0
		return err
	}
	for y := sr.Min.Y; y < sr.Max.Y; y++ {
		row := fb.Pix[fb.PixOffset(sr.Min.X, y):][:rowLen]
		for len(row) > 0 {
			c := copy(d.txBuf[n:], row)
			n += c
			row = row[c:]
			if n == len(d.txBuf) {
				if err := flush(); err != nil {
					return fmt.Errorf("st7789: blit: %w", err)
				}
			}
		}
	}
	if err := flush(); err != nil {
		return fmt.Errorf("st7789: blit: %w", err)
	}
	fb.Clean()

	if !d.backlight && d.pins.BL != nil {
		if err := d.pins.BL.Out(gpio.High); err != nil {
			return fmt.Errorf("st7789: %w", err)
		}
		d.backlight = true
	}
	return nil
}

func (d *Display) setWindow(r image.Rectangle) error {
	if d.window == r {
		return d.sendCommand(cmdRAMWR)
	}
	d.window = r

	var cmdErr error
	sendCommand := func(cmd byte, data ...byte) {
		if cmdErr != nil {
			return
		}
		cmdErr = d.sendCommand(cmd, data...)
	}
	sendCommand(cmdCASET, byte(r.Min.X>>8), byte(r.Min.X), byte((r.Max.X-1)>>8), byte(r.Max.X-1))
	sendCommand(cmdRASET, byte(r.Min.Y>>8), byte(r.Min.Y), byte((r.Max.Y-1)>>8), byte(r.Max.Y-1))
	sendCommand(cmdRAMWR)
	return cmdErr
}
