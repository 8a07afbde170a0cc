// Package serialtouch reads raw touch samples streamed over a serial
// line, for controllers attached to a microcontroller instead of the
// host's SPI bus. The microcontroller sends one trace.Frame per sample.
package serialtouch

import (
	"errors"
	"fmt"
	"image"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/tarm/serial"
	"restouch.dev/trace"
)

// MaxAge is how long a received sample stays current. Older samples read
// as no contact, so a silent sender releases any press.
const MaxAge = 100 * time.Millisecond

type Port struct {
	rc   io.ReadCloser
	done chan struct{}
	now  func() time.Time

	mu     sync.Mutex
	latest trace.Frame
	at     time.Time
	err    error
}

// Open opens the serial device, or the first available default device
// if dev is empty.
func Open(dev string) (*Port, error) {
	const baudRate = 115200

	var devices []string
	if dev != "" {
		devices = append(devices, dev)
	} else {
		switch runtime.GOOS {
		case "windows":
			devices = append(devices, "COM3")
		case "linux":
			devices = append(devices, "/dev/ttyACM0", "/dev/ttyUSB0")
		}
	}
	if len(devices) == 0 {
		return nil, errors.New("serialtouch: no device specified")
	}
	var firstErr error
	for _, dev := range devices {
		c := &serial.Config{Name: dev, Baud: baudRate}
		s, err := serial.OpenPort(c)
		if err == nil {
			return New(s), nil
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("serialtouch: %w", err)
		}
	}
	return nil, firstErr
}

// New starts decoding frames from rc in the background.
func New(rc io.ReadCloser) *Port {
	return newPort(rc, time.Now)
}

func newPort(rc io.ReadCloser, now func() time.Time) *Port {
	p := &Port{
		rc:   rc,
		done: make(chan struct{}),
		now:  now,
	}
	go p.read()
	return p
}

func (p *Port) read() {
	defer close(p.done)
	dec := trace.NewDecoder(p.rc)
	for {
		f, err := dec.Decode()
		p.mu.Lock()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			p.err = fmt.Errorf("serialtouch: %w", err)
			p.mu.Unlock()
			return
		}
		p.latest = f
		p.at = p.now()
		p.mu.Unlock()
	}
}

// ReadRaw returns the most recent sample without blocking. Once the
// stream fails every read returns the error.
func (p *Port) ReadRaw() (image.Point, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return image.Point{}, false, p.err
	}
	f := p.latest
	if !f.Contact || p.at.IsZero() || p.now().Sub(p.at) > MaxAge {
		return image.Point{}, false, nil
	}
	return image.Pt(f.X, f.Y), true, nil
}

// Close closes the line and waits for the decoder to stop.
func (p *Port) Close() error {
	err := p.rc.Close()
	<-p.done
	return err
}
