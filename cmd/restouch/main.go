// command restouch runs the touch sketch demo on a Waveshare resistive
// touch display: presses draw white crosses, moves draw a green trail and
// releases draw red crosses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"restouch.dev/driver/ft6x36"
	"restouch.dev/driver/serialtouch"
	"restouch.dev/driver/st7789"
	"restouch.dev/driver/xpt2046"
	"restouch.dev/sketch"
	"restouch.dev/touch"
	"restouch.dev/trace"
)

var (
	width     = flag.Int("width", 0, "screen width in the chosen orientation (default 240 portrait, 320 landscape)")
	height    = flag.Int("height", 0, "screen height in the chosen orientation (default 320 portrait, 240 landscape)")
	landscape = flag.Bool("landscape", false, "landscape orientation")
	xmin      = flag.Int("xmin", touch.DefaultCalibration.XMin, "raw x at the left edge")
	xmax      = flag.Int("xmax", touch.DefaultCalibration.XMax, "raw x at the right edge")
	ymin      = flag.Int("ymin", touch.DefaultCalibration.YMin, "raw y at the top edge")
	ymax      = flag.Int("ymax", touch.DefaultCalibration.YMax, "raw y at the bottom edge")
	interval  = flag.Duration("interval", touch.DefaultInterval, "poll interval")
	threshold = flag.Int("threshold", touch.DefaultThreshold, "debounce count")
	touchPort = flag.String("touch", "SPI0.1", "touch controller SPI port")
	lcdPort   = flag.String("lcd", "SPI0.0", "display SPI port, empty to run without a display")
	dcPin     = flag.String("dc", "GPIO25", "display data/command pin")
	rstPin    = flag.String("rst", "GPIO27", "display reset pin")
	blPin     = flag.String("bl", "GPIO18", "display backlight pin")
	ctpBus    = flag.String("ft6x36", "", "read a capacitive FT6x36 panel on the named I2C bus instead of SPI")
	serialDev = flag.String("serial", "", "read samples from a serial device instead of SPI ('auto' for the default device)")
	replay    = flag.String("replay", "", "replay samples from a trace file instead of hardware")
	record    = flag.String("record", "", "record raw samples to a trace file")
	verbose   = flag.Bool("v", false, "log every touch event")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "restouch: %v\n", err)
		os.Exit(2)
	}
}

func run() error {
	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), stopSignals...)
	defer stop()

	orientation := touch.Portrait
	rotation := st7789.Rotation0
	if *landscape {
		orientation = touch.Landscape
		rotation = st7789.Rotation90
	}
	size, err := screenSize(*width, *height, *landscape)
	if err != nil {
		return err
	}

	// The display and the touch controller share the SPI bus.
	bus := new(sync.Mutex)
	src, closer, err := openSource(bus)
	if err != nil {
		return err
	}
	defer closer.Close()
	var rec *trace.Recorder
	if *record != "" {
		f, err := os.Create(*record)
		if err != nil {
			return err
		}
		defer f.Close()
		rec = trace.NewRecorder(src, f)
		src = rec
	}

	panel, err := touch.New(touch.Config{
		Source: src,
		Calibration: touch.Calibration{
			XMin: *xmin, XMax: *xmax,
			YMin: *ymin, YMax: *ymax,
		},
		Size:        size,
		Orientation: orientation,
		Interval:    *interval,
		Threshold:   *threshold,
		Logger:      &log,
	})
	if err != nil {
		return err
	}

	// The touch loop draws and the tick loop flushes.
	var mu sync.Mutex
	fb := st7789.NewFramebuffer(image.Rectangle{Max: size})
	sk := sketch.New(fb)
	locked := func(f touch.HandlerFunc) touch.HandlerFunc {
		return func(x, y int) {
			mu.Lock()
			defer mu.Unlock()
			f(x, y)
		}
	}
	panel.OnTouchDown(locked(sk.Down))
	panel.OnTouchMove(locked(sk.Move))
	panel.OnTouchUp(locked(sk.Up))

	if *lcdPort != "" {
		disp, err := st7789.Open(st7789.Config{
			Port:     *lcdPort,
			DC:       *dcPin,
			RST:      *rstPin,
			BL:       *blPin,
			Size:     size,
			Rotation: rotation,
			Bus:      bus,
		})
		if err != nil {
			return err
		}
		defer disp.Close()
		failed := false
		panel.OnTick(func() {
			mu.Lock()
			err := disp.Flush(fb)
			mu.Unlock()
			if err != nil && !failed {
				log.Error().Err(err).Msg("restouch: display flush failed")
			}
			failed = err != nil
		})
	}

	log.Info().
		Stringer("orientation", orientation).
		Int("width", size.X).
		Int("height", size.Y).
		Dur("interval", *interval).
		Msg("restouch: running")
	if err := panel.Run(ctx); err != nil {
		return err
	}
	log.Info().Uint64("read_errors", panel.SourceErrors()).Msg("restouch: stopped")
	if rec != nil {
		return rec.Err()
	}
	return nil
}

// screenSize returns the screen size in the chosen orientation. A
// landscape screen is wider than it is tall and a portrait screen is not.
func screenSize(w, h int, landscape bool) (image.Point, error) {
	size := image.Pt(w, h)
	if size == (image.Point{}) {
		size = image.Pt(240, 320)
		if landscape {
			size = image.Pt(320, 240)
		}
	}
	switch {
	case landscape && size.X < size.Y:
		return image.Point{}, fmt.Errorf("-width %d -height %d is a portrait size; give the landscape size", size.X, size.Y)
	case !landscape && size.X > size.Y:
		return image.Point{}, fmt.Errorf("-width %d -height %d is a landscape size; add -landscape or give the portrait size", size.X, size.Y)
	}
	return size, nil
}

// openSource opens the configured raw sample source.
func openSource(bus sync.Locker) (touch.Source, io.Closer, error) {
	n := 0
	for _, f := range []string{*replay, *serialDev, *ctpBus} {
		if f != "" {
			n++
		}
	}
	switch {
	case n > 1:
		return nil, nil, errors.New("-replay, -serial and -ft6x36 are mutually exclusive")
	case *replay != "":
		f, err := os.Open(*replay)
		if err != nil {
			return nil, nil, err
		}
		return trace.NewPlayer(f), f, nil
	case *serialDev != "":
		dev := *serialDev
		if dev == "auto" {
			dev = ""
		}
		p, err := serialtouch.Open(dev)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case *ctpBus != "":
		d, err := ft6x36.Open(*ctpBus, nil)
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	default:
		d, err := xpt2046.Open(*touchPort, bus, xpt2046.Config{})
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	}
}
