package touch

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the polling period of both loops.
const DefaultInterval = 10 * time.Millisecond

type Config struct {
	Source Source
	// Calibration defaults to DefaultCalibration when zero.
	Calibration Calibration
	// Size is the screen size in the chosen orientation. Zero means
	// 240x320 in portrait and 320x240 in landscape.
	Size        image.Point
	Orientation Orientation
	Interval    time.Duration
	Threshold   int
	Logger      *zerolog.Logger
}

// Panel owns the debouncer, the handlers and the two polling loops.
type Panel struct {
	src      Source
	norm     Normalizer
	deb      *Debouncer
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	handlers Handlers
	tick     func()

	// failing is only accessed by the touch loop.
	failing   bool
	srcErrors atomic.Uint64
}

func New(cfg Config) (*Panel, error) {
	if cfg.Source == nil {
		return nil, errors.New("touch: no source")
	}
	if cfg.Calibration == (Calibration{}) {
		cfg.Calibration = DefaultCalibration
	}
	if err := cfg.Calibration.Validate(); err != nil {
		return nil, err
	}
	if cfg.Size == (image.Point{}) {
		cfg.Size = image.Pt(240, 320)
		if cfg.Orientation == Landscape {
			cfg.Size = image.Pt(320, 240)
		}
	}
	if cfg.Size.X <= 0 || cfg.Size.Y <= 0 {
		return nil, errors.New("touch: invalid screen size")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Panel{
		src: cfg.Source,
		norm: Normalizer{
			Calibration: cfg.Calibration,
			Size:        cfg.Size,
			Orientation: cfg.Orientation,
		},
		deb:      NewDebouncer(cfg.Threshold),
		interval: cfg.Interval,
		log:      log,
	}, nil
}

// OnTouchDown sets the handler for debounced presses. A nil handler
// removes the previous one. The same holds for the other On methods.
func (p *Panel) OnTouchDown(h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers.Down = h
}

func (p *Panel) OnTouchMove(h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers.Move = h
}

func (p *Panel) OnTouchUp(h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers.Up = h
}

// OnTick sets the handler run once per interval by the tick loop.
func (p *Panel) OnTick(h func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tick = h
}

// State returns the debouncer state. It must not be called concurrently
// with Run.
func (p *Panel) State() State {
	return p.deb.State()
}

// SourceErrors returns the number of failed raw reads so far.
func (p *Panel) SourceErrors() uint64 {
	return p.srcErrors.Load()
}

// Poll runs one touch cycle: read, normalize, debounce and dispatch. A
// failed read counts as no contact. Poll must not be called while Run is
// active.
func (p *Panel) Poll() Event {
	raw, contact, err := p.src.ReadRaw()
	if err != nil {
		p.srcErrors.Add(1)
		if !p.failing {
			p.failing = true
			p.log.Warn().Err(err).Msg("touch: read failed")
		}
		contact = false
	} else if p.failing {
		p.failing = false
		p.log.Info().Msg("touch: read recovered")
	}
	var pos image.Point
	if contact {
		pos = p.norm.Normalize(raw)
	}
	prev := p.deb.State()
	e := p.deb.Step(pos, contact)
	if s := p.deb.State(); s != prev {
		p.log.Debug().Stringer("from", prev).Stringer("to", s).Msg("touch: state")
	}
	if e.Kind != None {
		p.log.Debug().Stringer("event", e.Kind).Int("x", e.Pos.X).Int("y", e.Pos.Y).Msg("touch: event")
		p.mu.Lock()
		h := p.handlers
		p.mu.Unlock()
		h.Dispatch(e)
	}
	return e
}

// Run polls the source and runs the tick handler, each in its own
// goroutine, until ctx is done. Both loops check ctx at every interval
// boundary. The tick loop runs without a handler and picks up one set
// later. Run returns nil on cancellation.
func (p *Panel) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.every(ctx, func() { p.Poll() })
	})
	g.Go(func() error {
		return p.every(ctx, func() {
			p.mu.Lock()
			tick := p.tick
			p.mu.Unlock()
			if tick != nil {
				tick()
			}
		})
	})
	return g.Wait()
}

// Start runs the panel for the lifetime of the process. It panics if
// Run fails.
func (p *Panel) Start() {
	if err := p.Run(context.Background()); err != nil {
		panic(err)
	}
}

func (p *Panel) every(ctx context.Context, f func()) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		f()
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
