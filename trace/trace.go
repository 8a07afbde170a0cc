// Package trace records and replays raw touch samples as a stream of
// CBOR encoded frames, one frame per poll.
package trace

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/fxamacker/cbor/v2"
	"restouch.dev/touch"
)

// Frame is one raw sample. It is encoded as a three element array.
type Frame struct {
	_       struct{} `cbor:",toarray"`
	X       int
	Y       int
	Contact bool
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
}

// Encoder writes frames to a stream.
type Encoder struct {
	enc *cbor.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: encMode.NewEncoder(w)}
}

func (e *Encoder) Encode(f Frame) error {
	if err := e.enc.Encode(f); err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	return nil
}

// Decoder reads frames from a stream.
type Decoder struct {
	dec *cbor.Decoder
	r   *countingReader
}

func NewDecoder(r io.Reader) *Decoder {
	cr := &countingReader{r: r}
	return &Decoder{dec: cbor.NewDecoder(cr), r: cr}
}

// Decode returns io.EOF at the end of the stream. A stream ending inside
// a frame is reported as io.ErrUnexpectedEOF.
func (d *Decoder) Decode() (Frame, error) {
	var f Frame
	if err := d.dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// The decoder only counts complete frames.
			if d.r.n == int64(d.dec.NumBytesRead()) {
				return Frame{}, io.EOF
			}
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, fmt.Errorf("trace: %w", err)
	}
	return f, nil
}

// countingReader counts the bytes handed to the decoder.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Recorder is a Source that records every sample read through it.
type Recorder struct {
	src touch.Source
	enc *Encoder
	err error
}

func NewRecorder(src touch.Source, w io.Writer) *Recorder {
	return &Recorder{src: src, enc: NewEncoder(w)}
}

// ReadRaw reads from the underlying source and records the result. Read
// errors are recorded as no contact and returned unchanged. After the
// first write error recording stops; see Err.
func (r *Recorder) ReadRaw() (image.Point, bool, error) {
	p, contact, err := r.src.ReadRaw()
	if r.err == nil {
		f := Frame{Contact: contact && err == nil}
		if f.Contact {
			f.X, f.Y = p.X, p.Y
		}
		r.err = r.enc.Encode(f)
	}
	return p, contact, err
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	return r.err
}

// Player is a Source replaying a recorded trace. Past the end of the
// trace it reports no contact.
type Player struct {
	dec  *Decoder
	done bool
}

func NewPlayer(r io.Reader) *Player {
	return &Player{dec: NewDecoder(r)}
}

// ReadRaw returns the next recorded sample. A corrupt trace is reported
// once and ends the replay.
func (p *Player) ReadRaw() (image.Point, bool, error) {
	if p.done {
		return image.Point{}, false, nil
	}
	f, err := p.dec.Decode()
	if err != nil {
		p.done = true
		if err == io.EOF {
			return image.Point{}, false, nil
		}
		return image.Point{}, false, err
	}
	return image.Pt(f.X, f.Y), f.Contact, nil
}

// Done reports whether the trace is exhausted.
func (p *Player) Done() bool {
	return p.done
}
