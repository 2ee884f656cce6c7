package terminal

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/Iron-Ham/pyc/internal/input/key"
)

// DefaultEscapeTimeout is how long a partial escape sequence may wait for
// its next byte before it is resolved as a lone Escape key.
const DefaultEscapeTimeout = 50 * time.Millisecond

const readBufSize = 256

// readResult holds the outcome of a single Read call.
type readResult struct {
	data []byte
	err  error
}

// KeyReader turns a byte stream into key events.
//
// A single goroutine performs the blocking reads, and only when ReadKey asks
// for more input. Between lines no read is outstanding, so a child process
// started by the shell gets the terminal's input to itself.
type KeyReader struct {
	r       io.Reader
	dec     *key.Decoder
	timeout time.Duration

	queue    []key.Event
	want     chan struct{}
	results  chan readResult
	inflight bool
	err      error

	start sync.Once
	done  chan struct{}
	stop  sync.Once
}

// ReaderOption configures a KeyReader.
type ReaderOption func(*KeyReader)

// WithEscapeTimeout overrides DefaultEscapeTimeout.
func WithEscapeTimeout(d time.Duration) ReaderOption {
	return func(kr *KeyReader) {
		if d > 0 {
			kr.timeout = d
		}
	}
}

// WithMalformedHandler receives an error for each byte sequence the decoder
// had to fall back on.
func WithMalformedHandler(fn func(error)) ReaderOption {
	return func(kr *KeyReader) {
		kr.dec.OnMalformed(fn)
	}
}

// NewKeyReader creates a reader over r.
func NewKeyReader(r io.Reader, opts ...ReaderOption) *KeyReader {
	kr := &KeyReader{
		r:       r,
		dec:     key.NewDecoder(),
		timeout: DefaultEscapeTimeout,
		want:    make(chan struct{}, 1),
		results: make(chan readResult, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(kr)
	}
	return kr
}

// ReadKey returns the next key event. It blocks until one is available, the
// escape timeout resolves a partial sequence, ctx is done, or the input
// fails. After the input returns an error (io.EOF included) every later call
// returns that error once buffered events are drained.
func (kr *KeyReader) ReadKey(ctx context.Context) (key.Event, error) {
	kr.start.Do(func() { go kr.pump() })

	for {
		if len(kr.queue) > 0 {
			ev := kr.queue[0]
			kr.queue = kr.queue[1:]
			return ev, nil
		}
		if kr.err != nil {
			return key.Event{}, kr.err
		}

		if !kr.inflight {
			kr.want <- struct{}{}
			kr.inflight = true
		}

		var expire <-chan time.Time
		var timer *time.Timer
		if kr.dec.Pending() {
			timer = time.NewTimer(kr.timeout)
			expire = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return key.Event{}, ctx.Err()
		case <-expire:
			kr.queue = append(kr.queue, kr.dec.Expire()...)
		case res := <-kr.results:
			stopTimer(timer)
			kr.inflight = false
			if len(res.data) > 0 {
				kr.queue = append(kr.queue, kr.dec.Feed(res.data)...)
			}
			if res.err != nil {
				kr.queue = append(kr.queue, kr.dec.Expire()...)
				kr.err = res.err
			}
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// Reset drops buffered events and any partial sequence, discarding keys
// typed ahead of the current line.
func (kr *KeyReader) Reset() {
	kr.queue = kr.queue[:0]
	kr.dec.Reset()
}

// Close stops the read goroutine once its current read returns. It does not
// close the underlying reader.
func (kr *KeyReader) Close() {
	kr.stop.Do(func() { close(kr.done) })
}

// pump performs one Read per request on want.
func (kr *KeyReader) pump() {
	buf := make([]byte, readBufSize)
	for {
		select {
		case <-kr.done:
			return
		case <-kr.want:
		}

		n, err := kr.r.Read(buf)
		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case kr.results <- readResult{data: data, err: err}:
		case <-kr.done:
			return
		}
		if err != nil {
			return
		}
	}
}
