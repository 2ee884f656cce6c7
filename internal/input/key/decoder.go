package key

import (
	"unicode/utf8"

	"github.com/Iron-Ham/pyc/internal/errors"
)

const (
	esc = 0x1b
	del = 0x7f
	bs  = 0x08

	// maxSequenceLen bounds how many bytes of an escape sequence are
	// buffered before the decoder gives up and falls back to literals.
	maxSequenceLen = 8
)

type seqClass int

const (
	seqPartial seqClass = iota
	seqComplete
	seqInvalid
)

// Decoder turns a raw terminal byte stream into key events.
//
// Bytes are fed in arbitrary chunks; partial escape sequences and partial
// UTF-8 runes are buffered across calls. A Decoder is not safe for concurrent
// use.
type Decoder struct {
	seq  []byte // pending escape sequence, seq[0] == ESC
	utf  []byte // pending UTF-8 rune bytes
	need int    // continuation bytes still expected for utf

	onMalformed func(error)
}

// NewDecoder creates a decoder with empty state.
func NewDecoder() *Decoder {
	return &Decoder{
		seq: make([]byte, 0, maxSequenceLen),
		utf: make([]byte, 0, utf8.UTFMax),
	}
}

// OnMalformed registers a callback invoked with an *errors.InputError each
// time the decoder falls back to literal decoding.
func (d *Decoder) OnMalformed(fn func(error)) {
	d.onMalformed = fn
}

// Feed decodes p and returns the events completed by it, in order.
func (d *Decoder) Feed(p []byte) []Event {
	var out []Event
	for _, b := range p {
		out = d.feedByte(b, out)
	}
	return out
}

// Pending reports whether the decoder holds an incomplete sequence that
// needs more bytes (or an expiry) to resolve.
func (d *Decoder) Pending() bool {
	return len(d.seq) > 0 || len(d.utf) > 0
}

// Expire resolves any incomplete sequence as if no continuation will arrive.
// A lone ESC becomes an Escape event; a partial sequence becomes Escape
// followed by its remaining bytes decoded afresh.
func (d *Decoder) Expire() []Event {
	var out []Event
	if len(d.seq) > 0 {
		out = d.fallbackEscape(out)
	}
	if len(d.utf) > 0 {
		out = d.fallbackUTF8(out)
	}
	return out
}

// Reset drops any buffered partial input.
func (d *Decoder) Reset() {
	d.seq = d.seq[:0]
	d.utf = d.utf[:0]
	d.need = 0
}

func (d *Decoder) feedByte(b byte, out []Event) []Event {
	if len(d.seq) > 0 {
		return d.feedEscape(b, out)
	}
	if d.need > 0 {
		return d.feedUTF8(b, out)
	}

	switch {
	case b == esc:
		d.seq = append(d.seq[:0], b)
		return out
	case b == '\r' || b == '\n':
		return append(out, Special(KindEnter))
	case b == del || b == bs:
		return append(out, Special(KindBackspace))
	case b < 0x20:
		return append(out, Ctrl(rune(b+0x40)))
	case b < utf8.RuneSelf:
		return append(out, Char(rune(b)))
	}

	n := utf8Len(b)
	if n == 0 {
		d.malformed([]byte{b})
		return append(out, Char(rune(b)))
	}
	d.utf = append(d.utf[:0], b)
	d.need = n - 1
	return out
}

func (d *Decoder) feedUTF8(b byte, out []Event) []Event {
	if b&0xC0 != 0x80 {
		// Not a continuation byte: flush what we have, then start over with b.
		out = d.fallbackUTF8(out)
		return d.feedByte(b, out)
	}

	d.utf = append(d.utf, b)
	d.need--
	if d.need > 0 {
		return out
	}

	r, size := utf8.DecodeRune(d.utf)
	if r == utf8.RuneError && size <= 1 {
		return d.fallbackUTF8(out)
	}
	d.utf = d.utf[:0]
	return append(out, Char(r))
}

func (d *Decoder) feedEscape(b byte, out []Event) []Event {
	d.seq = append(d.seq, b)

	ev, class := classify(d.seq)
	switch class {
	case seqComplete:
		d.seq = d.seq[:0]
		return append(out, ev)
	case seqPartial:
		if len(d.seq) < maxSequenceLen {
			return out
		}
	}
	return d.fallbackEscape(out)
}

// fallbackEscape emits the buffered ESC as a literal Escape and re-decodes
// the bytes that followed it.
func (d *Decoder) fallbackEscape(out []Event) []Event {
	rest := append([]byte(nil), d.seq[1:]...)
	if len(rest) > 0 {
		d.malformed(d.seq)
	}
	d.seq = d.seq[:0]
	out = append(out, Special(KindEscape))
	for _, b := range rest {
		out = d.feedByte(b, out)
	}
	return out
}

// fallbackUTF8 emits the first buffered byte as a literal character and
// re-decodes the rest.
func (d *Decoder) fallbackUTF8(out []Event) []Event {
	pending := append([]byte(nil), d.utf...)
	d.malformed(pending)
	d.utf = d.utf[:0]
	d.need = 0
	out = append(out, Char(rune(pending[0])))
	for _, b := range pending[1:] {
		out = d.feedByte(b, out)
	}
	return out
}

func (d *Decoder) malformed(seq []byte) {
	if d.onMalformed != nil {
		d.onMalformed(errors.NewInputError(seq))
	}
}

// classify inspects a buffered escape sequence (seq[0] == ESC, len >= 2).
func classify(seq []byte) (Event, seqClass) {
	switch seq[1] {
	case '[':
		return classifyCSI(seq)
	case 'O':
		if len(seq) == 2 {
			return Event{}, seqPartial
		}
		if len(seq) == 3 {
			if kind, ok := finalKinds[seq[2]]; ok {
				return Special(kind), seqComplete
			}
		}
		return Event{}, seqInvalid
	default:
		return Event{}, seqInvalid
	}
}

var finalKinds = map[byte]Kind{
	'A': KindUp,
	'B': KindDown,
	'C': KindRight,
	'D': KindLeft,
	'H': KindHome,
	'F': KindEnd,
}

var tildeKinds = map[string]Kind{
	"1": KindHome,
	"7": KindHome,
	"4": KindEnd,
	"8": KindEnd,
	"3": KindDelete,
}

func classifyCSI(seq []byte) (Event, seqClass) {
	if len(seq) == 2 {
		return Event{}, seqPartial
	}

	final := seq[len(seq)-1]
	if isParamByte(final) {
		return Event{}, seqPartial
	}

	params := string(seq[2 : len(seq)-1])
	for i := 0; i < len(params); i++ {
		if !isParamByte(params[i]) {
			return Event{}, seqInvalid
		}
	}

	if final == '~' {
		if kind, ok := tildeKinds[params]; ok {
			return Special(kind), seqComplete
		}
		return Event{}, seqInvalid
	}

	kind, ok := finalKinds[final]
	if !ok {
		return Event{}, seqInvalid
	}
	// Plain "ESC [ C" or a modified form such as "ESC [ 1 ; 5 C"; the
	// modifier is dropped.
	if params == "" || (len(params) >= 3 && params[:2] == "1;") {
		return Special(kind), seqComplete
	}
	return Event{}, seqInvalid
}

func isParamByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == ';'
}

// utf8Len returns the encoded length announced by a UTF-8 lead byte, or 0 if
// b cannot start a multi-byte rune.
func utf8Len(b byte) int {
	switch {
	case b >= 0xC2 && b <= 0xDF:
		return 2
	case b >= 0xE0 && b <= 0xEF:
		return 3
	case b >= 0xF0 && b <= 0xF4:
		return 4
	default:
		return 0
	}
}
