package key

import (
	"fmt"
	"unicode"
)

// Kind identifies the logical key an Event represents.
type Kind int

const (
	// KindChar is a printable character; Event.Rune holds the codepoint.
	KindChar Kind = iota
	KindLeft
	KindRight
	KindUp
	KindDown
	// KindCtrl is a control combination; Event.Rune holds the upper-case letter.
	KindCtrl
	KindEnter
	KindBackspace
	KindEscape
	KindHome
	KindEnd
	KindDelete
)

var kindNames = map[Kind]string{
	KindChar:      "Char",
	KindLeft:      "Left",
	KindRight:     "Right",
	KindUp:        "Up",
	KindDown:      "Down",
	KindCtrl:      "Ctrl",
	KindEnter:     "Enter",
	KindBackspace: "Backspace",
	KindEscape:    "Escape",
	KindHome:      "Home",
	KindEnd:       "End",
	KindDelete:    "Delete",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is a single decoded key press. Events are values and never change
// after the decoder emits them.
type Event struct {
	Kind Kind
	Rune rune
}

// Char creates a character event.
func Char(r rune) Event {
	return Event{Kind: KindChar, Rune: r}
}

// Ctrl creates a control-combination event. The letter is normalized to
// upper case so Ctrl('r') and Ctrl('R') compare equal.
func Ctrl(letter rune) Event {
	return Event{Kind: KindCtrl, Rune: unicode.ToUpper(letter)}
}

// Special creates an event for a key without an associated rune.
func Special(kind Kind) Event {
	return Event{Kind: kind}
}

// IsCtrl reports whether e is the control combination for letter.
func (e Event) IsCtrl(letter rune) bool {
	return e.Kind == KindCtrl && e.Rune == unicode.ToUpper(letter)
}

// String returns a short human-readable form: "a", "C-r", "Left".
func (e Event) String() string {
	switch e.Kind {
	case KindChar:
		if e.Rune == ' ' {
			return "Space"
		}
		return string(e.Rune)
	case KindCtrl:
		return "C-" + string(unicode.ToLower(e.Rune))
	default:
		return e.Kind.String()
	}
}
