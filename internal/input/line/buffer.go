// Package line provides the editable, cursor-addressable line the user is
// composing at the prompt.
package line

import "unicode"

// Buffer is a sequence of runes with a cursor in [0, Len()].
//
// Every method is total: edits at a boundary (deleting before position 0,
// deleting at the end, moving past either edge) are no-ops. The zero value
// is an empty buffer ready for use.
type Buffer struct {
	runes  []rune
	cursor int
}

// Snapshot is an owned copy of a buffer's contents and cursor.
type Snapshot struct {
	Text   string
	Cursor int
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{runes: make([]rune, 0, 64)}
}

// String returns the buffer contents.
func (b *Buffer) String() string {
	return string(b.runes)
}

// Len returns the number of runes in the buffer.
func (b *Buffer) Len() int {
	return len(b.runes)
}

// Cursor returns the cursor position as a rune offset.
func (b *Buffer) Cursor() int {
	return b.cursor
}

// Insert puts r at the cursor and advances the cursor past it.
func (b *Buffer) Insert(r rune) {
	b.runes = append(b.runes, 0)
	copy(b.runes[b.cursor+1:], b.runes[b.cursor:])
	b.runes[b.cursor] = r
	b.cursor++
}

// DeleteBefore removes the rune left of the cursor (Backspace).
func (b *Buffer) DeleteBefore() bool {
	if b.cursor == 0 {
		return false
	}
	b.runes = append(b.runes[:b.cursor-1], b.runes[b.cursor:]...)
	b.cursor--
	return true
}

// DeleteAt removes the rune under the cursor (Delete).
func (b *Buffer) DeleteAt() bool {
	if b.cursor >= len(b.runes) {
		return false
	}
	b.runes = append(b.runes[:b.cursor], b.runes[b.cursor+1:]...)
	return true
}

// DeleteToStart removes everything left of the cursor.
func (b *Buffer) DeleteToStart() bool {
	if b.cursor == 0 {
		return false
	}
	b.runes = append(b.runes[:0], b.runes[b.cursor:]...)
	b.cursor = 0
	return true
}

// DeleteToEnd removes everything from the cursor to the end.
func (b *Buffer) DeleteToEnd() bool {
	if b.cursor >= len(b.runes) {
		return false
	}
	b.runes = b.runes[:b.cursor]
	return true
}

// DeleteWordBefore removes the word left of the cursor, along with any
// whitespace between it and the cursor.
func (b *Buffer) DeleteWordBefore() bool {
	if b.cursor == 0 {
		return false
	}
	start := b.cursor
	for start > 0 && unicode.IsSpace(b.runes[start-1]) {
		start--
	}
	for start > 0 && !unicode.IsSpace(b.runes[start-1]) {
		start--
	}
	b.runes = append(b.runes[:start], b.runes[b.cursor:]...)
	b.cursor = start
	return true
}

// MoveLeft moves the cursor one rune left.
func (b *Buffer) MoveLeft() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor--
	return true
}

// MoveRight moves the cursor one rune right.
func (b *Buffer) MoveRight() bool {
	if b.cursor >= len(b.runes) {
		return false
	}
	b.cursor++
	return true
}

// MoveToStart moves the cursor to position 0.
func (b *Buffer) MoveToStart() {
	b.cursor = 0
}

// MoveToEnd moves the cursor past the last rune.
func (b *Buffer) MoveToEnd() {
	b.cursor = len(b.runes)
}

// SetContents replaces the whole buffer with s and puts the cursor at the end.
func (b *Buffer) SetContents(s string) {
	b.runes = append(b.runes[:0], []rune(s)...)
	b.cursor = len(b.runes)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.runes = b.runes[:0]
	b.cursor = 0
}

// Snapshot returns an owned copy of the current state.
func (b *Buffer) Snapshot() Snapshot {
	return Snapshot{Text: b.String(), Cursor: b.cursor}
}

// Restore replaces the buffer with a snapshot. A cursor outside the restored
// text is clamped.
func (b *Buffer) Restore(s Snapshot) {
	b.runes = append(b.runes[:0], []rune(s.Text)...)
	b.cursor = min(max(s.Cursor, 0), len(b.runes))
}
