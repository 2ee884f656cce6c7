// Package key decodes raw terminal input into key events.
//
// A [Decoder] consumes the bytes a terminal in raw mode produces and emits
// [Event] values: printable characters, arrow keys, control combinations,
// Enter, Backspace and Escape (plus Home, End and Delete).
//
// # Escape Sequences
//
// Arrow keys arrive as ESC '[' <code> (or ESC 'O' <code> in application
// cursor mode). Because a lone Escape press and the start of such a sequence
// begin with the same byte, the decoder buffers up to a few bytes and waits.
// The caller arms a short timer whenever [Decoder.Pending] reports true and
// calls [Decoder.Expire] when it fires, which turns the buffered ESC into an
// Escape event.
//
// # Malformed Input
//
// Bytes that do not form a recognised sequence are never dropped. The first
// byte is emitted as a literal key and the remaining bytes are decoded again
// from the ground state, so the shell stays usable over degraded links.
package key
