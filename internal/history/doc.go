// Package history keeps the list of submitted command lines.
//
// A [Store] holds entries in memory in submission order, each with a
// sequential 1-based index used by the !{index} recall syntax. Entries are
// mirrored to a durable [Log], normally a [FileLog] with one "index<TAB>text"
// line per entry. On startup the log is replayed with the stored indices, so
// numbering continues where the previous session stopped, even after Clear
// or compaction.
//
// # Persistence
//
// Append writes to the log before the entry counts as committed. A failed
// write never loses the entry: it stays in memory, is marked non-durable and
// is retried ahead of the next write. A record that reached the log but
// failed to sync is only re-synced, never written twice. After three
// consecutive failures the store gives up on the log for the rest of the
// session.
//
// # Navigation
//
// Previous and Next move a browsing cursor over the entries, clamped at both
// ends. ResetBrowsing returns the cursor to "not browsing" so the next
// Previous starts from the newest entry.
package history
