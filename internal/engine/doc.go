// Package engine runs incremental launcher backup passes and restore
// sessions.
//
// A backup pass reads the previous journal, exports items and screens that
// changed since its timestamp, exports new icons and widgets up to a
// per-pass quota, and emits tombstones for keys that disappeared. It ends
// by producing a new journal, which the host persists and hands back to
// the next pass. Quota overflow or an unavailable resource provider makes
// the pass ask its Scheduler for another one.
//
// A restore session accepts entities in any order, verifies and decodes
// each, and hands the records to an Applier. Finalize yields the journal
// that makes the next backup pass export everything.
//
// Everything runs on the caller's goroutine. Failures skip a record or
// abort one key type; no entry point panics or fails the whole pass.
package engine
