package engine

import (
	"time"

	"github.com/roach88/homesync/internal/record"
)

// TypeReport summarizes one key type's export within a pass.
type TypeReport struct {
	Type record.KeyType

	// Written counts records emitted; Tombstones counts deletions emitted.
	Written    int
	Tombstones int
	Bytes      int64

	// Skipped counts candidates dropped with a warning: unparsable
	// intents, uninstalled providers, encoding failures.
	Skipped int

	// Deferred counts resource candidates left for a later pass by quota.
	Deferred int

	// Postponed is set when the resource provider was unavailable and the
	// whole type was left for a later pass.
	Postponed bool

	// Err is the DATA_SOURCE or STREAM_IO failure that aborted this type.
	Err error
}

// Aborted reports whether this type's export stopped early.
func (r *TypeReport) Aborted() bool {
	return r.Err != nil
}

// PassReport is the outcome of one backup pass.
type PassReport struct {
	SessionID string

	// Journal is the new checkpoint and State its serialized form, to be
	// persisted by the host before the next pass.
	Journal *record.Journal
	State   []byte

	// Types holds one report per key type in export order.
	Types []*TypeReport

	// Deferred lists the resource keys postponed by quota.
	Deferred []record.Key

	RequestedAnotherPass bool
	Duration             time.Duration
}

// Type returns the report for t, or nil if t was not exported.
func (r *PassReport) Type(t record.KeyType) *TypeReport {
	for _, tr := range r.Types {
		if tr.Type == t {
			return tr
		}
	}
	return nil
}

// RestoreReport is the outcome of a finalized restore session.
type RestoreReport struct {
	SessionID string

	// Journal is the post-restore checkpoint: timestamp 0 so the next
	// backup pass exports everything.
	Journal *record.Journal
	State   []byte

	Applied []record.Key

	AppliedByType map[record.KeyType]int
	SkippedByType map[record.KeyType]int

	// InvalidKeys counts entities whose stream key could not be decoded.
	InvalidKeys int
}

// Skipped returns the total number of entities not applied.
func (r *RestoreReport) Skipped() int {
	n := r.InvalidKeys
	for _, c := range r.SkippedByType {
		n += c
	}
	return n
}
