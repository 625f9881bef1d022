// Package stream defines the key/value entities a backup pass emits and a
// restore session consumes.
package stream

import (
	"context"
	"sort"
)

// TombstoneSize is the declared size of a deletion marker.
const TombstoneSize = -1

// Entity is one stream entry. Key is an encoded record key; Size is the
// declared payload length, or TombstoneSize for a deletion with no body.
type Entity struct {
	Key  string
	Size int
	Data []byte
}

// Tombstone returns the deletion marker for key.
func Tombstone(key string) Entity {
	return Entity{Key: key, Size: TombstoneSize}
}

// Value returns an entity carrying data.
func Value(key string, data []byte) Entity {
	return Entity{Key: key, Size: len(data), Data: data}
}

// IsTombstone reports whether e marks a deletion.
func (e Entity) IsTombstone() bool {
	return e.Size == TombstoneSize
}

// Writer receives the entities of a backup pass.
type Writer interface {
	WriteEntity(ctx context.Context, e Entity) error
}

// Buffer is an in-memory Writer. It keeps the full write log and the
// resulting key/value snapshot.
type Buffer struct {
	log      []Entity
	snapshot map[string][]byte
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{snapshot: make(map[string][]byte)}
}

// WriteEntity implements Writer.
func (b *Buffer) WriteEntity(_ context.Context, e Entity) error {
	b.log = append(b.log, e)
	if e.IsTombstone() {
		delete(b.snapshot, e.Key)
		return nil
	}
	b.snapshot[e.Key] = append([]byte{}, e.Data...)
	return nil
}

// Log returns every entity written, in order.
func (b *Buffer) Log() []Entity {
	return b.log
}

// Reset clears the write log but keeps the snapshot.
func (b *Buffer) Reset() {
	b.log = nil
}

// Snapshot returns the live key/value set after applying all writes.
func (b *Buffer) Snapshot() map[string][]byte {
	return b.snapshot
}

// Entities returns the snapshot as value entities sorted by key.
func (b *Buffer) Entities() []Entity {
	out := make([]Entity, 0, len(b.snapshot))
	for k, v := range b.snapshot {
		out = append(out, Value(k, v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
