package record

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/roach88/homesync/internal/syncerr"
	"github.com/roach88/homesync/internal/wire"
)

const (
	journalFieldTimestamp protowire.Number = 1
	journalFieldRows      protowire.Number = 2
	journalFieldBytes     protowire.Number = 3
	journalFieldKey       protowire.Number = 4
)

var journalSchema = wire.Schema{
	journalFieldTimestamp: wire.Varint,
	journalFieldRows:      wire.Varint,
	journalFieldBytes:     wire.Varint,
	journalFieldKey:       wire.RepeatedBytes,
}

// Journal is the checkpoint written at the end of every backup pass and
// restore session.
type Journal struct {
	// Timestamp is the time of the last successful pass in milliseconds.
	// Rows modified after it are exported by the next pass.
	Timestamp int64
	Rows      int64
	Bytes     int64
	Keys      []Key
}

// SavedKeys returns the journal keys of type t as a set.
func (j *Journal) SavedKeys(t KeyType) map[Key]struct{} {
	saved := make(map[Key]struct{})
	if j == nil {
		return saved
	}
	for _, k := range j.Keys {
		if k.Type == t {
			saved[k] = struct{}{}
		}
	}
	return saved
}

// PackJournal serializes j in an envelope.
func (c *Codec) PackJournal(j *Journal) []byte {
	var b []byte
	b = wire.AppendInt64(b, journalFieldTimestamp, j.Timestamp)
	b = wire.AppendInt64(b, journalFieldRows, j.Rows)
	b = wire.AppendInt64(b, journalFieldBytes, j.Bytes)
	for _, k := range j.Keys {
		b = wire.AppendBytes(b, journalFieldKey, k.appendWire(nil))
	}
	return c.env.Wrap(b)
}

// UnpackJournal verifies and decodes a journal. Callers treat any error as
// an empty journal.
func (c *Codec) UnpackJournal(data []byte) (*Journal, error) {
	f, err := c.open(data, journalSchema, "journal")
	if err != nil {
		return nil, err
	}

	j := &Journal{
		Timestamp: f.Int64(journalFieldTimestamp),
		Rows:      f.Int64(journalFieldRows),
		Bytes:     f.Int64(journalFieldBytes),
	}
	for _, raw := range f.Repeated(journalFieldKey) {
		k, err := parseKeyWire(raw)
		if err != nil {
			return nil, syncerr.Decode("malformed journal key", err)
		}
		j.Keys = append(j.Keys, k)
	}
	return j, nil
}
