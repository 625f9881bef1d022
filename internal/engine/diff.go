package engine

import (
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/stream"
	"github.com/roach88/homesync/internal/syncerr"
)

// liveSet tracks the keys of one type seen during a pass, in first-seen
// order.
type liveSet struct {
	seen map[record.Key]struct{}
	keys []record.Key
}

func newLiveSet() *liveSet {
	return &liveSet{seen: make(map[record.Key]struct{})}
}

// add records k and reports whether it was new.
func (s *liveSet) add(k record.Key) bool {
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

func (s *liveSet) has(k record.Key) bool {
	_, ok := s.seen[k]
	return ok
}

// exportModified runs the timestamp diff for one row-backed type. Every row
// key goes to the returned key list; rows modified after the prior journal
// are packed and written.
func exportModified[R any](
	p *pass,
	tr *TypeReport,
	rows []R,
	keyOf func(R) record.Key,
	modifiedOf func(R) int64,
	pack func(R) []byte,
) ([]record.Key, error) {
	live := newLiveSet()
	var keys []record.Key

	for _, row := range rows {
		key := keyOf(row)
		if !live.add(key) {
			continue
		}
		keys = append(keys, key)

		if modifiedOf(row) <= p.prior.Timestamp {
			continue
		}
		if err := p.write(tr, key, pack(row)); err != nil {
			return nil, err
		}
	}

	if err := p.removeDeleted(tr, live); err != nil {
		return nil, err
	}
	return keys, nil
}

// write emits one record.
func (p *pass) write(tr *TypeReport, key record.Key, data []byte) error {
	k := key.Encode()
	if err := p.out.WriteEntity(p.ctx, stream.Value(k, data)); err != nil {
		return syncerr.StreamIO(k, "write "+tr.Type.String(), err)
	}
	tr.Written++
	tr.Bytes += int64(len(data))
	p.logger.Debug("wrote record", "type", tr.Type.String(), "key", key.DisplayName(), "size", len(data))
	return nil
}

// removeDeleted emits a tombstone for every prior key of the type that is
// not in live.
func (p *pass) removeDeleted(tr *TypeReport, live *liveSet) error {
	done := make(map[record.Key]struct{})
	for _, key := range p.prior.Keys {
		if key.Type != tr.Type || live.has(key) {
			continue
		}
		if _, ok := done[key]; ok {
			continue
		}
		done[key] = struct{}{}

		k := key.Encode()
		if err := p.out.WriteEntity(p.ctx, stream.Tombstone(k)); err != nil {
			return syncerr.StreamIO(k, "delete "+tr.Type.String(), err)
		}
		tr.Tombstones++
		p.logger.Debug("deleted record", "type", tr.Type.String(), "key", key.DisplayName())
	}
	return nil
}
