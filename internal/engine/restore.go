package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/homesync/internal/bitmap"
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/stream"
	"github.com/roach88/homesync/internal/syncerr"
)

// RestoreSession applies backup entities one at a time, in any order.
type RestoreSession struct {
	e       *Engine
	applier Applier
	id      string
	logger  *slog.Logger

	applied []record.Key
	byType  map[record.KeyType]int
	skipped map[record.KeyType]int
	invalid int
}

// NewRestore starts a restore session that hands decoded records to
// applier.
func (e *Engine) NewRestore(applier Applier) *RestoreSession {
	s := &RestoreSession{
		e:       e,
		applier: applier,
		id:      e.sessions.Generate(),
	}
	s.logger = e.logger.With("session", s.id)
	s.reset()
	return s
}

func (s *RestoreSession) reset() {
	s.applied = nil
	s.byType = make(map[record.KeyType]int)
	s.skipped = make(map[record.KeyType]int)
	s.invalid = 0
}

// ID returns the session identifier.
func (s *RestoreSession) ID() string {
	return s.id
}

// RestoreEntity decodes and applies one entity. A returned error describes
// why the entity was skipped; it never ends the session.
func (s *RestoreSession) RestoreEntity(ctx context.Context, ent stream.Entity) error {
	key, err := record.DecodeKey(ent.Key)
	if err != nil {
		s.invalid++
		s.logger.Warn("ignoring unparsable backup key", "key", ent.Key, "error", err)
		return err
	}

	if ent.Size < 0 {
		s.skipped[key.Type]++
		s.logger.Debug("ignoring tombstone", "type", key.Type.String(), "key", key.DisplayName())
		return nil
	}
	if len(ent.Data) < ent.Size {
		s.skipped[key.Type]++
		err := syncerr.StreamIO(ent.Key, fmt.Sprintf("read %d of %d bytes", len(ent.Data), ent.Size), nil)
		s.logger.Warn("short entity", "type", key.Type.String(), "key", key.DisplayName(), "error", err)
		return err
	}

	rec, err := s.e.codec.Unpack(key, ent.Data[:ent.Size])
	if err != nil {
		s.skipped[key.Type]++
		var se *syncerr.Error
		if errors.As(err, &se) {
			err = se.WithKey(ent.Key)
		}
		s.logger.Warn("failed to decode record", "type", key.Type.String(), "key", key.DisplayName(), "error", err)
		return err
	}
	s.checkImages(key, rec)

	s.applier.ApplyRestoredRecord(ctx, record.Restored{Key: key, Record: rec})
	s.applied = append(s.applied, key)
	s.byType[key.Type]++
	s.logger.Debug("restored record", "type", key.Type.String(), "key", key.DisplayName(), "size", ent.Size)
	return nil
}

// checkImages warns about embedded bitmaps that do not decode. The record
// is applied regardless.
func (s *RestoreSession) checkImages(key record.Key, rec record.Record) {
	warn := func(what string, data []byte) {
		if len(data) > 0 && !bitmap.Valid(data) {
			s.logger.Warn("undecodable "+what, "type", key.Type.String(), "key", key.DisplayName(), "size", len(data))
		}
	}
	switch r := rec.(type) {
	case *record.Item:
		warn("item icon", r.Icon)
	case *record.Icon:
		warn("icon", r.Data)
	case *record.Widget:
		if r.Icon != nil {
			warn("widget icon", r.Icon.Data)
		}
		if r.Preview != nil {
			warn("widget preview", r.Preview.Data)
		}
	}
}

// Finalize ends the session and returns the post-restore journal. The
// applied-key list is cleared, so the session may be reused.
func (s *RestoreSession) Finalize() *RestoreReport {
	j := &record.Journal{}
	if s.e.recordKeys {
		j.Keys = append(j.Keys, s.applied...)
	}

	r := &RestoreReport{
		SessionID:     s.id,
		Journal:       j,
		State:         s.e.codec.PackJournal(j),
		Applied:       s.applied,
		AppliedByType: s.byType,
		SkippedByType: s.skipped,
		InvalidKeys:   s.invalid,
	}
	s.e.metrics.observeRestore(r)
	s.logger.Info("restore session finished",
		"applied", len(r.Applied),
		"skipped", r.Skipped(),
		"keys", len(j.Keys),
	)

	s.reset()
	return r
}
