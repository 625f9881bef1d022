package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/stream"
	"github.com/roach88/homesync/internal/syncerr"
)

// pass holds the state of one backup pass.
type pass struct {
	e      *Engine
	ctx    context.Context
	logger *slog.Logger
	prior  *record.Journal
	out    stream.Writer
	report *PassReport

	// keys collects the output key list per type.
	keys map[record.KeyType][]record.Key

	// providers is the widget provider table, built on first use.
	providers map[launcher.ComponentName]launcher.WidgetProviderInfo

	wantAnotherPass bool
}

// Backup runs one backup pass. prior is the state blob returned by the
// previous pass, or nil. Records and tombstones go to out.
//
// Backup never fails as a whole. A data source or stream failure aborts
// only the affected type and is reported in the returned PassReport; the
// new journal is always produced and must be persisted by the caller.
func (e *Engine) Backup(ctx context.Context, prior []byte, out stream.Writer) *PassReport {
	start := e.clock.Now()
	p := &pass{
		e:     e,
		ctx:   ctx,
		prior: e.ReadJournal(prior),
		out:   out,
		keys:  make(map[record.KeyType][]record.Key),
		report: &PassReport{
			SessionID: e.sessions.Generate(),
		},
	}
	p.logger = e.logger.With("session", p.report.SessionID)
	p.logger.Debug("backup pass started",
		"prior_timestamp", p.prior.Timestamp,
		"prior_keys", len(p.prior.Keys),
	)

	p.run(record.ItemKey, p.backupItems)
	p.run(record.ScreenKey, p.backupScreens)
	p.run(record.IconKey, p.backupIcons)
	p.run(record.WidgetKey, p.backupWidgets)

	p.finish(start)
	e.metrics.observePass(p.report)
	return p.report
}

// run exports one type. On failure the type's prior keys are carried
// forward so the next pass still sees them as saved.
func (p *pass) run(t record.KeyType, export func(*TypeReport) ([]record.Key, error)) {
	tr := &TypeReport{Type: t}
	p.report.Types = append(p.report.Types, tr)

	keys, err := export(tr)
	if err != nil {
		tr.Err = err
		p.keys[t] = p.priorKeys(t)
		p.logger.Error("export aborted", "type", t.String(), "error", err)
		return
	}
	p.keys[t] = keys
}

func (p *pass) priorKeys(t record.KeyType) []record.Key {
	var keys []record.Key
	seen := make(map[record.Key]struct{})
	for _, k := range p.prior.Keys {
		if k.Type != t {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

func (p *pass) backupItems(tr *TypeReport) ([]record.Key, error) {
	rows, err := p.e.source.EnumerateItems(p.ctx, launcher.AnyItemType)
	if err != nil {
		return nil, syncerr.DataSource("enumerate items", err)
	}
	return exportModified(p, tr, rows,
		func(r launcher.ItemRow) record.Key { return record.NewIDKey(record.ItemKey, r.ID) },
		func(r launcher.ItemRow) int64 { return r.Modified },
		p.e.codec.PackItem,
	)
}

func (p *pass) backupScreens(tr *TypeReport) ([]record.Key, error) {
	rows, err := p.e.source.EnumerateScreens(p.ctx)
	if err != nil {
		return nil, syncerr.DataSource("enumerate screens", err)
	}
	return exportModified(p, tr, rows,
		func(r launcher.ScreenRow) record.Key { return record.NewIDKey(record.ScreenKey, r.ID) },
		func(r launcher.ScreenRow) int64 { return r.Modified },
		p.e.codec.PackScreen,
	)
}

// finish builds the new journal and asks for another pass if any type
// was deferred or postponed. The journal is stamped with the pass start so
// rows changed while the pass ran are newer than it.
func (p *pass) finish(start time.Time) {
	j := &record.Journal{Timestamp: start.UnixMilli()}
	if p.report.Type(record.ItemKey).Aborted() || p.report.Type(record.ScreenKey).Aborted() {
		j.Timestamp = p.prior.Timestamp
	}
	for _, tr := range p.report.Types {
		j.Rows += int64(tr.Written + tr.Tombstones)
		j.Bytes += tr.Bytes
		if p.e.recordKeys {
			j.Keys = append(j.Keys, p.keys[tr.Type]...)
		}
	}

	p.report.Journal = j
	p.report.State = p.e.codec.PackJournal(j)

	if p.wantAnotherPass {
		p.report.RequestedAnotherPass = true
		if p.e.scheduler != nil {
			p.e.scheduler.RequestAnotherPass()
		}
	}
	p.report.Duration = p.e.clock.Now().Sub(start)

	p.logger.Info("backup pass finished",
		"timestamp", j.Timestamp,
		"rows", j.Rows,
		"bytes", j.Bytes,
		"keys", len(j.Keys),
		"deferred", len(p.report.Deferred),
		"another_pass", p.report.RequestedAnotherPass,
	)
}
