package engine

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/stream"
	"github.com/roach88/homesync/internal/testutil"
)

var testStart = time.UnixMilli(1_700_000_000_000)

// harness wires an engine to in-memory collaborators.
type harness struct {
	t         *testing.T
	ctx       context.Context
	source    *testutil.MemorySource
	resources *testutil.StaticResources
	scheduler *testutil.RecordingScheduler
	clock     *testutil.ManualClock
	metrics   *Metrics
	engine    *Engine
	out       *stream.Buffer
	state     []byte
}

// newHarness builds an engine with an empty resource provider. Extra
// options are applied after the defaults.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		ctx:       context.Background(),
		source:    testutil.NewMemorySource(),
		resources: testutil.NewStaticResources(),
		scheduler: &testutil.RecordingScheduler{},
		clock:     testutil.NewManualClock(testStart),
		metrics:   NewMetrics(prometheus.NewRegistry()),
		out:       stream.NewBuffer(),
	}
	base := []Option{
		WithResources(h.resources),
		WithClock(h.clock),
		WithLogger(discardLogger()),
		WithSessionIDs(testutil.NewFixedSessionGenerator("")),
		WithMetrics(h.metrics),
	}
	h.engine = New(h.source, h.scheduler, append(base, opts...)...)
	return h
}

// backup runs one pass into h.out, keeps the new state, and advances the
// clock so later modifications are newer than the journal.
func (h *harness) backup() *PassReport {
	h.t.Helper()
	h.out.Reset()
	r := h.backupTo(h.out)
	return r
}

func (h *harness) backupTo(w stream.Writer) *PassReport {
	h.t.Helper()
	r := h.engine.Backup(h.ctx, h.state, w)
	require.NotNil(h.t, r.Journal)
	h.state = r.State
	h.clock.Advance(time.Second)
	return r
}

// touch returns a modification time newer than the last journal.
func (h *harness) touch() int64 {
	return h.clock.NowMillis()
}

func itemKey(id int64) record.Key {
	return record.NewIDKey(record.ItemKey, id)
}

func screenKey(id int64) record.Key {
	return record.NewIDKey(record.ScreenKey, id)
}

func folder(id, modified int64) launcher.ItemRow {
	return launcher.ItemRow{
		ID:        id,
		Modified:  modified,
		ItemType:  launcher.ItemTypeFolder,
		Container: launcher.ContainerDesktop,
		Title:     fmt.Sprintf("folder %d", id),
		SpanX:     1,
		SpanY:     1,
	}
}

func appComponent(i int) launcher.ComponentName {
	pkg := fmt.Sprintf("com.example.app%d", i)
	return launcher.ComponentName{Package: pkg, Class: pkg + ".Main"}
}

func app(id, modified int64, cn launcher.ComponentName) launcher.ItemRow {
	return launcher.ItemRow{
		ID:        id,
		Modified:  modified,
		ItemType:  launcher.ItemTypeApplication,
		Container: launcher.ContainerDesktop,
		Intent:    launcher.FormatIntent(cn),
		Title:     cn.Package,
		SpanX:     1,
		SpanY:     1,
	}
}

func widgetComponent(i int) launcher.ComponentName {
	pkg := fmt.Sprintf("com.example.widget%d", i)
	return launcher.ComponentName{Package: pkg, Class: pkg + ".Provider"}
}

func widget(id, modified int64, cn launcher.ComponentName) launcher.ItemRow {
	return launcher.ItemRow{
		ID:                id,
		Modified:          modified,
		ItemType:          launcher.ItemTypeAppWidget,
		Container:         launcher.ContainerDesktop,
		AppWidgetID:       int32(100 + id),
		AppWidgetProvider: cn.Flatten(),
		SpanX:             2,
		SpanY:             2,
	}
}

var red = color.RGBA{R: 0xff, A: 0xff}

// keysOfType filters journal keys.
func keysOfType(keys []record.Key, t record.KeyType) []record.Key {
	var out []record.Key
	for _, k := range keys {
		if k.Type == t {
			out = append(out, k)
		}
	}
	return out
}

// written returns the keys of value entities in the log, in order.
func written(log []stream.Entity) []string {
	var out []string
	for _, e := range log {
		if !e.IsTombstone() {
			out = append(out, e.Key)
		}
	}
	return out
}

// tombstones returns the keys of tombstones in the log, in order.
func tombstones(log []stream.Entity) []string {
	var out []string
	for _, e := range log {
		if e.IsTombstone() {
			out = append(out, e.Key)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func promValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	return promtest.ToFloat64(c)
}
