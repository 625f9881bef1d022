package engine

import (
	"context"
	"image"
	"log/slog"

	"github.com/roach88/homesync/internal/envelope"
	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/record"
)

// DataSource enumerates the live launcher rows.
type DataSource interface {
	// EnumerateItems returns live favorites of the given kind;
	// launcher.AnyItemType returns all of them.
	EnumerateItems(ctx context.Context, kind launcher.ItemType) ([]launcher.ItemRow, error)
	EnumerateScreens(ctx context.Context) ([]launcher.ScreenRow, error)
}

// ResourceProvider supplies icons and widget metadata. A nil image with a
// nil error means there is nothing to export for that candidate.
type ResourceProvider interface {
	ResolveIcon(ctx context.Context, cn launcher.ComponentName) (image.Image, error)
	InstalledWidgetProviders(ctx context.Context) ([]launcher.WidgetProviderInfo, error)
	ResolveWidgetIcon(ctx context.Context, info launcher.WidgetProviderInfo) (image.Image, error)
	RenderWidgetPreview(ctx context.Context, info launcher.WidgetProviderInfo) (image.Image, error)
}

// Scheduler asks the host to run another backup pass soon.
// Calls are fire-and-forget and idempotent.
type Scheduler interface {
	RequestAnotherPass()
}

// Applier receives each record decoded during restore. Failures to apply
// are the applier's to handle.
type Applier interface {
	ApplyRestoredRecord(ctx context.Context, r record.Restored)
}

// SessionIDGenerator produces identifiers for backup passes and restore
// sessions. Implemented by UUIDv7Generator and FixedGenerator.
type SessionIDGenerator interface {
	Generate() string
}

// Default per-pass resource quotas and display density.
const (
	DefaultIconQuota   = 10
	DefaultWidgetQuota = 5
	DefaultDPI         = 320
)

// Engine runs backup passes and restore sessions over a launcher data
// source. An Engine holds configuration only; all per-pass state lives in
// the pass or session that uses it. It is not safe for concurrent use.
type Engine struct {
	source     DataSource
	resources  ResourceProvider // nil when the host cannot provide resources
	scheduler  Scheduler
	codec      *record.Codec
	clock      Clock
	logger     *slog.Logger
	sessions   SessionIDGenerator
	metrics    *Metrics
	recordKeys bool

	iconQuota   int
	widgetQuota int
	dpi         int32
}

// Option configures an Engine.
type Option func(*Engine)

// WithResources sets the icon and widget provider. Without one, icon and
// widget export is postponed and another pass is requested.
func WithResources(p ResourceProvider) Option {
	return func(e *Engine) {
		e.resources = p
	}
}

// WithIconQuota sets the maximum number of new icons processed per pass.
func WithIconQuota(n int) Option {
	return func(e *Engine) {
		e.iconQuota = n
	}
}

// WithWidgetQuota sets the maximum number of new widgets processed per pass.
func WithWidgetQuota(n int) Option {
	return func(e *Engine) {
		e.widgetQuota = n
	}
}

// WithChecksumMode selects the envelope checksum for records and journals.
func WithChecksumMode(mode envelope.ChecksumMode) Option {
	return func(e *Engine) {
		e.codec = record.NewCodec(envelope.New(mode))
	}
}

// WithJournalKeys controls whether journals carry the live key list.
// Without it, deletions cannot be detected across passes.
func WithJournalKeys(record bool) Option {
	return func(e *Engine) {
		e.recordKeys = record
	}
}

// WithDPI sets the density recorded with exported images.
func WithDPI(dpi int) Option {
	return func(e *Engine) {
		e.dpi = int32(dpi)
	}
}

// WithClock sets the time source for journal timestamps.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithSessionIDs sets the generator for pass and session identifiers.
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(e *Engine) {
		e.sessions = g
	}
}

// WithMetrics sets the metric set updated at the end of each pass and
// session.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine reading from source and requesting follow-up passes
// through scheduler. A nil scheduler drops those requests.
func New(source DataSource, scheduler Scheduler, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		scheduler:   scheduler,
		codec:       record.NewCodec(envelope.New(envelope.ChecksumContent)),
		clock:       SystemClock{},
		logger:      slog.Default(),
		sessions:    UUIDv7Generator{},
		recordKeys:  true,
		iconQuota:   DefaultIconQuota,
		widgetQuota: DefaultWidgetQuota,
		dpi:         DefaultDPI,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.metrics == nil {
		e.metrics = defaultMetrics()
	}
	return e
}

// Codec returns the record codec the engine packs with.
func (e *Engine) Codec() *record.Codec {
	return e.codec
}

// ReadJournal decodes a state blob. Empty, oversized or corrupt state
// yields an empty journal so that the next pass exports everything.
func (e *Engine) ReadJournal(state []byte) *record.Journal {
	if len(state) == 0 {
		return &record.Journal{}
	}
	j, err := e.codec.UnpackJournal(state)
	if err != nil {
		e.logger.Warn("discarding unreadable journal", "size", len(state), "error", err)
		return &record.Journal{}
	}
	return j
}
