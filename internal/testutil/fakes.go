package testutil

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sort"
	"sync"

	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/stream"
)

// ErrInjected is the default failure returned by the fakes below.
var ErrInjected = errors.New("injected failure")

// MemorySource is an in-memory launcher data source.
type MemorySource struct {
	mu       sync.Mutex
	items    map[int64]launcher.ItemRow
	screens  map[int64]launcher.ScreenRow
	itemErrs map[launcher.ItemType]error
	scrErr   error
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		items:    make(map[int64]launcher.ItemRow),
		screens:  make(map[int64]launcher.ScreenRow),
		itemErrs: make(map[launcher.ItemType]error),
	}
}

// PutItem adds or replaces an item.
func (s *MemorySource) PutItem(rows ...launcher.ItemRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.items[r.ID] = r
	}
}

// DeleteItem removes an item.
func (s *MemorySource) DeleteItem(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// PutScreen adds or replaces a screen.
func (s *MemorySource) PutScreen(rows ...launcher.ScreenRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.screens[r.ID] = r
	}
}

// DeleteScreen removes a screen.
func (s *MemorySource) DeleteScreen(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.screens, id)
}

// FailItems makes EnumerateItems(kind) return err. A nil err clears it.
func (s *MemorySource) FailItems(kind launcher.ItemType, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.itemErrs, kind)
		return
	}
	s.itemErrs[kind] = err
}

// FailScreens makes EnumerateScreens return err.
func (s *MemorySource) FailScreens(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrErr = err
}

// EnumerateItems returns items of kind ordered by id.
func (s *MemorySource) EnumerateItems(_ context.Context, kind launcher.ItemType) ([]launcher.ItemRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.itemErrs[kind]; err != nil {
		return nil, err
	}

	var out []launcher.ItemRow
	for _, r := range s.items {
		if kind == launcher.AnyItemType || r.ItemType == kind {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// EnumerateScreens returns screens ordered by rank, then id.
func (s *MemorySource) EnumerateScreens(context.Context) ([]launcher.ScreenRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scrErr != nil {
		return nil, s.scrErr
	}

	out := make([]launcher.ScreenRow, 0, len(s.screens))
	for _, r := range s.screens {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// StaticResources is a resource provider backed by maps. Components with
// no entry have no icon.
type StaticResources struct {
	Icons        map[launcher.ComponentName]image.Image
	IconErrs     map[launcher.ComponentName]error
	Providers    []launcher.WidgetProviderInfo
	ProvidersErr error
	WidgetIcons  map[launcher.ComponentName]image.Image
	Previews     map[launcher.ComponentName]image.Image

	mu            sync.Mutex
	iconCalls     int
	providerCalls int
}

// NewStaticResources creates an empty provider.
func NewStaticResources() *StaticResources {
	return &StaticResources{
		Icons:       make(map[launcher.ComponentName]image.Image),
		IconErrs:    make(map[launcher.ComponentName]error),
		WidgetIcons: make(map[launcher.ComponentName]image.Image),
		Previews:    make(map[launcher.ComponentName]image.Image),
	}
}

// ResolveIcon returns the configured icon for cn.
func (r *StaticResources) ResolveIcon(_ context.Context, cn launcher.ComponentName) (image.Image, error) {
	r.mu.Lock()
	r.iconCalls++
	r.mu.Unlock()
	if err := r.IconErrs[cn]; err != nil {
		return nil, err
	}
	return r.Icons[cn], nil
}

// InstalledWidgetProviders returns Providers.
func (r *StaticResources) InstalledWidgetProviders(context.Context) ([]launcher.WidgetProviderInfo, error) {
	r.mu.Lock()
	r.providerCalls++
	r.mu.Unlock()
	if r.ProvidersErr != nil {
		return nil, r.ProvidersErr
	}
	return r.Providers, nil
}

// ResolveWidgetIcon returns the configured widget icon.
func (r *StaticResources) ResolveWidgetIcon(_ context.Context, info launcher.WidgetProviderInfo) (image.Image, error) {
	return r.WidgetIcons[info.Provider], nil
}

// RenderWidgetPreview returns the configured preview.
func (r *StaticResources) RenderWidgetPreview(_ context.Context, info launcher.WidgetProviderInfo) (image.Image, error) {
	return r.Previews[info.Provider], nil
}

// IconCalls returns how many icons were resolved.
func (r *StaticResources) IconCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iconCalls
}

// ProviderCalls returns how many times the provider table was listed.
func (r *StaticResources) ProviderCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.providerCalls
}

// RecordingScheduler counts follow-up pass requests.
type RecordingScheduler struct {
	mu       sync.Mutex
	requests int
}

// RequestAnotherPass records one request.
func (s *RecordingScheduler) RequestAnotherPass() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
}

// Requests returns the number of requests so far.
func (s *RecordingScheduler) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Reset clears the request count.
func (s *RecordingScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = 0
}

// RecordingApplier keeps every restored record in arrival order.
type RecordingApplier struct {
	mu      sync.Mutex
	records []record.Restored
}

// ApplyRestoredRecord records r.
func (a *RecordingApplier) ApplyRestoredRecord(_ context.Context, r record.Restored) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
}

// Records returns a copy of the records applied so far.
func (a *RecordingApplier) Records() []record.Restored {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]record.Restored(nil), a.records...)
}

// Keys returns the encoded keys applied so far, sorted.
func (a *RecordingApplier) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.records))
	for _, r := range a.records {
		keys = append(keys, r.Key.Encode())
	}
	sort.Strings(keys)
	return keys
}

// FailingWriter is a stream.Buffer that rejects the entities matched by
// Fail.
type FailingWriter struct {
	*stream.Buffer
	Fail func(stream.Entity) bool
	Err  error
}

// NewFailingWriter creates a writer failing every entity whose key decodes
// to type t.
func NewFailingWriter(t record.KeyType) *FailingWriter {
	return &FailingWriter{
		Buffer: stream.NewBuffer(),
		Fail: func(e stream.Entity) bool {
			k, err := record.DecodeKey(e.Key)
			return err == nil && k.Type == t
		},
		Err: ErrInjected,
	}
}

// WriteEntity implements stream.Writer.
func (w *FailingWriter) WriteEntity(ctx context.Context, e stream.Entity) error {
	if w.Fail != nil && w.Fail(e) {
		return w.Err
	}
	return w.Buffer.WriteEntity(ctx, e)
}

// SolidImage returns a w×h image filled with c.
func SolidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
