package store

import (
	"context"
	"fmt"

	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/stream"
)

// PutItem inserts or replaces a favorite. A zero Modified is stamped with
// the store's current time.
func (s *Store) PutItem(ctx context.Context, it launcher.ItemRow) error {
	if it.Modified == 0 {
		it.Modified = s.now().UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			modified = excluded.modified,
			item_type = excluded.item_type,
			title = excluded.title,
			intent = excluded.intent,
			container = excluded.container,
			screen = excluded.screen,
			cell_x = excluded.cell_x,
			cell_y = excluded.cell_y,
			span_x = excluded.span_x,
			span_y = excluded.span_y,
			icon_type = excluded.icon_type,
			icon_package = excluded.icon_package,
			icon_resource = excluded.icon_resource,
			icon = excluded.icon,
			app_widget_id = excluded.app_widget_id,
			app_widget_provider = excluded.app_widget_provider
	`,
		it.ID,
		it.Modified,
		int32(it.ItemType),
		it.Title,
		it.Intent,
		it.Container,
		it.Screen,
		it.CellX,
		it.CellY,
		it.SpanX,
		it.SpanY,
		int32(it.IconType),
		it.IconPackage,
		it.IconResource,
		it.Icon,
		it.AppWidgetID,
		it.AppWidgetProvider,
	)
	if err != nil {
		return fmt.Errorf("put item %d: %w", it.ID, err)
	}
	return nil
}

// DeleteItem removes a favorite. Deleting a missing id is not an error.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

// PutScreen inserts or replaces a workspace screen. A zero Modified is
// stamped with the store's current time.
func (s *Store) PutScreen(ctx context.Context, sc launcher.ScreenRow) error {
	if sc.Modified == 0 {
		sc.Modified = s.now().UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_screens (id, modified, rank)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			modified = excluded.modified,
			rank = excluded.rank
	`, sc.ID, sc.Modified, sc.Rank)
	if err != nil {
		return fmt.Errorf("put screen %d: %w", sc.ID, err)
	}
	return nil
}

// DeleteScreen removes a workspace screen.
func (s *Store) DeleteScreen(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workspace_screens WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete screen %d: %w", id, err)
	}
	return nil
}

// WriteEntity stores one backup entity. A tombstone deletes the key.
// Implements stream.Writer so a Store can receive a backup pass directly.
func (s *Store) WriteEntity(ctx context.Context, e stream.Entity) error {
	if e.IsTombstone() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM backup_entities WHERE key = ?`, e.Key); err != nil {
			return fmt.Errorf("delete entity: %w", err)
		}
		return nil
	}

	data := e.Data
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backup_entities (key, data, size)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			size = excluded.size
	`, e.Key, data, e.Size)
	if err != nil {
		return fmt.Errorf("write entity: %w", err)
	}
	return nil
}

// ApplyRestoredRecord writes a restored record into the launcher tables.
// Restored rows are stamped with the current time so that the next backup
// pass exports them. Failures are logged, not returned: a record that cannot
// be applied is simply absent from the restored layout.
func (s *Store) ApplyRestoredRecord(ctx context.Context, r record.Restored) {
	if err := s.applyRecord(ctx, r); err != nil {
		s.logger.Error("apply restored record failed",
			"type", r.Key.Type.String(),
			"key", r.Key.DisplayName(),
			"error", err,
		)
	}
}

func (s *Store) applyRecord(ctx context.Context, r record.Restored) error {
	now := s.now().UnixMilli()

	switch v := r.Record.(type) {
	case *record.Item:
		return s.PutItem(ctx, launcher.ItemRow{
			ID:                v.ID,
			Modified:          now,
			Intent:            v.Intent,
			AppWidgetProvider: v.AppWidgetProvider,
			AppWidgetID:       v.AppWidgetID,
			CellX:             v.CellX,
			CellY:             v.CellY,
			Container:         v.Container,
			Icon:              v.Icon,
			IconPackage:       v.IconPackage,
			IconResource:      v.IconResource,
			IconType:          v.IconType,
			ItemType:          v.ItemType,
			Screen:            v.Screen,
			SpanX:             v.SpanX,
			SpanY:             v.SpanY,
			Title:             v.Title,
		})

	case *record.Screen:
		return s.PutScreen(ctx, launcher.ScreenRow{ID: v.ID, Modified: now, Rank: v.Rank})

	case *record.Icon:
		return s.putIcon(ctx, r.Key.Name, v)

	case *record.Widget:
		return s.putWidget(ctx, v)

	default:
		return fmt.Errorf("unsupported record %T", r.Record)
	}
}

func (s *Store) putIcon(ctx context.Context, component string, ic *record.Icon) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO restored_icons (component, dpi, data)
		VALUES (?, ?, ?)
		ON CONFLICT(component) DO UPDATE SET
			dpi = excluded.dpi,
			data = excluded.data
	`, component, ic.DPI, ic.Data)
	if err != nil {
		return fmt.Errorf("put icon %s: %w", component, err)
	}
	return nil
}

func (s *Store) putWidget(ctx context.Context, w *record.Widget) error {
	var iconDPI, previewDPI any
	var icon, preview []byte
	if w.Icon != nil {
		iconDPI, icon = w.Icon.DPI, w.Icon.Data
	}
	if w.Preview != nil {
		previewDPI, preview = w.Preview.DPI, w.Preview.Data
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO restored_widgets (provider, label, configure, icon_dpi, icon, preview_dpi, preview)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			label = excluded.label,
			configure = excluded.configure,
			icon_dpi = excluded.icon_dpi,
			icon = excluded.icon,
			preview_dpi = excluded.preview_dpi,
			preview = excluded.preview
	`, w.Provider, w.Label, w.Configure, iconDPI, icon, previewDPI, preview)
	if err != nil {
		return fmt.Errorf("put widget %s: %w", w.Provider, err)
	}
	return nil
}
