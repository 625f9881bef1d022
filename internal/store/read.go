package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/stream"
)

const itemColumns = `id, modified, item_type, title, intent, container, screen,
	cell_x, cell_y, span_x, span_y, icon_type, icon_package, icon_resource,
	icon, app_widget_id, app_widget_provider`

// EnumerateItems returns the live favorites of the given kind ordered by id.
// launcher.AnyItemType returns every item.
//
// Returns an empty slice (not nil) when no rows match.
func (s *Store) EnumerateItems(ctx context.Context, kind launcher.ItemType) ([]launcher.ItemRow, error) {
	query := `SELECT ` + itemColumns + ` FROM favorites`
	var args []any
	if kind != launcher.AnyItemType {
		query += ` WHERE item_type = ?`
		args = append(args, int32(kind))
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	items := []launcher.ItemRow{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return items, nil
}

// EnumerateScreens returns the live workspace screens ordered by rank.
func (s *Store) EnumerateScreens(ctx context.Context) ([]launcher.ScreenRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, modified, rank
		FROM workspace_screens
		ORDER BY rank ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query workspace screens: %w", err)
	}
	defer rows.Close()

	screens := []launcher.ScreenRow{}
	for rows.Next() {
		var sc launcher.ScreenRow
		if err := rows.Scan(&sc.ID, &sc.Modified, &sc.Rank); err != nil {
			return nil, fmt.Errorf("scan workspace screen: %w", err)
		}
		screens = append(screens, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspace screens: %w", err)
	}
	return screens, nil
}

// ReadItem returns one favorite by id. Returns sql.ErrNoRows if not found.
func (s *Store) ReadItem(ctx context.Context, id int64) (launcher.ItemRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM favorites WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return launcher.ItemRow{}, sql.ErrNoRows
	}
	return item, err
}

// ReadEntities returns every stored backup entity ordered by key.
func (s *Store) ReadEntities(ctx context.Context) ([]stream.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, data, size
		FROM backup_entities
		ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query backup entities: %w", err)
	}
	defer rows.Close()

	entities := []stream.Entity{}
	for rows.Next() {
		var e stream.Entity
		if err := rows.Scan(&e.Key, &e.Data, &e.Size); err != nil {
			return nil, fmt.Errorf("scan backup entity: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup entities: %w", err)
	}
	return entities, nil
}

// RestoredIcon is an application icon received during restore.
type RestoredIcon struct {
	Component string
	DPI       int32
	Data      []byte
}

// ReadRestoredIcon returns the restored icon for a flattened component name.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRestoredIcon(ctx context.Context, component string) (RestoredIcon, error) {
	ic := RestoredIcon{Component: component}
	err := s.db.QueryRowContext(ctx, `
		SELECT dpi, data FROM restored_icons WHERE component = ?
	`, component).Scan(&ic.DPI, &ic.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return RestoredIcon{}, sql.ErrNoRows
	}
	if err != nil {
		return RestoredIcon{}, fmt.Errorf("read restored icon: %w", err)
	}
	return ic, nil
}

// RestoredWidget is a widget provider description received during restore.
type RestoredWidget struct {
	Provider   string
	Label      string
	Configure  bool
	IconDPI    sql.NullInt32
	Icon       []byte
	PreviewDPI sql.NullInt32
	Preview    []byte
}

// ReadRestoredWidget returns the restored widget for a flattened provider
// name. Returns sql.ErrNoRows if not found.
func (s *Store) ReadRestoredWidget(ctx context.Context, provider string) (RestoredWidget, error) {
	w := RestoredWidget{Provider: provider}
	err := s.db.QueryRowContext(ctx, `
		SELECT label, configure, icon_dpi, icon, preview_dpi, preview
		FROM restored_widgets WHERE provider = ?
	`, provider).Scan(&w.Label, &w.Configure, &w.IconDPI, &w.Icon, &w.PreviewDPI, &w.Preview)
	if errors.Is(err, sql.ErrNoRows) {
		return RestoredWidget{}, sql.ErrNoRows
	}
	if err != nil {
		return RestoredWidget{}, fmt.Errorf("read restored widget: %w", err)
	}
	return w, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (launcher.ItemRow, error) {
	var it launcher.ItemRow
	err := row.Scan(
		&it.ID,
		&it.Modified,
		&it.ItemType,
		&it.Title,
		&it.Intent,
		&it.Container,
		&it.Screen,
		&it.CellX,
		&it.CellY,
		&it.SpanX,
		&it.SpanY,
		&it.IconType,
		&it.IconPackage,
		&it.IconResource,
		&it.Icon,
		&it.AppWidgetID,
		&it.AppWidgetProvider,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return it, err
	}
	if err != nil {
		return it, fmt.Errorf("scan favorite: %w", err)
	}
	return it, nil
}
