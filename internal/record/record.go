// Package record defines the stream keys and the four record kinds a backup
// pass exports, together with their checksummed wire codecs.
package record

import "github.com/roach88/homesync/internal/launcher"

// Record is a decoded stream value.
type Record interface {
	Kind() KeyType
}

// Item is one placed launcher entry.
type Item struct {
	ID                int64
	ItemType          launcher.ItemType
	Title             string
	Container         int64
	Screen            int64
	CellX             int32
	CellY             int32
	SpanX             int32
	SpanY             int32
	IconType          launcher.IconType
	IconPackage       string
	IconResource      string
	Icon              []byte
	Intent            string
	AppWidgetID       int32
	AppWidgetProvider string
}

func (*Item) Kind() KeyType { return ItemKey }

// ItemFromRow copies the exportable columns of row. Icon bytes are kept only
// for bitmap icons, the package/resource pair only for resource icons, and
// widget fields only for widget placements.
func ItemFromRow(row launcher.ItemRow) *Item {
	it := &Item{
		ID:        row.ID,
		ItemType:  row.ItemType,
		Title:     row.Title,
		Container: row.Container,
		Screen:    row.Screen,
		CellX:     row.CellX,
		CellY:     row.CellY,
		SpanX:     row.SpanX,
		SpanY:     row.SpanY,
		IconType:  row.IconType,
		Intent:    row.Intent,
	}
	switch row.IconType {
	case launcher.IconTypeResource:
		it.IconPackage = row.IconPackage
		it.IconResource = row.IconResource
	case launcher.IconTypeBitmap:
		if len(row.Icon) > 0 {
			it.Icon = append([]byte{}, row.Icon...)
		}
	}
	if row.ItemType == launcher.ItemTypeAppWidget {
		it.AppWidgetID = row.AppWidgetID
		it.AppWidgetProvider = row.AppWidgetProvider
	}
	return it
}

// Screen is one workspace page.
type Screen struct {
	ID   int64
	Rank int32
}

func (*Screen) Kind() KeyType { return ScreenKey }

// ScreenFromRow copies the exportable columns of row.
func ScreenFromRow(row launcher.ScreenRow) *Screen {
	return &Screen{ID: row.ID, Rank: row.Rank}
}

// Resource is a compressed image at a display density.
type Resource struct {
	DPI  int32
	Data []byte
}

// Icon is the launcher icon of one application component.
type Icon struct {
	Resource
}

func (*Icon) Kind() KeyType { return IconKey }

// Widget describes one widget provider with its optional icon and preview.
type Widget struct {
	Provider  string
	Label     string
	Configure bool
	Icon      *Resource
	Preview   *Resource
}

func (*Widget) Kind() KeyType { return WidgetKey }

// Restored is a record recovered from the stream, ready to be applied.
type Restored struct {
	Key    Key
	Record Record
}
