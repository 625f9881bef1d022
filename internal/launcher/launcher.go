// Package launcher models the rows of the launcher content store that the
// backup engine reads, and the component identities that tie placed items to
// installed applications and widget providers.
package launcher

// ItemType is the kind of a placed item.
type ItemType int32

const (
	ItemTypeApplication ItemType = 0
	ItemTypeShortcut    ItemType = 1
	ItemTypeFolder      ItemType = 2
	ItemTypeLiveFolder  ItemType = 3
	ItemTypeAppWidget   ItemType = 4

	// AnyItemType selects every item when enumerating.
	AnyItemType ItemType = -1
)

// String returns a short name for diagnostics.
func (t ItemType) String() string {
	switch t {
	case ItemTypeApplication:
		return "application"
	case ItemTypeShortcut:
		return "shortcut"
	case ItemTypeFolder:
		return "folder"
	case ItemTypeLiveFolder:
		return "live_folder"
	case ItemTypeAppWidget:
		return "app_widget"
	case AnyItemType:
		return "any"
	default:
		return "unknown"
	}
}

// IconType says where an item's icon comes from.
type IconType int32

const (
	// IconTypeResource references a drawable by package and resource name.
	IconTypeResource IconType = 0

	// IconTypeBitmap embeds the icon bytes in the row.
	IconTypeBitmap IconType = 1
)

// Containers for items placed directly on the workspace.
const (
	ContainerDesktop int64 = -100
	ContainerHotseat int64 = -101
)

// ItemRow is one live row of the favorites table.
type ItemRow struct {
	ID                int64
	Modified          int64 // milliseconds since epoch, monotonically increasing
	Intent            string
	AppWidgetProvider string
	AppWidgetID       int32
	CellX             int32
	CellY             int32
	Container         int64
	Icon              []byte
	IconPackage       string
	IconResource      string
	IconType          IconType
	ItemType          ItemType
	Screen            int64
	SpanX             int32
	SpanY             int32
	Title             string
}

// ScreenRow is one live row of the workspace screens table.
type ScreenRow struct {
	ID       int64
	Modified int64
	Rank     int32
}

// WidgetProviderInfo describes an installed widget provider.
type WidgetProviderInfo struct {
	Provider  ComponentName
	Label     string
	Configure bool // provider declares a configuration activity
}
