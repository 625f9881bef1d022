package record

import (
	"errors"
	"fmt"
	"image"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/roach88/homesync/internal/bitmap"
	"github.com/roach88/homesync/internal/envelope"
	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/syncerr"
	"github.com/roach88/homesync/internal/wire"
)

// Item fields.
const (
	itemFieldID                protowire.Number = 1
	itemFieldItemType          protowire.Number = 2
	itemFieldTitle             protowire.Number = 3
	itemFieldContainer         protowire.Number = 4
	itemFieldScreen            protowire.Number = 5
	itemFieldCellX             protowire.Number = 6
	itemFieldCellY             protowire.Number = 7
	itemFieldSpanX             protowire.Number = 8
	itemFieldSpanY             protowire.Number = 9
	itemFieldIconType          protowire.Number = 10
	itemFieldIconPackage       protowire.Number = 11
	itemFieldIconResource      protowire.Number = 12
	itemFieldIcon              protowire.Number = 13
	itemFieldIntent            protowire.Number = 14
	itemFieldAppWidgetID       protowire.Number = 15
	itemFieldAppWidgetProvider protowire.Number = 16
)

var itemSchema = wire.Schema{
	itemFieldID:                wire.Varint,
	itemFieldItemType:          wire.Varint,
	itemFieldTitle:             wire.Bytes,
	itemFieldContainer:         wire.Varint,
	itemFieldScreen:            wire.Varint,
	itemFieldCellX:             wire.Varint,
	itemFieldCellY:             wire.Varint,
	itemFieldSpanX:             wire.Varint,
	itemFieldSpanY:             wire.Varint,
	itemFieldIconType:          wire.Varint,
	itemFieldIconPackage:       wire.Bytes,
	itemFieldIconResource:      wire.Bytes,
	itemFieldIcon:              wire.Bytes,
	itemFieldIntent:            wire.Bytes,
	itemFieldAppWidgetID:       wire.Varint,
	itemFieldAppWidgetProvider: wire.Bytes,
}

// Screen fields.
const (
	screenFieldID   protowire.Number = 1
	screenFieldRank protowire.Number = 2
)

var screenSchema = wire.Schema{
	screenFieldID:   wire.Varint,
	screenFieldRank: wire.Varint,
}

// Resource fields.
const (
	resourceFieldDPI  protowire.Number = 1
	resourceFieldData protowire.Number = 2
)

var resourceSchema = wire.Schema{
	resourceFieldDPI:  wire.Varint,
	resourceFieldData: wire.Bytes,
}

// Widget fields.
const (
	widgetFieldProvider  protowire.Number = 1
	widgetFieldLabel     protowire.Number = 2
	widgetFieldConfigure protowire.Number = 3
	widgetFieldIcon      protowire.Number = 4
	widgetFieldPreview   protowire.Number = 5
)

var widgetSchema = wire.Schema{
	widgetFieldProvider:  wire.Bytes,
	widgetFieldLabel:     wire.Bytes,
	widgetFieldConfigure: wire.Varint,
	widgetFieldIcon:      wire.Bytes,
	widgetFieldPreview:   wire.Bytes,
}

// Codec packs records into checksummed envelopes and back.
type Codec struct {
	env *envelope.Codec
}

// NewCodec returns a record codec using env for every envelope.
func NewCodec(env *envelope.Codec) *Codec {
	if env == nil {
		env = envelope.New(envelope.ChecksumContent)
	}
	return &Codec{env: env}
}

// Envelope returns the underlying envelope codec.
func (c *Codec) Envelope() *envelope.Codec {
	return c.env
}

// PackItem serializes one favorites row.
func (c *Codec) PackItem(row launcher.ItemRow) []byte {
	return c.env.Wrap(ItemFromRow(row).marshal())
}

func (it *Item) marshal() []byte {
	var b []byte
	b = wire.AppendInt64(b, itemFieldID, it.ID)
	b = wire.AppendInt64(b, itemFieldItemType, int64(it.ItemType))
	if it.Title != "" {
		b = wire.AppendString(b, itemFieldTitle, it.Title)
	}
	b = wire.AppendInt64(b, itemFieldContainer, it.Container)
	b = wire.AppendInt64(b, itemFieldScreen, it.Screen)
	b = wire.AppendInt64(b, itemFieldCellX, int64(it.CellX))
	b = wire.AppendInt64(b, itemFieldCellY, int64(it.CellY))
	b = wire.AppendInt64(b, itemFieldSpanX, int64(it.SpanX))
	b = wire.AppendInt64(b, itemFieldSpanY, int64(it.SpanY))
	b = wire.AppendInt64(b, itemFieldIconType, int64(it.IconType))
	if it.IconPackage != "" {
		b = wire.AppendString(b, itemFieldIconPackage, it.IconPackage)
	}
	if it.IconResource != "" {
		b = wire.AppendString(b, itemFieldIconResource, it.IconResource)
	}
	if len(it.Icon) > 0 {
		b = wire.AppendBytes(b, itemFieldIcon, it.Icon)
	}
	if it.Intent != "" {
		b = wire.AppendString(b, itemFieldIntent, it.Intent)
	}
	if it.ItemType == launcher.ItemTypeAppWidget {
		b = wire.AppendInt64(b, itemFieldAppWidgetID, int64(it.AppWidgetID))
		if it.AppWidgetProvider != "" {
			b = wire.AppendString(b, itemFieldAppWidgetProvider, it.AppWidgetProvider)
		}
	}
	return b
}

// UnpackItem verifies and decodes an item envelope.
func (c *Codec) UnpackItem(data []byte) (*Item, error) {
	f, err := c.open(data, itemSchema, "item")
	if err != nil {
		return nil, err
	}
	if !f.Has(itemFieldID) {
		return nil, syncerr.Decode("item has no id", nil)
	}
	return &Item{
		ID:                f.Int64(itemFieldID),
		ItemType:          launcher.ItemType(f.Int32(itemFieldItemType)),
		Title:             f.String(itemFieldTitle),
		Container:         f.Int64(itemFieldContainer),
		Screen:            f.Int64(itemFieldScreen),
		CellX:             f.Int32(itemFieldCellX),
		CellY:             f.Int32(itemFieldCellY),
		SpanX:             f.Int32(itemFieldSpanX),
		SpanY:             f.Int32(itemFieldSpanY),
		IconType:          launcher.IconType(f.Int32(itemFieldIconType)),
		IconPackage:       f.String(itemFieldIconPackage),
		IconResource:      f.String(itemFieldIconResource),
		Icon:              f.Bytes(itemFieldIcon),
		Intent:            f.String(itemFieldIntent),
		AppWidgetID:       f.Int32(itemFieldAppWidgetID),
		AppWidgetProvider: f.String(itemFieldAppWidgetProvider),
	}, nil
}

// PackScreen serializes one workspace screen row.
func (c *Codec) PackScreen(row launcher.ScreenRow) []byte {
	s := ScreenFromRow(row)
	b := wire.AppendInt64(nil, screenFieldID, s.ID)
	b = wire.AppendInt64(b, screenFieldRank, int64(s.Rank))
	return c.env.Wrap(b)
}

// UnpackScreen verifies and decodes a screen envelope.
func (c *Codec) UnpackScreen(data []byte) (*Screen, error) {
	f, err := c.open(data, screenSchema, "screen")
	if err != nil {
		return nil, err
	}
	if !f.Has(screenFieldID) {
		return nil, syncerr.Decode("screen has no id", nil)
	}
	return &Screen{ID: f.Int64(screenFieldID), Rank: f.Int32(screenFieldRank)}, nil
}

// PackIcon compresses img and serializes it as an icon resource.
func (c *Codec) PackIcon(dpi int32, img image.Image) ([]byte, error) {
	res, err := compressResource(dpi, img)
	if err != nil {
		return nil, syncerr.ResourceEncoding("compress icon", err)
	}
	return c.env.Wrap(res.marshal()), nil
}

// UnpackIcon verifies and decodes an icon envelope.
func (c *Codec) UnpackIcon(data []byte) (*Icon, error) {
	payload, err := c.env.Unwrap(data)
	if err != nil {
		return nil, err
	}
	res, err := unmarshalResource(payload)
	if err != nil {
		return nil, syncerr.Decode("malformed icon", err)
	}
	return &Icon{Resource: *res}, nil
}

// PackWidget serializes a widget provider. The icon and the preview are each
// optional; a nil image is simply omitted.
func (c *Codec) PackWidget(dpi int32, info launcher.WidgetProviderInfo, icon, preview image.Image) ([]byte, error) {
	var b []byte
	b = wire.AppendString(b, widgetFieldProvider, info.Provider.FlattenShort())
	if info.Label != "" {
		b = wire.AppendString(b, widgetFieldLabel, info.Label)
	}
	b = wire.AppendBool(b, widgetFieldConfigure, info.Configure)

	if icon != nil {
		res, err := compressResource(dpi, icon)
		if err != nil {
			return nil, syncerr.ResourceEncoding("compress widget icon", err)
		}
		b = wire.AppendBytes(b, widgetFieldIcon, res.marshal())
	}
	if preview != nil {
		res, err := compressResource(dpi, preview)
		if err != nil {
			return nil, syncerr.ResourceEncoding("compress widget preview", err)
		}
		b = wire.AppendBytes(b, widgetFieldPreview, res.marshal())
	}
	return c.env.Wrap(b), nil
}

// UnpackWidget verifies and decodes a widget envelope.
func (c *Codec) UnpackWidget(data []byte) (*Widget, error) {
	f, err := c.open(data, widgetSchema, "widget")
	if err != nil {
		return nil, err
	}
	if f.String(widgetFieldProvider) == "" {
		return nil, syncerr.Decode("widget has no provider", nil)
	}

	w := &Widget{
		Provider:  f.String(widgetFieldProvider),
		Label:     f.String(widgetFieldLabel),
		Configure: f.Bool(widgetFieldConfigure),
	}
	if f.Has(widgetFieldIcon) {
		if w.Icon, err = unmarshalResource(f.Bytes(widgetFieldIcon)); err != nil {
			return nil, syncerr.Decode("malformed widget icon", err)
		}
	}
	if f.Has(widgetFieldPreview) {
		if w.Preview, err = unmarshalResource(f.Bytes(widgetFieldPreview)); err != nil {
			return nil, syncerr.Decode("malformed widget preview", err)
		}
	}
	return w, nil
}

// Unpack decodes data as the record kind named by key.
func (c *Codec) Unpack(key Key, data []byte) (Record, error) {
	switch key.Type {
	case ItemKey:
		return c.UnpackItem(data)
	case ScreenKey:
		return c.UnpackScreen(data)
	case IconKey:
		return c.UnpackIcon(data)
	case WidgetKey:
		return c.UnpackWidget(data)
	default:
		return nil, syncerr.Decode(fmt.Sprintf("no codec for key type %s", key.Type), nil)
	}
}

// open unwraps an envelope and parses its payload against schema.
func (c *Codec) open(data []byte, schema wire.Schema, what string) (*wire.Fields, error) {
	payload, err := c.env.Unwrap(data)
	if err != nil {
		return nil, err
	}
	f, err := wire.Parse(payload, schema)
	if err != nil {
		return nil, syncerr.Decode("malformed "+what, err)
	}
	return f, nil
}

func compressResource(dpi int32, img image.Image) (*Resource, error) {
	data, err := bitmap.Compress(img)
	if err != nil {
		return nil, err
	}
	return &Resource{DPI: dpi, Data: data}, nil
}

func (r *Resource) marshal() []byte {
	b := wire.AppendInt64(nil, resourceFieldDPI, int64(r.DPI))
	return wire.AppendBytes(b, resourceFieldData, r.Data)
}

func unmarshalResource(b []byte) (*Resource, error) {
	f, err := wire.Parse(b, resourceSchema)
	if err != nil {
		return nil, err
	}
	if !f.Has(resourceFieldData) {
		return nil, errors.New("resource has no data")
	}
	return &Resource{DPI: f.Int32(resourceFieldDPI), Data: f.Bytes(resourceFieldData)}, nil
}
