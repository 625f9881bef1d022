package record

import (
	"encoding/base64"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/roach88/homesync/internal/syncerr"
	"github.com/roach88/homesync/internal/wire"
)

// KeyType is the record type a key identifies.
type KeyType int32

const (
	ItemKey   KeyType = 1
	ScreenKey KeyType = 2
	IconKey   KeyType = 3
	WidgetKey KeyType = 4
)

// KeyTypes lists every key type in export order.
var KeyTypes = []KeyType{ItemKey, ScreenKey, IconKey, WidgetKey}

func (t KeyType) String() string {
	switch t {
	case ItemKey:
		return "item"
	case ScreenKey:
		return "screen"
	case IconKey:
		return "icon"
	case WidgetKey:
		return "widget"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// usesID reports whether keys of this type are identified by a row id
// rather than a component name.
func (t KeyType) usesID() bool {
	return t == ItemKey || t == ScreenKey
}

func (t KeyType) valid() bool {
	return t >= ItemKey && t <= WidgetKey
}

const (
	keyFieldType     protowire.Number = 1
	keyFieldID       protowire.Number = 2
	keyFieldName     protowire.Number = 3
	keyFieldChecksum protowire.Number = 4
)

var keySchema = wire.Schema{
	keyFieldType:     wire.Varint,
	keyFieldID:       wire.Varint,
	keyFieldName:     wire.Bytes,
	keyFieldChecksum: wire.Varint,
}

// Key identifies one exported record. Keys are comparable and can be used
// as map keys; the zero Key is not valid.
type Key struct {
	Type     KeyType
	ID       int64
	Name     string
	Checksum uint32
}

// NewIDKey builds a key for an item or screen row.
func NewIDKey(t KeyType, id int64) Key {
	k := Key{Type: t, ID: id}
	k.Checksum = k.computeChecksum()
	return k
}

// NewNameKey builds a key for an icon or widget resource.
func NewNameKey(t KeyType, name string) Key {
	k := Key{Type: t, Name: name}
	k.Checksum = k.computeChecksum()
	return k
}

// computeChecksum is the CRC-32 of the type byte, the low byte of each of
// the id's 16-bit halves at bits 0 and 32, and then the name bytes. Name
// keys carry id 0, so two zero bytes precede the name. This matches the
// checksum the legacy writer stored, so legacy stream keys verify.
func (k Key) computeChecksum() uint32 {
	id := uint64(k.ID)
	buf := []byte{byte(k.Type), byte(id), byte(id >> 32)}
	buf = append(buf, k.Name...)
	return crc32.ChecksumIEEE(buf)
}

// Encode returns the stream key: the wire form of k in standard base64.
func (k Key) Encode() string {
	return base64.StdEncoding.EncodeToString(k.appendWire(nil))
}

func (k Key) appendWire(b []byte) []byte {
	b = wire.AppendVarint(b, keyFieldType, uint64(k.Type))
	if k.Type.usesID() {
		b = wire.AppendInt64(b, keyFieldID, k.ID)
	} else {
		b = wire.AppendString(b, keyFieldName, k.Name)
	}
	return wire.AppendVarint(b, keyFieldChecksum, uint64(k.Checksum))
}

// DecodeKey parses and verifies a stream key. Any malformed, inconsistent
// or tampered key yields a KEY_PARSING error.
func DecodeKey(s string) (Key, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return Key{}, syncerr.KeyParsing(s, "invalid base64", err)
	}
	k, err := parseKeyWire(raw)
	if err != nil {
		return Key{}, syncerr.KeyParsing(s, "invalid key", err)
	}
	return k, nil
}

func parseKeyWire(raw []byte) (Key, error) {
	f, err := wire.Parse(raw, keySchema)
	if err != nil {
		return Key{}, err
	}
	if !f.Has(keyFieldType) || !f.Has(keyFieldChecksum) {
		return Key{}, errors.New("missing type or checksum")
	}

	t := f.Uint64(keyFieldType)
	if t > uint64(WidgetKey) || !KeyType(t).valid() {
		return Key{}, fmt.Errorf("unknown key type %d", t)
	}
	k := Key{Type: KeyType(t)}

	if k.Type.usesID() {
		if !f.Has(keyFieldID) || f.Has(keyFieldName) {
			return Key{}, fmt.Errorf("%s key must carry an id only", k.Type)
		}
		k.ID = f.Int64(keyFieldID)
	} else {
		if !f.Has(keyFieldName) || f.Has(keyFieldID) || len(f.Bytes(keyFieldName)) == 0 {
			return Key{}, fmt.Errorf("%s key must carry a name only", k.Type)
		}
		k.Name = f.String(keyFieldName)
	}

	claimed := f.Uint64(keyFieldChecksum)
	if claimed > math.MaxUint32 || uint32(claimed) != k.computeChecksum() {
		return Key{}, errors.New("checksum does not match")
	}
	k.Checksum = uint32(claimed)
	return k, nil
}

// DisplayName returns the name for resource keys and the decimal id
// otherwise. For diagnostics only.
func (k Key) DisplayName() string {
	if k.Type.usesID() {
		return strconv.FormatInt(k.ID, 10)
	}
	return k.Name
}

func (k Key) String() string {
	return k.Type.String() + ":" + k.DisplayName()
}
