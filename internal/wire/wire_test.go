package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	1: Varint,
	2: Bytes,
	3: RepeatedBytes,
}

func TestParse_RoundTrip(t *testing.T) {
	var b []byte
	b = AppendInt64(b, 1, -100)
	b = AppendString(b, 2, "hotseat")
	b = AppendBytes(b, 3, []byte{1})
	b = AppendBytes(b, 3, []byte{2, 3})

	f, err := Parse(b, testSchema)
	require.NoError(t, err)

	assert.True(t, f.Has(1))
	assert.True(t, f.Has(2))
	assert.Equal(t, int64(-100), f.Int64(1))
	assert.Equal(t, "hotseat", f.String(2))
	assert.Equal(t, [][]byte{{1}, {2, 3}}, f.Repeated(3))
}

func TestParse_Int32SignExtension(t *testing.T) {
	b := AppendInt64(nil, 1, int64(int32(-7)))

	f, err := Parse(b, testSchema)
	require.NoError(t, err)
	assert.Equal(t, int32(-7), f.Int32(1))
}

func TestParse_Bool(t *testing.T) {
	b := AppendBool(nil, 1, true)

	f, err := Parse(b, testSchema)
	require.NoError(t, err)
	assert.True(t, f.Bool(1))
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil, testSchema)
	require.NoError(t, err)
	assert.False(t, f.Has(1))
	assert.Nil(t, f.Bytes(2))
	assert.Equal(t, uint64(0), f.Uint64(1))
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"unknown field", AppendVarint(nil, 9, 1)},
		{"wire type mismatch varint", AppendString(nil, 1, "x")},
		{"wire type mismatch bytes", AppendVarint(nil, 2, 1)},
		{"duplicate singular varint", AppendVarint(AppendVarint(nil, 1, 1), 1, 2)},
		{"duplicate singular bytes", AppendString(AppendString(nil, 2, "a"), 2, "b")},
		{"truncated length", []byte{0x12, 0x05, 'a'}},
		{"truncated varint", []byte{0x08, 0x80}},
		{"field zero", []byte{0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data, testSchema)
			assert.Error(t, err)
		})
	}
}

func TestParse_BytesAreCopied(t *testing.T) {
	b := AppendBytes(nil, 2, []byte("abc"))

	f, err := Parse(b, testSchema)
	require.NoError(t, err)

	b[2] = 'X'
	assert.Equal(t, "abc", f.String(2))
}
