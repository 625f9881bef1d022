package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_WriteAndTombstone(t *testing.T) {
	ctx := context.Background()
	b := NewBuffer()

	require.NoError(t, b.WriteEntity(ctx, Value("b", []byte("two"))))
	require.NoError(t, b.WriteEntity(ctx, Value("a", []byte("one"))))
	require.NoError(t, b.WriteEntity(ctx, Tombstone("b")))

	assert.Len(t, b.Log(), 3)
	assert.True(t, b.Log()[2].IsTombstone())
	assert.Equal(t, map[string][]byte{"a": []byte("one")}, b.Snapshot())

	b.Reset()
	assert.Empty(t, b.Log())
	assert.Equal(t, []Entity{{Key: "a", Size: 3, Data: []byte("one")}}, b.Entities())
}

func TestBuffer_CopiesData(t *testing.T) {
	b := NewBuffer()
	data := []byte("abc")
	require.NoError(t, b.WriteEntity(context.Background(), Value("k", data)))

	data[0] = 'X'
	assert.Equal(t, []byte("abc"), b.Snapshot()["k"])
}

func TestEntities_Sorted(t *testing.T) {
	ctx := context.Background()
	b := NewBuffer()
	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, b.WriteEntity(ctx, Value(k, []byte(k))))
	}

	var keys []string
	for _, e := range b.Entities() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestTombstone(t *testing.T) {
	e := Tombstone("k")
	assert.Equal(t, TombstoneSize, e.Size)
	assert.Nil(t, e.Data)
	assert.False(t, Value("k", nil).IsTombstone())
}
