package testutil

import (
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/stream"
)

func TestMemorySource_EnumerateItemsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource()
	src.PutItem(
		launcher.ItemRow{ID: 3, ItemType: launcher.ItemTypeAppWidget},
		launcher.ItemRow{ID: 1, ItemType: launcher.ItemTypeApplication},
		launcher.ItemRow{ID: 2, ItemType: launcher.ItemTypeApplication},
	)

	all, err := src.EnumerateItems(ctx, launcher.AnyItemType)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})

	apps, err := src.EnumerateItems(ctx, launcher.ItemTypeApplication)
	require.NoError(t, err)
	assert.Len(t, apps, 2)

	src.DeleteItem(2)
	apps, err = src.EnumerateItems(ctx, launcher.ItemTypeApplication)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestMemorySource_InjectedFailures(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource()

	src.FailItems(launcher.ItemTypeApplication, ErrInjected)
	_, err := src.EnumerateItems(ctx, launcher.ItemTypeApplication)
	assert.ErrorIs(t, err, ErrInjected)
	_, err = src.EnumerateItems(ctx, launcher.AnyItemType)
	assert.NoError(t, err)

	src.FailItems(launcher.ItemTypeApplication, nil)
	_, err = src.EnumerateItems(ctx, launcher.ItemTypeApplication)
	assert.NoError(t, err)

	src.FailScreens(ErrInjected)
	_, err = src.EnumerateScreens(ctx)
	assert.ErrorIs(t, err, ErrInjected)
}

func TestMemorySource_ScreensOrderedByRank(t *testing.T) {
	src := NewMemorySource()
	src.PutScreen(
		launcher.ScreenRow{ID: 10, Rank: 1},
		launcher.ScreenRow{ID: 11, Rank: 0},
	)

	screens, err := src.EnumerateScreens(context.Background())
	require.NoError(t, err)
	require.Len(t, screens, 2)
	assert.Equal(t, int64(11), screens[0].ID)
}

func TestRecordingScheduler(t *testing.T) {
	var s RecordingScheduler
	s.RequestAnotherPass()
	s.RequestAnotherPass()
	assert.Equal(t, 2, s.Requests())

	s.Reset()
	assert.Zero(t, s.Requests())
}

func TestFailingWriter_FailsMatchingType(t *testing.T) {
	ctx := context.Background()
	w := NewFailingWriter(record.IconKey)

	icon := record.NewNameKey(record.IconKey, "com.example/.Main").Encode()
	item := record.NewIDKey(record.ItemKey, 1).Encode()

	assert.ErrorIs(t, w.WriteEntity(ctx, stream.Value(icon, []byte{1})), ErrInjected)
	assert.NoError(t, w.WriteEntity(ctx, stream.Value(item, []byte{1})))
	assert.Len(t, w.Snapshot(), 1)
}

func TestSolidImage(t *testing.T) {
	img := SolidImage(2, 3, color.White)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())

	r, g, b, a := img.At(1, 2).RGBA()
	assert.Equal(t, [4]uint32{0xffff, 0xffff, 0xffff, 0xffff}, [4]uint32{r, g, b, a})
}
