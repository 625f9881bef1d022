package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/homesync/internal/record"
)

func iconKey(i int) record.Key {
	return record.NewNameKey(record.IconKey, fmt.Sprintf("com.example.app%d/.Main", i))
}

func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(record.IconKey, 10)

	for i := 0; i < 10; i++ {
		assert.NoError(t, q.Check(iconKey(i)), "candidate %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.Limit())
	assert.Zero(t, q.Deferred())
}

func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(record.WidgetKey, 5)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check(iconKey(i)))
	}

	err := q.Check(iconKey(5))
	require.Error(t, err)

	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, record.WidgetKey, qe.Type)
	assert.Equal(t, iconKey(5), qe.Key)
	assert.Equal(t, 6, qe.Attempt)
	assert.Equal(t, 5, qe.Limit)
	assert.Contains(t, err.Error(), "widget quota exceeded for com.example.app5/.Main")

	// Every further candidate keeps counting.
	require.Error(t, q.Check(iconKey(6)))
	assert.Equal(t, 2, q.Deferred())
}
