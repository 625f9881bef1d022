package engine

import (
	"fmt"

	"github.com/roach88/homesync/internal/record"
)

// QuotaEnforcer bounds the number of new resource candidates one pass may
// process for a single key type.
//
// Each pass creates one enforcer per resource type. Candidates already in
// the prior journal do not consume quota; deletion detection never does.
type QuotaEnforcer struct {
	keyType record.KeyType
	limit   int
	current int
}

// NewQuotaEnforcer creates an enforcer allowing limit candidates of keyType.
func NewQuotaEnforcer(keyType record.KeyType, limit int) *QuotaEnforcer {
	return &QuotaEnforcer{keyType: keyType, limit: limit}
}

// Check counts one candidate and reports whether it fits in the quota.
//
// Returns QuotaExceededError once the limit has been reached; the candidate
// must then be deferred to a later pass.
func (q *QuotaEnforcer) Check(key record.Key) error {
	q.current++
	if q.current > q.limit {
		return &QuotaExceededError{
			Type:    q.keyType,
			Key:     key,
			Attempt: q.current,
			Limit:   q.limit,
		}
	}
	return nil
}

// Current returns the number of candidates counted so far, including
// deferred ones.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// Limit returns the per-pass limit.
func (q *QuotaEnforcer) Limit() int {
	return q.limit
}

// Deferred returns how many counted candidates exceeded the limit.
func (q *QuotaEnforcer) Deferred() int {
	if q.current <= q.limit {
		return 0
	}
	return q.current - q.limit
}

// QuotaExceededError reports a candidate that did not fit in this pass.
type QuotaExceededError struct {
	Type    record.KeyType
	Key     record.Key
	Attempt int
	Limit   int
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded for %s: candidate %d > %d limit",
		e.Type, e.Key.DisplayName(), e.Attempt, e.Limit)
}
