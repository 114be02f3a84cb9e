package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleVault/internal/domain/models"
)

func fieldsFor(n int) models.FormInput {
	v := fmt.Sprintf("%d", n)
	return models.FormInput{Open: v, High: v, Low: v, Close: v, Volume: v}
}

func validOutcome() *models.ValidationOutcome {
	return &models.ValidationOutcome{Valid: true}
}

func TestSetThenGet(t *testing.T) {
	c := NewMemoryCache()
	fields := fieldsFor(1)
	out := &models.ValidationOutcome{}
	out.AddError("high", "ERR_HIGH_RANGE", "high must be >= max(open, close)")

	c.Set(fields, out)
	got, ok := c.Get(fields)
	require.True(t, ok)
	assert.Equal(t, out, got)

	_, ok = c.Get(fieldsFor(2))
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := NewMemoryCache(WithTTL(time.Minute))
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set(fieldsFor(1), validOutcome())
	_, ok := c.Get(fieldsFor(1))
	require.True(t, ok)

	c.now = func() time.Time { return base.Add(time.Minute) }
	_, ok = c.Get(fieldsFor(1))
	assert.False(t, ok, "entry at TTL must read as absent")
	assert.Equal(t, 0, c.Len(), "expired entry evicted on access")
}

func TestCapacityEvictsLowestScore(t *testing.T) {
	c := NewMemoryCache(WithCapacity(3))
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set(fieldsFor(1), validOutcome())
	c.Set(fieldsFor(2), validOutcome())
	c.Set(fieldsFor(3), validOutcome())

	// Touch 1 and 2 so entry 3 holds the lowest composite score.
	_, _ = c.Get(fieldsFor(1))
	_, _ = c.Get(fieldsFor(2))

	c.Set(fieldsFor(4), validOutcome())
	assert.Equal(t, 3, c.Len())

	_, ok := c.Get(fieldsFor(3))
	assert.False(t, ok, "least-used entry should have been evicted")
	_, ok = c.Get(fieldsFor(1))
	assert.True(t, ok)
	_, ok = c.Get(fieldsFor(4))
	assert.True(t, ok)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := NewMemoryCache(WithCapacity(2))
	c.Set(fieldsFor(1), validOutcome())
	c.Set(fieldsFor(2), validOutcome())
	c.Set(fieldsFor(1), validOutcome())
	assert.Equal(t, 2, c.Len())
}

func TestKeyIsExactTuple(t *testing.T) {
	a := models.FormInput{Open: "1", High: "2", Low: "3", Close: "4", Volume: "5"}
	b := models.FormInput{Open: "1", High: "2", Low: "3", Close: "45", Volume: ""}
	assert.NotEqual(t, Key(a), Key(b))
}
