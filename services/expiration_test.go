package services

import (
	"testing"
	"time"

	"comply/models/competency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiryDate(t *testing.T) {
	completed := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("yearly expires one year out", func(t *testing.T) {
		got := ExpiryDate(competency.ExpirationYearly, completed)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2027, 3, 15, 10, 0, 0, 0, time.UTC), *got)
	})

	t.Run("biannual expires two years out", func(t *testing.T) {
		got := ExpiryDate(competency.ExpirationBiannual, completed)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2028, 3, 15, 10, 0, 0, 0, time.UTC), *got)
	})

	t.Run("one-time never expires", func(t *testing.T) {
		assert.Nil(t, ExpiryDate(competency.ExpirationOneTime, completed))
	})

	t.Run("unset never expires", func(t *testing.T) {
		assert.Nil(t, ExpiryDate("", completed))
	})
}

func TestCeilPercent(t *testing.T) {
	assert.Equal(t, 75, ceilPercent(3, 4))
	assert.Equal(t, 67, ceilPercent(2, 3)) // rounds up, never down
	assert.Equal(t, 100, ceilPercent(5, 5))
	assert.Equal(t, 0, ceilPercent(0, 10))
	assert.Equal(t, 0, ceilPercent(1, 0))
}
