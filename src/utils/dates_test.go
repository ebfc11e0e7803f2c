package utils_test

import (
	"testing"
	"time"

	"ledger/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDates(t *testing.T) {
	t.Run("should truncate to the UTC calendar day", func(t *testing.T) {
		got := utils.Day(time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("should count days across a leap year", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 366, utils.DaysBetween(start, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, -1, utils.DaysBetween(start, utils.AddDays(start, -1)))
		assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), utils.AddDays(start, 59))
	})

	t.Run("should count spans longer than a time.Duration can hold", func(t *testing.T) {
		first := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 3652058, utils.DaysBetween(first, last))
		assert.Equal(t, -3652058, utils.DaysBetween(last, first))
		assert.Equal(t, 118338, utils.DaysBetween(time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)))
	})

	t.Run("should parse yyyy-mm-dd and reject anything else", func(t *testing.T) {
		d, err := utils.ParseDay("2024-02-29")
		require.NoError(t, err)
		assert.Equal(t, 29, d.Day())

		_, err = utils.ParseDay("29/02/2024")
		require.ErrorIs(t, err, utils.ErrInvalidDate)
	})

	t.Run("should pick the earlier and later day", func(t *testing.T) {
		a := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
		b := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
		assert.Equal(t, utils.Day(a), utils.MinDay(a, b))
		assert.Equal(t, utils.Day(b), utils.MaxDay(b, a))
	})

	t.Run("should generate every day inclusively", func(t *testing.T) {
		dates, err := utils.GenerateDates(time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, dates, 4)
		assert.Equal(t, 29, dates[2].Day())

		_, err = utils.GenerateDates(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
		require.Error(t, err)
	})
}

func TestDecimals(t *testing.T) {
	t.Run("should not divide by zero", func(t *testing.T) {
		assert.True(t, utils.SafeDiv(decimalOf("5"), decimalOf("0")).IsZero())
		assert.True(t, utils.Percent(decimalOf("5"), decimalOf("0")).IsZero())
		assert.Equal(t, "25", utils.Percent(decimalOf("1"), decimalOf("4")).String())
	})

	t.Run("should clamp negatives to zero", func(t *testing.T) {
		assert.True(t, utils.ClampZero(decimalOf("-0.01")).IsZero())
		assert.Equal(t, "3", utils.ClampZero(decimalOf("3")).String())
	})
}

func TestGenerateUUID(t *testing.T) {
	t.Run("should be deterministic per input", func(t *testing.T) {
		assert.Equal(t, utils.GenerateUUID("p", "a"), utils.GenerateUUID("p", "a"))
		assert.NotEqual(t, utils.GenerateUUID("p", "a"), utils.GenerateUUID("p", "b"))
		assert.NotEqual(t, utils.GenerateUUID("pa", ""), utils.GenerateUUID("p", "a"))
	})
}
