package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateNextRunEveryMinute(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 37, 42, 500, time.UTC)

	next := CalculateNextRun("* * * * *", now)

	// the next whole minute, seconds and below truncated
	assert.Equal(t, time.Date(2026, 8, 30, 14, 38, 0, 0, time.UTC), next)
}

func TestCalculateNextRunQuarterHourSteps(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 3, 11, 0, time.UTC)

	for i := 0; i < 6; i++ {
		next := CalculateNextRun("*/15 * * * *", now)
		assert.Equal(t, 0, next.Minute()%15, "next run minute must be divisible by 15, got %v", next)
		assert.True(t, next.After(now.Truncate(time.Minute)))
		now = next
	}
}

func TestCalculateNextRunDailyAtSix(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 30, 0, 0, time.UTC)

	next := CalculateNextRun("0 6 * * *", now)

	assert.Equal(t, time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC), next)
}

func TestCalculateNextRunRangeAndList(t *testing.T) {
	now := time.Date(2026, 8, 28, 23, 50, 0, 0, time.UTC) // Friday

	// weekdays at 8:00 and 17:00
	next := CalculateNextRun("0 8,17 * * 1-5", now)

	assert.Equal(t, time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC), next) // Monday 08:00
}

func TestCalculateNextRunInvalidExpressionFallsBack(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 30, 0, time.UTC)

	next := CalculateNextRun("not a cron", now)

	assert.Equal(t, now.Truncate(time.Minute).Add(24*time.Hour), next)
}

func TestCalculateNextRunSixFieldExpressionRejected(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// seconds field is not part of the grammar
	next := CalculateNextRun("0 0 6 * * *", now)

	assert.Equal(t, now.Add(24*time.Hour), next)
}
