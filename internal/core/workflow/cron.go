package workflow

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// maxCronHorizon bounds how far ahead a next run may land. A sparse or
// unsatisfiable expression whose next match lies beyond this horizon gets the
// fallback instead, trading precision for availability so the scheduler never
// stalls on one bad row.
const maxCronHorizon = 32 * 24 * time.Hour

// cronFallback is the retry delay applied on parse failure or horizon
// exhaustion.
const cronFallback = 24 * time.Hour

// standard 5-field grammar: minute hour day-of-month month day-of-week, with
// *, N, comma lists, A-B ranges and */N steps. No seconds, no @macros.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// CalculateNextRun returns the next minute boundary strictly after now that
// matches the expression. Seconds and below are truncated. On a malformed
// expression, or when no match exists within maxCronHorizon, it returns
// now + 24h and logs a warning rather than failing the schedule.
func CalculateNextRun(expr string, now time.Time) time.Time {
	base := now.Truncate(time.Minute)

	schedule, err := cronParser.Parse(expr)
	if err != nil {
		log.Warn().Str("cron", expr).Err(err).Msg("⚠️ Invalid cron expression, falling back to 24h retry")
		return base.Add(cronFallback)
	}

	next := schedule.Next(base)
	if next.IsZero() || next.Sub(base) > maxCronHorizon {
		log.Warn().Str("cron", expr).Msg("⚠️ No cron match within horizon, falling back to 24h retry")
		return base.Add(cronFallback)
	}
	return next
}
