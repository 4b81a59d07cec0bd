package demo

import "time"

type quotaDecision int

const (
	quotaAllow quotaDecision = iota
	quotaReset
	quotaDeny
)

// evaluateQuota applies the rolling-window policy to one quota record.
//
// Once a full reset period has elapsed since the last reset, the record is
// reset unconditionally, even when usage is already zero or under the limit;
// the stores persist that reset as part of the same transaction. Otherwise a
// record at or over its limit is denied along with the time remaining until
// the window rolls over.
func evaluateQuota(now time.Time, used, limit int, lastReset time.Time, resetPeriod time.Duration) (quotaDecision, time.Duration) {
	elapsed := now.Sub(lastReset)
	if elapsed >= resetPeriod {
		return quotaReset, 0
	}
	if used >= limit {
		return quotaDeny, resetPeriod - elapsed
	}
	return quotaAllow, 0
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
