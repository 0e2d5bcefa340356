package progress

import (
	"sort"
	"time"
)

// streakGraceDays is how stale the most recent activity may be before the
// running streak is considered broken.
const streakGraceDays = 2

// Streak counts consecutive calendar days of activity ending at the most
// recent activity date. The streak only counts while that date is within
// the grace window of today; once activity goes stale the streak is 0 and
// the next recorded activity starts over at 1.
func Streak(activity []time.Time, today time.Time) int {
	if len(activity) == 0 {
		return 0
	}

	seen := make(map[string]time.Time, len(activity))
	for _, ts := range activity {
		day := dayOf(ts)
		seen[day.Format("2006-01-02")] = day
	}
	days := make([]time.Time, 0, len(seen))
	for _, day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	if dayOf(today).Sub(days[0]) > streakGraceDays*24*time.Hour {
		return 0
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) != 24*time.Hour {
			break
		}
		streak++
	}
	return streak
}

func dayOf(ts time.Time) time.Time {
	t := ts.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
