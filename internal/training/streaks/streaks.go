// Package streaks tracks consecutive training activity per client.
package streaks

import "time"

// maxGapDays is the largest allowed gap between two completed sessions for
// the streak to continue.
const maxGapDays = 7

type Streak struct {
	ID               int        `json:"id"`
	AthleteID        int        `json:"athleteId"`
	CurrentStreak    int        `json:"currentStreak"`
	LongestStreak    int        `json:"longestStreak"`
	LastActivityDate *time.Time `json:"lastActivityDate,omitempty"`
	FreezesUsed      int        `json:"freezesUsed"`
	FreezesAllowed   int        `json:"freezesAllowed"`
}
