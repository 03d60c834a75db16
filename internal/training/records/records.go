// Package records keeps the append-only personal record log and detects new
// records when a session is completed.
package records

import "time"

type RecordType string

const (
	RecordTypeE1RM        RecordType = "e1rm"
	RecordTypeMaxWeight   RecordType = "max_weight"
	RecordTypeMaxReps     RecordType = "max_reps"
	RecordTypeMaxDuration RecordType = "max_duration"
)

func (rt RecordType) IsValid() bool {
	switch rt {
	case RecordTypeE1RM, RecordTypeMaxWeight, RecordTypeMaxReps, RecordTypeMaxDuration:
		return true
	default:
		return false
	}
}

// PersonalRecord is one entry of a client's record history. Records are never
// updated or deleted, a new best gets a new row.
type PersonalRecord struct {
	ID         int        `json:"id"`
	AthleteID  int        `json:"athleteId"`
	ExerciseID int        `json:"exerciseId"`
	SessionID  int        `json:"sessionId"`
	RecordType RecordType `json:"recordType"`
	Value      float64    `json:"value"`
	Context    string     `json:"context,omitempty"`
	AchievedAt time.Time  `json:"achievedAt"`
}
