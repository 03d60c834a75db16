// Package sessions owns the workout session lifecycle: start from a template
// or empty, set-by-set logging, completion with its trailing side effects,
// and abandonment.
package sessions

import (
	"errors"
	"time"

	"github.com/liftlab/liftlab/internal/training/calc"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrEntryNotFound    = errors.New("session entry not found")
	ErrSetNotFound      = errors.New("set not found")
	ErrSessionCompleted = errors.New("session already completed")
	ErrNotSessionOwner  = errors.New("caller is not the session owner")
)

type SetType string

const (
	SetTypeWarmup  SetType = "warmup"
	SetTypeWorking SetType = "working"
	SetTypeDrop    SetType = "drop"
	SetTypeAmrap   SetType = "amrap"
	SetTypeFailure SetType = "failure"
)

func (st SetType) IsValid() bool {
	switch st {
	case SetTypeWarmup, SetTypeWorking, SetTypeDrop, SetTypeAmrap, SetTypeFailure:
		return true
	default:
		return false
	}
}

// Session is one workout, active until completed or deleted. A session is
// active exactly while CompletedAt is nil. Completion is terminal, a
// completed session is never mutated again.
type Session struct {
	ID              int        `json:"id"`
	AthleteID       int        `json:"athleteId"`
	TemplateID      *int       `json:"templateId,omitempty"`
	WeekNumber      *int       `json:"weekNumber,omitempty"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	TotalVolume     *float64   `json:"totalVolume,omitempty"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

func (s *Session) IsActive() bool {
	return s.CompletedAt == nil
}

// ExerciseEntry is one exercise slot of a session, ordered by OrderIndex.
// Position is the display label derived from the order index.
type ExerciseEntry struct {
	ID         int    `json:"id"`
	SessionID  int    `json:"sessionId"`
	ExerciseID int    `json:"exerciseId"`
	OrderIndex int    `json:"orderIndex"`
	Position   string `json:"position"`
	Sets       []Set  `json:"sets,omitempty"`
}

type Set struct {
	ID              int       `json:"id"`
	EntryID         int       `json:"entryId"`
	SetNumber       int       `json:"setNumber"`
	SetType         SetType   `json:"setType"`
	Weight          *float64  `json:"weight,omitempty"`
	Reps            *int      `json:"reps,omitempty"`
	DurationSeconds *int      `json:"durationSeconds,omitempty"`
	RPE             *float64  `json:"rpe,omitempty"`
	Completed       bool      `json:"completed"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (s Set) CalcSet() calc.Set {
	return calc.Set{
		Weight:    s.Weight,
		Reps:      s.Reps,
		Completed: s.Completed,
	}
}

// PositionLabel derives the display label for a 0-based order index as a
// base-26 letter sequence: 0 -> A, 25 -> Z, 26 -> AA.
func PositionLabel(orderIndex int) string {
	if orderIndex < 0 {
		orderIndex = 0
	}
	label := ""
	for {
		label = string(rune('A'+orderIndex%26)) + label
		orderIndex = orderIndex/26 - 1
		if orderIndex < 0 {
			break
		}
	}
	return label
}
