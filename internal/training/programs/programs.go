// Package programs holds the training program side of the portal: workout
// templates authored by trainers, program assignments that bind a client to
// a template, and per-exercise baselines used by the progression engine.
package programs

import (
	"time"

	"github.com/liftlab/liftlab/internal/training/progression"
)

type Exercise struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	MuscleGroup string `json:"muscleGroup"`
	Equipment   string `json:"equipment,omitempty"`
}

type WorkoutTemplate struct {
	ID        int                `json:"id"`
	TrainerID int                `json:"trainerId"`
	Name      string             `json:"name"`
	Exercises []TemplateExercise `json:"exercises"`
	CreatedAt time.Time          `json:"createdAt"`
}

// TemplateExercise is one slot of a workout template, ordered by Position.
type TemplateExercise struct {
	ID               int    `json:"id"`
	ExerciseID       int    `json:"exerciseId"`
	ExerciseName     string `json:"exerciseName"`
	Position         int    `json:"position"`
	TargetSets       int    `json:"targetSets"`
	TargetReps       string `json:"targetReps"`
	WeightDescriptor string `json:"weightDescriptor,omitempty"`
	RestSeconds      int    `json:"restSeconds"`
}

func (te TemplateExercise) NominalTargets() progression.Targets {
	return progression.Targets{
		Sets:             te.TargetSets,
		Reps:             te.TargetReps,
		WeightDescriptor: te.WeightDescriptor,
		RestSeconds:      te.RestSeconds,
	}
}

// Assignment binds a client to a template for a number of weeks, with the
// overload scheme the progression engine applies on top of the template.
type Assignment struct {
	ID         int                `json:"id"`
	TemplateID int                `json:"templateId"`
	AthleteID  int                `json:"athleteId"`
	TrainerID  int                `json:"trainerId"`
	Scheme     progression.Scheme `json:"scheme"`
	TotalWeeks int                `json:"totalWeeks"`
	StartedAt  time.Time          `json:"startedAt"`
}

// CurrentWeek derives the 1-based program week from elapsed time since the
// assignment start, clamped to [1, TotalWeeks].
func (a Assignment) CurrentWeek(now time.Time) int {
	week := int(now.Sub(a.StartedAt).Hours()/(24*7)) + 1
	if week < 1 {
		week = 1
	}
	if a.TotalWeeks > 0 && week > a.TotalWeeks {
		week = a.TotalWeeks
	}
	return week
}

// Baseline is a client's known starting working weight for one exercise.
type Baseline struct {
	ID             int       `json:"id"`
	AthleteID      int       `json:"athleteId"`
	ExerciseID     int       `json:"exerciseId"`
	StartingWeight float64   `json:"startingWeight"`
	RecordedAt     time.Time `json:"recordedAt"`
}
