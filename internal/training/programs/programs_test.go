package programs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/liftlab/liftlab/internal/training/programs"
	"github.com/liftlab/liftlab/internal/training/progression"
)

func TestAssignment_CurrentWeek(t *testing.T) {
	started := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	a := programs.Assignment{
		Scheme:     progression.SchemeLinear,
		TotalWeeks: 8,
		StartedAt:  started,
	}

	assert.Equal(t, 1, a.CurrentWeek(started))
	assert.Equal(t, 1, a.CurrentWeek(started.Add(6*24*time.Hour)))
	assert.Equal(t, 2, a.CurrentWeek(started.Add(7*24*time.Hour)))
	assert.Equal(t, 4, a.CurrentWeek(started.Add(25*24*time.Hour)))

	// clamped to the program length
	assert.Equal(t, 8, a.CurrentWeek(started.Add(200*24*time.Hour)))

	// a start date in the future still resolves to the first week
	assert.Equal(t, 1, a.CurrentWeek(started.Add(-48*time.Hour)))
}

func TestTemplateExercise_NominalTargets(t *testing.T) {
	te := programs.TemplateExercise{
		TargetSets:       4,
		TargetReps:       "8-10",
		WeightDescriptor: "moderate",
		RestSeconds:      120,
	}
	assert.Equal(t, progression.Targets{
		Sets:             4,
		Reps:             "8-10",
		WeightDescriptor: "moderate",
		RestSeconds:      120,
	}, te.NominalTargets())
}
