// Package progression computes week-adjusted exercise targets from a
// program's overload scheme and a client's baseline starting load.
package progression

import (
	"fmt"
	"math"
)

// Scheme is the closed set of program-level overload policies.
type Scheme string

const (
	// SchemeNone passes nominal targets through unchanged
	SchemeNone Scheme = "none"
	// SchemeLinear adds a fixed fraction of the baseline every week
	SchemeLinear Scheme = "linear"
	// SchemeWave rides the linear ramp with a 3-week heavy/medium/light wave
	SchemeWave Scheme = "wave"
)

const (
	linearWeeklyIncrease = 0.025 // fraction of baseline added per elapsed week
)

// wave intensity multipliers, by (week-1) % 3
var wavePhases = [3]float64{1.0, 0.925, 0.85}

var wavePhaseNames = [3]string{"heavy", "medium", "light"}

func (s Scheme) IsValid() bool {
	switch s {
	case SchemeNone, SchemeLinear, SchemeWave:
		return true
	default:
		return false
	}
}

// Targets are the template's un-adjusted targets for one exercise.
type Targets struct {
	Sets             int    `json:"sets"`
	Reps             string `json:"reps"`
	WeightDescriptor string `json:"weightDescriptor"`
	RestSeconds      int    `json:"restSeconds"`
}

// Result carries the week-adjusted targets. Weight is 0 when no numeric
// target could be derived (identity scheme or missing baseline), in which
// case SuggestedDelta may describe the intended week-over-week change.
type Result struct {
	Targets
	Weight         float64 `json:"weight,omitempty"`
	Note           string  `json:"note,omitempty"`
	SuggestedDelta string  `json:"suggestedDelta,omitempty"`
}

// Apply computes the week-adjusted targets. It is pure: same inputs always
// yield the same output, no I/O, no errors. A missing baseline degrades to
// the nominal targets. weekNumber outside [1, totalWeeks] is clamped,
// totalWeeks <= 0 falls back to the identity transform.
func Apply(
	nominal Targets,
	weekNumber int,
	scheme Scheme,
	totalWeeks int,
	startingWeight float64,
) Result {
	if scheme == SchemeNone || !scheme.IsValid() || totalWeeks <= 0 {
		return Result{Targets: nominal}
	}

	if weekNumber < 1 {
		weekNumber = 1
	}
	if weekNumber > totalWeeks {
		weekNumber = totalWeeks
	}

	if startingWeight <= 0 {
		return Result{
			Targets:        nominal,
			SuggestedDelta: suggestedDelta(scheme, weekNumber),
		}
	}

	ramp := 1 + linearWeeklyIncrease*float64(weekNumber-1)

	switch scheme {
	case SchemeLinear:
		weight := roundTenth(startingWeight * ramp)
		return Result{
			Targets: nominal,
			Weight:  weight,
			Note: fmt.Sprintf(
				"Week %d of %d — +%s%% from baseline",
				weekNumber, totalWeeks, trimPercent((ramp-1)*100),
			),
		}
	case SchemeWave:
		phase := (weekNumber - 1) % 3
		weight := roundTenth(startingWeight * ramp * wavePhases[phase])
		return Result{
			Targets: nominal,
			Weight:  weight,
			Note: fmt.Sprintf(
				"Week %d of %d — %s wave week at %s%% of ramped baseline",
				weekNumber, totalWeeks, wavePhaseNames[phase], trimPercent(wavePhases[phase]*100),
			),
		}
	default:
		return Result{Targets: nominal}
	}
}

func suggestedDelta(scheme Scheme, weekNumber int) string {
	switch scheme {
	case SchemeLinear:
		return "+2.5% per week"
	case SchemeWave:
		phase := (weekNumber - 1) % 3
		return fmt.Sprintf("+2.5%% per week, %s wave week", wavePhaseNames[phase])
	default:
		return ""
	}
}

func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}

// trimPercent formats a percentage with one decimal, dropping a trailing .0
func trimPercent(p float64) string {
	rounded := roundTenth(p)
	if rounded == math.Trunc(rounded) {
		return fmt.Sprintf("%.0f", rounded)
	}
	return fmt.Sprintf("%.1f", rounded)
}
