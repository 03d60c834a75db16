// Package calc holds the pure numeric conventions of the training engine:
// estimated one-rep-max and total session volume.
package calc

import "math"

// Set is the minimal slice of an exercise set the calculator needs.
// Weight and Reps are optional, bodyweight or time-based sets leave them nil.
type Set struct {
	Weight    *float64
	Reps      *int
	Completed bool
}

// EstimateOneRepMax estimates the one-rep-max from a single sub-maximal set
// using the Epley formula: weight * (1 + reps/30). The result is a relative
// ranking signal, not an absolute guarantee, rounded to one decimal place.
// Returns 0 for non-positive weight or reps.
func EstimateOneRepMax(weight float64, reps int) float64 {
	if weight <= 0 || reps <= 0 {
		return 0
	}
	if reps == 1 {
		return weight
	}
	e1rm := weight * (1 + float64(reps)/30.0)
	return math.Round(e1rm*10) / 10
}

// TotalVolume sums weight x reps over completed sets. Sets missing either
// value are skipped, an empty or all-incomplete collection yields 0.
func TotalVolume(sets []Set) float64 {
	var total float64
	for _, s := range sets {
		if !s.Completed || s.Weight == nil || s.Reps == nil {
			continue
		}
		total += *s.Weight * float64(*s.Reps)
	}
	return total
}
