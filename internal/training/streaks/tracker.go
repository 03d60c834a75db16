package streaks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liftlab/liftlab/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type trackerRepo interface {
	Get(ctx context.Context, athleteID int) (*Streak, error)
	Add(ctx context.Context, streak *Streak) (*Streak, error)
	Update(ctx context.Context, streak *Streak) error
}

// Tracker applies completed sessions to a client's streak counters.
type Tracker struct {
	repo trackerRepo
}

func NewTracker(repo trackerRepo) *Tracker {
	return &Tracker{
		repo: repo,
	}
}

// RecordCompletion folds one completed session into the streak. The streak
// continues when at most 7 whole days passed since the last activity,
// otherwise it resets to 1. The first ever completion creates the streak row.
// Extended reports whether the current streak grew rather than reset.
func (t *Tracker) RecordCompletion(
	ctx context.Context,
	athleteID int,
	completedAt time.Time,
) (_ *Streak, extended bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "streaks.tracker.recordCompletion")
	span.SetAttributes(attribute.Int("athlete.id", athleteID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	streak, err := t.repo.Get(ctx, athleteID)
	switch {
	case errors.Is(err, ErrStreakNotFound):
		created, err := t.repo.Add(ctx, &Streak{
			AthleteID:        athleteID,
			CurrentStreak:    1,
			LongestStreak:    1,
			LastActivityDate: &completedAt,
		})
		if errors.Is(err, ErrStreakExists) {
			// lost the create race to a concurrent completion, fold into
			// the existing row instead
			streak, err = t.repo.Get(ctx, athleteID)
			if err != nil {
				return nil, false, fmt.Errorf("get streak: %w", err)
			}
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("create streak: %w", err)
		}
		log.Debugf("athlete %d: started a new streak", athleteID)
		return created, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("get streak: %w", err)
	}

	if streak.LastActivityDate == nil {
		streak.CurrentStreak = 1
		extended = false
	} else if wholeDaysBetween(*streak.LastActivityDate, completedAt) <= maxGapDays {
		streak.CurrentStreak++
		extended = true
	} else {
		streak.CurrentStreak = 1
		extended = false
	}

	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	streak.LastActivityDate = &completedAt

	if err := t.repo.Update(ctx, streak); err != nil {
		return nil, false, fmt.Errorf("update streak: %w", err)
	}

	return streak, extended, nil
}

func wholeDaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
