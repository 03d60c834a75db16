package records

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/liftlab/liftlab/internal/telemetry/tracing"
	"github.com/liftlab/liftlab/internal/training/calc"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type detectorRepo interface {
	Add(ctx context.Context, record *PersonalRecord) (*PersonalRecord, error)
	BestValue(ctx context.Context, athleteID, exerciseID int, recordType RecordType) (float64, bool, error)
}

// Detector compares a completed session's sets against the athlete's record
// history and appends a new record per beaten lineage.
type Detector struct {
	repo detectorRepo
}

func NewDetector(repo detectorRepo) *Detector {
	return &Detector{
		repo: repo,
	}
}

// lineage is the running best for one (exercise, record type) pair while a
// session is being scanned. Records appended earlier in the scan raise the
// bar for later sets of the same session.
type lineage struct {
	best    float64
	hasBest bool
}

func (l *lineage) beatenBy(value float64) bool {
	return !l.hasBest || value > l.best
}

func (l *lineage) raise(value float64) {
	l.best = value
	l.hasBest = true
}

// DetectFromSession scans the session's sets in logged order, once per
// completed set with both weight and reps present. The estimated one rep max
// and max weight lineages are checked independently, so a single set can
// produce zero, one or two new records. A value has to strictly beat the
// current best, matching it detects nothing. Prior records are never touched.
func (d *Detector) DetectFromSession(
	ctx context.Context,
	athleteID, sessionID int,
	completedAt time.Time,
	setsPerExercise map[int][]calc.Set,
) (_ []PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "records.detector.detect")
	span.SetAttributes(attribute.Int("athlete.id", athleteID))
	span.SetAttributes(attribute.Int("session.id", sessionID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var newRecords []PersonalRecord
	for exerciseID, sets := range setsPerExercise {
		e1rmLineage, err := d.loadLineage(ctx, athleteID, exerciseID, RecordTypeE1RM)
		if err != nil {
			return nil, fmt.Errorf("load e1rm lineage: %w", err)
		}
		weightLineage, err := d.loadLineage(ctx, athleteID, exerciseID, RecordTypeMaxWeight)
		if err != nil {
			return nil, fmt.Errorf("load max weight lineage: %w", err)
		}

		for _, s := range sets {
			if !s.Completed || s.Weight == nil || s.Reps == nil {
				continue
			}

			setContext := fmt.Sprintf("%skg x %d reps", formatWeight(*s.Weight), *s.Reps)

			if e1rm := calc.EstimateOneRepMax(*s.Weight, *s.Reps); e1rm > 0 && e1rmLineage.beatenBy(e1rm) {
				record, err := d.repo.Add(ctx, &PersonalRecord{
					AthleteID:  athleteID,
					ExerciseID: exerciseID,
					SessionID:  sessionID,
					RecordType: RecordTypeE1RM,
					Value:      e1rm,
					Context:    setContext,
					AchievedAt: completedAt,
				})
				if err != nil {
					return nil, fmt.Errorf("add e1rm record: %w", err)
				}
				e1rmLineage.raise(e1rm)
				newRecords = append(newRecords, *record)
			}

			if *s.Weight > 0 && weightLineage.beatenBy(*s.Weight) {
				record, err := d.repo.Add(ctx, &PersonalRecord{
					AthleteID:  athleteID,
					ExerciseID: exerciseID,
					SessionID:  sessionID,
					RecordType: RecordTypeMaxWeight,
					Value:      *s.Weight,
					Context:    setContext,
					AchievedAt: completedAt,
				})
				if err != nil {
					return nil, fmt.Errorf("add max weight record: %w", err)
				}
				weightLineage.raise(*s.Weight)
				newRecords = append(newRecords, *record)
			}
		}
	}

	if len(newRecords) > 0 {
		log.Debugf("session %d: detected %d new personal records", sessionID, len(newRecords))
	}

	return newRecords, nil
}

func (d *Detector) loadLineage(
	ctx context.Context,
	athleteID, exerciseID int,
	recordType RecordType,
) (*lineage, error) {
	best, found, err := d.repo.BestValue(ctx, athleteID, exerciseID, recordType)
	if err != nil {
		return nil, err
	}
	return &lineage{best: best, hasBest: found}, nil
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
