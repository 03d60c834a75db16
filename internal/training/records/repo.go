package records

import (
	"context"
	"fmt"

	"github.com/liftlab/liftlab/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, record *PersonalRecord) (_ *PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO personal_record
				(athlete_id, exercise_id, session_id, record_type, value, context, achieved_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id;`,
		record.AthleteID, record.ExerciseID, record.SessionID,
		record.RecordType, record.Value, record.Context, record.AchievedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, fmt.Errorf("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	record.ID = id
	return record, nil
}

// BestValue returns the highest recorded value for the athlete, exercise and
// record type lineage, or (0, false) when no record exists yet.
func (r *Repo) BestValue(
	ctx context.Context,
	athleteID, exerciseID int,
	recordType RecordType,
) (_ float64, _ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.bestValue")
	span.SetAttributes(attribute.Int("athlete.id", athleteID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT MAX(value)
			FROM personal_record
			WHERE athlete_id = $1 AND exercise_id = $2 AND record_type = $3;`,
		athleteID, exerciseID, recordType,
	)
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return 0, false, err
	}

	if !rows.Next() {
		return 0, false, nil
	}

	var best *float64
	if err := rows.Scan(&best); err != nil {
		return 0, false, fmt.Errorf("rows scan: %w", err)
	}
	if best == nil {
		return 0, false, nil
	}

	return *best, true, nil
}

func (r *Repo) ListForAthlete(ctx context.Context, athleteID int) (_ []PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.list")
	span.SetAttributes(attribute.Int("athlete.id", athleteID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, athlete_id, exercise_id, session_id, record_type, value, context, achieved_at
			FROM personal_record
			WHERE athlete_id = $1
			ORDER BY achieved_at DESC;`,
		athleteID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2records(rows)
}

func rows2records(rows pgx.Rows) ([]PersonalRecord, error) {
	var personalRecords []PersonalRecord
	for rows.Next() {
		var pr PersonalRecord
		var recordType string
		if err := rows.Scan(
			&pr.ID, &pr.AthleteID, &pr.ExerciseID, &pr.SessionID,
			&recordType, &pr.Value, &pr.Context, &pr.AchievedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		pr.RecordType = RecordType(recordType)
		personalRecords = append(personalRecords, pr)
	}
	return personalRecords, nil
}
