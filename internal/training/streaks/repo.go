package streaks

import (
	"context"
	"errors"
	"fmt"

	"github.com/liftlab/liftlab/internal/telemetry/tracing"
	"github.com/liftlab/liftlab/pkg"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrStreakNotFound = errors.New("streak not found")
	ErrStreakExists   = errors.New("streak already exists")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Get(ctx context.Context, athleteID int) (_ *Streak, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streaks.get")
	span.SetAttributes(attribute.Int("athlete.id", athleteID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, athlete_id, current_streak, longest_streak,
				last_activity_date, freezes_used, freezes_allowed
			FROM streak
			WHERE athlete_id = $1;`,
		athleteID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrStreakNotFound
	}

	var s Streak
	if err := rows.Scan(
		&s.ID, &s.AthleteID, &s.CurrentStreak, &s.LongestStreak,
		&s.LastActivityDate, &s.FreezesUsed, &s.FreezesAllowed,
	); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &s, nil
}

func (r *Repo) Add(ctx context.Context, streak *Streak) (_ *Streak, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streaks.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO streak
				(athlete_id, current_streak, longest_streak, last_activity_date, freezes_used, freezes_allowed)
				VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;`,
		streak.AthleteID, streak.CurrentStreak, streak.LongestStreak,
		streak.LastActivityDate, streak.FreezesUsed, streak.FreezesAllowed,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrStreakExists
		}
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrStreakExists
		}
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	streak.ID = id
	return streak, nil
}

func (r *Repo) Update(ctx context.Context, streak *Streak) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.streaks.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE streak SET
				current_streak = $1, longest_streak = $2, last_activity_date = $3,
				freezes_used = $4, freezes_allowed = $5
			WHERE id = $6;`,
		streak.CurrentStreak, streak.LongestStreak, streak.LastActivityDate,
		streak.FreezesUsed, streak.FreezesAllowed, streak.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrStreakNotFound
	}

	return nil
}
