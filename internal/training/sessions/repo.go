package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// AddSession inserts the session and its materialized entries in one
// transaction, so a failed materialization never leaves an empty session
// behind.
func (r *Repo) AddSession(ctx context.Context, session *Session, entries []ExerciseEntry) (_ *Session, _ []ExerciseEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO workout_session (athlete_id, template_id, week_number, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		session.AthleteID,
		session.TemplateID,
		session.WeekNumber,
		session.StartedAt,
	).Scan(&session.ID)
	if err != nil {
		return nil, nil, err
	}

	for i := range entries {
		entries[i].SessionID = session.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO session_entry (session_id, exercise_id, order_index, position)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`,
			entries[i].SessionID,
			entries[i].ExerciseID,
			entries[i].OrderIndex,
			entries[i].Position,
		).Scan(&entries[i].ID)
		if err != nil {
			return nil, nil, fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	return session, entries, nil
}

func (r *Repo) GetSession(ctx context.Context, id int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.get")
	span.SetAttributes(attribute.Int("session.id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session := &Session{}
	err = r.db.
		QueryRow(ctx, `
			SELECT id, athlete_id, template_id, week_number, started_at,
				completed_at, total_volume, duration_seconds, notes
			FROM workout_session
			WHERE id = $1
		`, id).
		Scan(
			&session.ID, &session.AthleteID, &session.TemplateID, &session.WeekNumber,
			&session.StartedAt, &session.CompletedAt, &session.TotalVolume,
			&session.DurationSeconds, &session.Notes,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// GetEntries returns the session's entries in order, each with its sets
// ordered by set number.
func (r *Repo) GetEntries(ctx context.Context, sessionID int) (_ []ExerciseEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.getEntries")
	span.SetAttributes(attribute.Int("session.id", sessionID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, session_id, exercise_id, order_index, position
			FROM session_entry
			WHERE session_id = $1
			ORDER BY order_index;`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var entries []ExerciseEntry
	for rows.Next() {
		var e ExerciseEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ExerciseID, &e.OrderIndex, &e.Position); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()

	for i := range entries {
		entries[i].Sets, err = r.getSets(ctx, entries[i].ID)
		if err != nil {
			return nil, fmt.Errorf("get sets for entry %d: %w", entries[i].ID, err)
		}
	}

	return entries, nil
}

func (r *Repo) getSets(ctx context.Context, entryID int) ([]Set, error) {
	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, entry_id, set_number, set_type, weight, reps,
				duration_seconds, rpe, completed, created_at
			FROM exercise_set
			WHERE entry_id = $1
			ORDER BY set_number;`,
		entryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2sets(rows)
}

func (r *Repo) AddEntry(ctx context.Context, entry *ExerciseEntry) (_ *ExerciseEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.addEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(ctx, `
		INSERT INTO session_entry (session_id, exercise_id, order_index, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		entry.SessionID, entry.ExerciseID, entry.OrderIndex, entry.Position,
	).Scan(&entry.ID)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// NextOrderIndex returns the 0-based order index for a new entry, one past
// the session's current last entry.
func (r *Repo) NextOrderIndex(ctx context.Context, sessionID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.nextOrderIndex")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var next int
	err = r.db.
		QueryRow(ctx, `
			SELECT COALESCE(MAX(order_index) + 1, 0)
			FROM session_entry
			WHERE session_id = $1
		`, sessionID).
		Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *Repo) AddSet(ctx context.Context, set *Set) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.addSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(ctx, `
		INSERT INTO exercise_set
			(entry_id, set_number, set_type, weight, reps, duration_seconds, rpe, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		set.EntryID, set.SetNumber, set.SetType, set.Weight, set.Reps,
		set.DurationSeconds, set.RPE, set.Completed, set.CreatedAt,
	).Scan(&set.ID)
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (r *Repo) GetSet(ctx context.Context, id int) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.getSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	set := &Set{}
	var setType string
	err = r.db.
		QueryRow(ctx, `
			SELECT id, entry_id, set_number, set_type, weight, reps,
				duration_seconds, rpe, completed, created_at
			FROM exercise_set
			WHERE id = $1
		`, id).
		Scan(
			&set.ID, &set.EntryID, &set.SetNumber, &setType, &set.Weight, &set.Reps,
			&set.DurationSeconds, &set.RPE, &set.Completed, &set.CreatedAt,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}
	set.SetType = SetType(setType)
	return set, nil
}

func (r *Repo) UpdateSet(ctx context.Context, set *Set) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.updateSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise_set SET
				set_number = $1, set_type = $2, weight = $3, reps = $4,
				duration_seconds = $5, rpe = $6, completed = $7
			WHERE id = $8;`,
		set.SetNumber, set.SetType, set.Weight, set.Reps,
		set.DurationSeconds, set.RPE, set.Completed, set.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}
	return nil
}

// GetSessionForEntry resolves the owning session of an entry.
func (r *Repo) GetSessionForEntry(ctx context.Context, entryID int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.getForEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session := &Session{}
	err = r.db.
		QueryRow(ctx, `
			SELECT s.id, s.athlete_id, s.template_id, s.week_number, s.started_at,
				s.completed_at, s.total_volume, s.duration_seconds, s.notes
			FROM workout_session s
				JOIN session_entry e ON e.session_id = s.id
			WHERE e.id = $1
		`, entryID).
		Scan(
			&session.ID, &session.AthleteID, &session.TemplateID, &session.WeekNumber,
			&session.StartedAt, &session.CompletedAt, &session.TotalVolume,
			&session.DurationSeconds, &session.Notes,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return session, nil
}

// GetSessionForSet resolves the owning session of a set.
func (r *Repo) GetSessionForSet(ctx context.Context, setID int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.getForSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session := &Session{}
	err = r.db.
		QueryRow(ctx, `
			SELECT s.id, s.athlete_id, s.template_id, s.week_number, s.started_at,
				s.completed_at, s.total_volume, s.duration_seconds, s.notes
			FROM workout_session s
				JOIN session_entry e ON e.session_id = s.id
				JOIN exercise_set es ON es.entry_id = e.id
			WHERE es.id = $1
		`, setID).
		Scan(
			&session.ID, &session.AthleteID, &session.TemplateID, &session.WeekNumber,
			&session.StartedAt, &session.CompletedAt, &session.TotalVolume,
			&session.DurationSeconds, &session.Notes,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}
	return session, nil
}

func (r *Repo) CompleteSession(
	ctx context.Context,
	id int,
	completedAt time.Time,
	totalVolume float64,
	durationSeconds int,
	notes *string,
) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.complete")
	span.SetAttributes(attribute.Int("session.id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_session SET
				completed_at = $1, total_volume = $2, duration_seconds = $3, notes = $4
			WHERE id = $5 AND completed_at IS NULL;`,
		completedAt, totalVolume, durationSeconds, notes, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes the session with all owned entries and sets in one
// transaction.
func (r *Repo) DeleteSession(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.delete")
	span.SetAttributes(attribute.Int("session.id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, `
		DELETE FROM exercise_set
		WHERE entry_id IN (SELECT id FROM session_entry WHERE session_id = $1)
	`, id); err != nil {
		return fmt.Errorf("delete sets: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM session_entry WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM workout_session WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *Repo) ListForAthlete(ctx context.Context, athleteID, limit int) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.list")
	span.SetAttributes(attribute.Int("athlete.id", athleteID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, athlete_id, template_id, week_number, started_at,
				completed_at, total_volume, duration_seconds, notes
			FROM workout_session
			WHERE athlete_id = $1
			ORDER BY started_at DESC
			LIMIT $2;`,
		athleteID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2sessions(rows)
}

func rows2sessions(rows pgx.Rows) ([]Session, error) {
	var sessionsList []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.ID, &s.AthleteID, &s.TemplateID, &s.WeekNumber, &s.StartedAt,
			&s.CompletedAt, &s.TotalVolume, &s.DurationSeconds, &s.Notes,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		sessionsList = append(sessionsList, s)
	}
	return sessionsList, nil
}

func rows2sets(rows pgx.Rows) ([]Set, error) {
	var sets []Set
	for rows.Next() {
		var s Set
		var setType string
		if err := rows.Scan(
			&s.ID, &s.EntryID, &s.SetNumber, &setType, &s.Weight, &s.Reps,
			&s.DurationSeconds, &s.RPE, &s.Completed, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		s.SetType = SetType(setType)
		sets = append(sets, s)
	}
	return sets, nil
}
