package programs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/liftlab/liftlab/internal/telemetry/tracing"
	"github.com/liftlab/liftlab/internal/training/progression"

	"github.com/coocood/freecache"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrTemplateNotFound   = errors.New("workout template not found")
	ErrAssignmentNotFound = errors.New("program assignment not found")
	ErrExerciseNotFound   = errors.New("exercise not found")
)

const (
	megabyte            = 1024 * 1024
	templateCacheExpire = 60 * 5 // seconds
)

type Repo struct {
	db    *pgxpool.Pool
	cache *freecache.Cache
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db:    db,
		cache: freecache.NewCache(10 * megabyte),
	}
}

// GetTemplate returns a workout template with its exercise slots ordered by
// position. Templates change rarely and are read on every session start, so
// they are cached for a few minutes.
func (r *Repo) GetTemplate(ctx context.Context, id int) (_ *WorkoutTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.programs.getTemplate")
	span.SetAttributes(attribute.Int("template.id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := []byte(fmt.Sprintf("template::%d", id))
	if templateBytes, err := r.cache.Get(cacheKey); err == nil {
		var template WorkoutTemplate
		if err = json.Unmarshal(templateBytes, &template); err == nil {
			log.Tracef("found workout template %d in cache", id)
			return &template, nil
		}
		log.Errorf("failed to unmarshal cached workout template %d: %s", id, err)
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				wt.id, wt.trainer_id, wt.name, wt.created_at
			FROM workout_template wt
			WHERE wt.id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrTemplateNotFound
	}

	var template WorkoutTemplate
	if err := rows.Scan(
		&template.ID, &template.TrainerID, &template.Name, &template.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}
	rows.Close()

	template.Exercises, err = r.templateExercises(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get template exercises: %w", err)
	}

	if templateBytes, err := json.Marshal(template); err == nil {
		if err := r.cache.Set(cacheKey, templateBytes, templateCacheExpire); err != nil {
			log.Errorf("failed to cache workout template %d: %s", id, err)
		}
	}

	return &template, nil
}

func (r *Repo) templateExercises(ctx context.Context, templateID int) ([]TemplateExercise, error) {
	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				te.id, te.exercise_id, e.name, te.position,
				te.target_sets, te.target_reps, te.weight_descriptor, te.rest_seconds
			FROM template_exercise te
				JOIN exercise e ON e.id = te.exercise_id
			WHERE te.template_id = $1
			ORDER BY te.position;`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2templateExercises(rows)
}

// GetAssignmentForAthlete returns the client's active program assignment,
// i.e. the most recently started one.
func (r *Repo) GetAssignmentForAthlete(ctx context.Context, athleteID int) (_ *Assignment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.programs.getAssignment")
	span.SetAttributes(attribute.Int("athlete.id", athleteID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, template_id, athlete_id, trainer_id, scheme, total_weeks, started_at
			FROM program_assignment
			WHERE athlete_id = $1
			ORDER BY started_at DESC
			LIMIT 1;`,
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
		return nil, ErrAssignmentNotFound
	}

	var a Assignment
	var scheme string
	if err := rows.Scan(
		&a.ID, &a.TemplateID, &a.AthleteID, &a.TrainerID, &scheme, &a.TotalWeeks, &a.StartedAt,
	); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}
	a.Scheme = progression.Scheme(scheme)

	return &a, nil
}

// GetBaselines returns the client's starting weights keyed by exercise id.
// Clients without recorded baselines get an empty map.
func (r *Repo) GetBaselines(ctx context.Context, athleteID int) (_ map[int]float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.programs.getBaselines")
	span.SetAttributes(attribute.Int("athlete.id", athleteID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT exercise_id, starting_weight
			FROM exercise_baseline
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

	baselines := make(map[int]float64)
	for rows.Next() {
		var exerciseID int
		var startingWeight float64
		if err := rows.Scan(&exerciseID, &startingWeight); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		baselines[exerciseID] = startingWeight
	}

	return baselines, nil
}

func (r *Repo) GetExercise(ctx context.Context, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.programs.getExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, muscle_group, equipment FROM exercise WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrExerciseNotFound
	}

	var e Exercise
	if err := rows.Scan(&e.ID, &e.Name, &e.MuscleGroup, &e.Equipment); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &e, nil
}

func rows2templateExercises(rows pgx.Rows) ([]TemplateExercise, error) {
	var exercises []TemplateExercise
	for rows.Next() {
		var te TemplateExercise
		if err := rows.Scan(
			&te.ID, &te.ExerciseID, &te.ExerciseName, &te.Position,
			&te.TargetSets, &te.TargetReps, &te.WeightDescriptor, &te.RestSeconds,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		exercises = append(exercises, te)
	}
	return exercises, nil
}
