package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liftlab/liftlab/internal/auth"
	"github.com/liftlab/liftlab/internal/telemetry/metrics"
	"github.com/liftlab/liftlab/internal/telemetry/tracing"
	"github.com/liftlab/liftlab/internal/training/calc"
	"github.com/liftlab/liftlab/internal/training/programs"
	"github.com/liftlab/liftlab/internal/training/progression"
	"github.com/liftlab/liftlab/internal/training/records"
	"github.com/liftlab/liftlab/internal/training/streaks"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type sessionsRepo interface {
	AddSession(ctx context.Context, session *Session, entries []ExerciseEntry) (*Session, []ExerciseEntry, error)
	GetSession(ctx context.Context, id int) (*Session, error)
	GetEntries(ctx context.Context, sessionID int) ([]ExerciseEntry, error)
	AddEntry(ctx context.Context, entry *ExerciseEntry) (*ExerciseEntry, error)
	NextOrderIndex(ctx context.Context, sessionID int) (int, error)
	AddSet(ctx context.Context, set *Set) (*Set, error)
	GetSet(ctx context.Context, id int) (*Set, error)
	UpdateSet(ctx context.Context, set *Set) error
	GetSessionForEntry(ctx context.Context, entryID int) (*Session, error)
	GetSessionForSet(ctx context.Context, setID int) (*Session, error)
	CompleteSession(ctx context.Context, id int, completedAt time.Time, totalVolume float64, durationSeconds int, notes *string) error
	DeleteSession(ctx context.Context, id int) error
	ListForAthlete(ctx context.Context, athleteID, limit int) ([]Session, error)
}

type programsRepo interface {
	GetTemplate(ctx context.Context, id int) (*programs.WorkoutTemplate, error)
	GetAssignmentForAthlete(ctx context.Context, athleteID int) (*programs.Assignment, error)
	GetBaselines(ctx context.Context, athleteID int) (map[int]float64, error)
	GetExercise(ctx context.Context, id int) (*programs.Exercise, error)
}

type recordsDetector interface {
	DetectFromSession(ctx context.Context, athleteID, sessionID int, completedAt time.Time, setsPerExercise map[int][]calc.Set) ([]records.PersonalRecord, error)
}

type streakTracker interface {
	RecordCompletion(ctx context.Context, athleteID int, completedAt time.Time) (*streaks.Streak, bool, error)
}

// Service drives the session state machine. A session is active until
// completed or deleted, completion is terminal.
type Service struct {
	repo     sessionsRepo
	programs programsRepo
	detector recordsDetector
	tracker  streakTracker
	metrics  *metrics.Manager

	// injectable for tests
	now func() time.Time
}

func NewService(
	repo sessionsRepo,
	programsRepo programsRepo,
	detector recordsDetector,
	tracker streakTracker,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		repo:     repo,
		programs: programsRepo,
		detector: detector,
		tracker:  tracker,
		metrics:  metricsManager,
		now:      time.Now,
	}
}

type StartParams struct {
	TemplateID *int `json:"templateId,omitempty"`
	WeekNumber *int `json:"weekNumber,omitempty"`
}

// StartResult carries everything the client needs to apply progression
// before the first render.
type StartResult struct {
	Session    *Session           `json:"session"`
	Entries    []ExerciseEntry    `json:"entries"`
	WeekNumber int                `json:"weekNumber"`
	Scheme     progression.Scheme `json:"scheme"`
	TotalWeeks int                `json:"totalWeeks"`
	Baselines  map[int]float64    `json:"baselines"`
}

// Start creates a new active session for the caller. With a template id the
// session is materialized from the template in template order, the week
// number comes from the explicit argument or from elapsed time since the
// caller's program assignment started. Without a template the session starts
// empty, a quick workout.
func (s *Service) Start(ctx context.Context, caller auth.Caller, params StartParams) (_ *StartResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.start")
	span.SetAttributes(attribute.Int("athlete.id", caller.UserID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	result := &StartResult{
		Scheme:    progression.SchemeNone,
		Baselines: map[int]float64{},
	}

	session := &Session{
		AthleteID: caller.UserID,
		StartedAt: s.now(),
	}

	var entries []ExerciseEntry
	if params.TemplateID != nil {
		template, err := s.programs.GetTemplate(ctx, *params.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("get template: %w", err)
		}

		weekNumber := 1
		assignment, err := s.programs.GetAssignmentForAthlete(ctx, caller.UserID)
		switch {
		case err == nil:
			result.Scheme = assignment.Scheme
			result.TotalWeeks = assignment.TotalWeeks
			weekNumber = assignment.CurrentWeek(s.now())

			baselines, err := s.programs.GetBaselines(ctx, caller.UserID)
			if err != nil {
				return nil, fmt.Errorf("get baselines: %w", err)
			}
			result.Baselines = baselines
		case errors.Is(err, programs.ErrAssignmentNotFound):
			// template used outside a program, week defaults to 1
		default:
			return nil, fmt.Errorf("get assignment: %w", err)
		}

		if params.WeekNumber != nil {
			weekNumber = *params.WeekNumber
		}
		result.WeekNumber = weekNumber

		session.TemplateID = params.TemplateID
		session.WeekNumber = &weekNumber

		for i, te := range template.Exercises {
			entries = append(entries, ExerciseEntry{
				ExerciseID: te.ExerciseID,
				OrderIndex: i,
				Position:   PositionLabel(i),
			})
		}
	} else if params.WeekNumber != nil {
		result.WeekNumber = *params.WeekNumber
		session.WeekNumber = params.WeekNumber
	}

	session, entries, err = s.repo.AddSession(ctx, session, entries)
	if err != nil {
		return nil, fmt.Errorf("add session: %w", err)
	}

	s.metrics.CounterSessionsStarted.Inc()
	log.Debugf("athlete %d started session %d", caller.UserID, session.ID)

	result.Session = session
	result.Entries = entries
	return result, nil
}

type LogSetParams struct {
	SetNumber       int      `json:"setNumber"`
	SetType         SetType  `json:"setType"`
	Weight          *float64 `json:"weight,omitempty"`
	Reps            *int     `json:"reps,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	RPE             *float64 `json:"rpe,omitempty"`
	Completed       bool     `json:"completed"`
}

// LogSet appends a set to an entry of one of the caller's active sessions.
func (s *Service) LogSet(ctx context.Context, caller auth.Caller, entryID int, params LogSetParams) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.logSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSessionForEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if session.AthleteID != caller.UserID {
		return nil, ErrNotSessionOwner
	}
	if !session.IsActive() {
		return nil, ErrSessionCompleted
	}

	setType := params.SetType
	if setType == "" {
		setType = SetTypeWorking
	}
	if !setType.IsValid() {
		return nil, fmt.Errorf("invalid set type: %s", setType)
	}

	set, err := s.repo.AddSet(ctx, &Set{
		EntryID:         entryID,
		SetNumber:       params.SetNumber,
		SetType:         setType,
		Weight:          params.Weight,
		Reps:            params.Reps,
		DurationSeconds: params.DurationSeconds,
		RPE:             params.RPE,
		Completed:       params.Completed,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("add set: %w", err)
	}

	s.metrics.CounterSetsLogged.Inc()
	return set, nil
}

type UpdateSetParams struct {
	SetNumber       *int     `json:"setNumber,omitempty"`
	SetType         *SetType `json:"setType,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	Reps            *int     `json:"reps,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	RPE             *float64 `json:"rpe,omitempty"`
	Completed       *bool    `json:"completed,omitempty"`
}

// UpdateSet applies a partial update to a set of one of the caller's active
// sessions. Absent fields keep their stored value.
func (s *Service) UpdateSet(ctx context.Context, caller auth.Caller, setID int, params UpdateSetParams) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.updateSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSessionForSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if session.AthleteID != caller.UserID {
		return nil, ErrNotSessionOwner
	}
	if !session.IsActive() {
		return nil, ErrSessionCompleted
	}

	set, err := s.repo.GetSet(ctx, setID)
	if err != nil {
		return nil, err
	}

	if params.SetNumber != nil {
		set.SetNumber = *params.SetNumber
	}
	if params.SetType != nil {
		if !params.SetType.IsValid() {
			return nil, fmt.Errorf("invalid set type: %s", *params.SetType)
		}
		set.SetType = *params.SetType
	}
	if params.Weight != nil {
		set.Weight = params.Weight
	}
	if params.Reps != nil {
		set.Reps = params.Reps
	}
	if params.DurationSeconds != nil {
		set.DurationSeconds = params.DurationSeconds
	}
	if params.RPE != nil {
		set.RPE = params.RPE
	}
	if params.Completed != nil {
		set.Completed = *params.Completed
	}

	if err := s.repo.UpdateSet(ctx, set); err != nil {
		return nil, fmt.Errorf("update set: %w", err)
	}

	return set, nil
}

// AddExercise appends an exercise entry after all existing ones, with the
// next order index and its derived position label.
func (s *Service) AddExercise(ctx context.Context, caller auth.Caller, sessionID, exerciseID int) (_ *ExerciseEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.addExercise")
	span.SetAttributes(attribute.Int("session.id", sessionID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.AthleteID != caller.UserID {
		return nil, ErrNotSessionOwner
	}
	if !session.IsActive() {
		return nil, ErrSessionCompleted
	}

	if _, err := s.programs.GetExercise(ctx, exerciseID); err != nil {
		return nil, fmt.Errorf("get exercise: %w", err)
	}

	orderIndex, err := s.repo.NextOrderIndex(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("next order index: %w", err)
	}

	entry, err := s.repo.AddEntry(ctx, &ExerciseEntry{
		SessionID:  sessionID,
		ExerciseID: exerciseID,
		OrderIndex: orderIndex,
		Position:   PositionLabel(orderIndex),
	})
	if err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}

	return entry, nil
}

type CompleteResult struct {
	TotalVolume     float64                  `json:"totalVolume"`
	DurationSeconds int                      `json:"durationSeconds"`
	NewRecords      []records.PersonalRecord `json:"newRecords,omitempty"`
	Streak          *streaks.Streak          `json:"streak,omitempty"`
}

// Complete finishes an active session: it aggregates the session's sets into
// the total volume, persists the completion, then runs record detection and
// the streak update, in that order. Record detection and the streak update
// run after the completion is persisted and are not rolled back when one of
// them fails, the session stays completed.
func (s *Service) Complete(ctx context.Context, caller auth.Caller, sessionID int, notes *string) (_ *CompleteResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.complete")
	span.SetAttributes(attribute.Int("session.id", sessionID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.AthleteID != caller.UserID {
		return nil, ErrNotSessionOwner
	}
	if !session.IsActive() {
		return nil, ErrSessionCompleted
	}

	entries, err := s.repo.GetEntries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}

	var allSets []calc.Set
	setsPerExercise := make(map[int][]calc.Set)
	for _, entry := range entries {
		for _, set := range entry.Sets {
			cs := set.CalcSet()
			allSets = append(allSets, cs)
			setsPerExercise[entry.ExerciseID] = append(setsPerExercise[entry.ExerciseID], cs)
		}
	}

	completedAt := s.now()
	totalVolume := calc.TotalVolume(allSets)
	durationSeconds := int(completedAt.Sub(session.StartedAt).Seconds())

	if err := s.repo.CompleteSession(ctx, sessionID, completedAt, totalVolume, durationSeconds, notes); err != nil {
		return nil, fmt.Errorf("persist completion: %w", err)
	}

	s.metrics.CounterSessionsCompleted.Inc()

	result := &CompleteResult{
		TotalVolume:     totalVolume,
		DurationSeconds: durationSeconds,
	}

	newRecords, err := s.detector.DetectFromSession(ctx, caller.UserID, sessionID, completedAt, setsPerExercise)
	if err != nil {
		// the session is already completed, surface the failure without undoing it
		log.Errorf("session %d: record detection failed: %s", sessionID, err)
		return nil, fmt.Errorf("detect records: %w", err)
	}
	result.NewRecords = newRecords
	if len(newRecords) > 0 {
		s.metrics.CounterPersonalRecords.Add(float64(len(newRecords)))
	}

	streak, extended, err := s.tracker.RecordCompletion(ctx, caller.UserID, completedAt)
	if err != nil {
		log.Errorf("session %d: streak update failed: %s", sessionID, err)
		return nil, fmt.Errorf("update streak: %w", err)
	}
	result.Streak = streak
	if extended {
		s.metrics.CounterStreaksExtended.Inc()
	} else {
		s.metrics.CounterStreaksReset.Inc()
	}

	log.Debugf(
		"athlete %d completed session %d: volume %.1f, duration %ds, %d new records",
		caller.UserID, sessionID, totalVolume, durationSeconds, len(newRecords),
	)

	return result, nil
}

// Abandon deletes an active session with everything it owns. Only the owner
// can abandon, and only while the session is active.
func (s *Service) Abandon(ctx context.Context, caller auth.Caller, sessionID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.abandon")
	span.SetAttributes(attribute.Int("session.id", sessionID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.AthleteID != caller.UserID {
		return ErrNotSessionOwner
	}
	if !session.IsActive() {
		return ErrSessionCompleted
	}

	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.metrics.CounterSessionsAbandoned.Inc()
	log.Debugf("athlete %d abandoned session %d", caller.UserID, sessionID)
	return nil
}

// Delete removes a session in any state. Allowed for the owner and for
// trainers, the trainer-side cleanup of client data.
func (s *Service) Delete(ctx context.Context, caller auth.Caller, sessionID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.delete")
	span.SetAttributes(attribute.Int("session.id", sessionID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.AthleteID != caller.UserID && !caller.IsTrainer() {
		return ErrNotSessionOwner
	}

	return s.repo.DeleteSession(ctx, sessionID)
}

// Get returns a session with its entries and sets. Clients can read their
// own sessions, trainers can read any.
func (s *Service) Get(ctx context.Context, caller auth.Caller, sessionID int) (_ *Session, _ []ExerciseEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.get")
	span.SetAttributes(attribute.Int("session.id", sessionID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.AthleteID != caller.UserID && !caller.IsTrainer() {
		return nil, nil, ErrNotSessionOwner
	}

	entries, err := s.repo.GetEntries(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get entries: %w", err)
	}

	return session, entries, nil
}

// List returns the athlete's sessions, most recent first.
func (s *Service) List(ctx context.Context, caller auth.Caller, athleteID, limit int) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.sessions.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if athleteID != caller.UserID && !caller.IsTrainer() {
		return nil, ErrNotSessionOwner
	}
	if limit <= 0 {
		limit = 50
	}

	return s.repo.ListForAthlete(ctx, athleteID, limit)
}
