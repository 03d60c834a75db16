package streaks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/liftlab/liftlab/internal/auth"
	"github.com/liftlab/liftlab/internal/telemetry/tracing"
	"github.com/liftlab/liftlab/pkg"

	log "github.com/sirupsen/logrus"
)

type getRepo interface {
	Get(ctx context.Context, athleteID int) (*Streak, error)
}

type Handler struct {
	repo getRepo
}

func NewHandler(repo getRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

// HandleGet returns the caller's streak. An athlete who never completed a
// session gets a zeroed streak rather than an error. Trainers can read any
// athlete's streak through the athleteId query param.
func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.streaks.get")
	defer span.End()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	athleteID := caller.UserID
	if athleteIDParam := r.URL.Query().Get("athleteId"); athleteIDParam != "" {
		parsed, err := strconv.Atoi(athleteIDParam)
		if err != nil {
			http.Error(w, "error, athlete id NaN", http.StatusBadRequest)
			return
		}
		if parsed != caller.UserID && !caller.IsTrainer() {
			http.Error(w, "not allowed", http.StatusForbidden)
			return
		}
		athleteID = parsed
	}

	streak, err := handler.repo.Get(ctx, athleteID)
	if errors.Is(err, ErrStreakNotFound) {
		streak = &Streak{AthleteID: athleteID}
	} else if err != nil {
		log.Errorf("failed to get streak for athlete %d: %s", athleteID, err)
		http.Error(w, "error, failed to get streak", http.StatusInternalServerError)
		return
	}

	streakJson, err := json.Marshal(streak)
	if err != nil {
		log.Errorf("failed to marshal streak: %s", err)
		http.Error(w, "error, failed to get streak", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, streakJson)
}
