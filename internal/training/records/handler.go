package records

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/liftlab/liftlab/internal/auth"
	"github.com/liftlab/liftlab/internal/telemetry/tracing"
	"github.com/liftlab/liftlab/pkg"

	log "github.com/sirupsen/logrus"
)

type listRepo interface {
	ListForAthlete(ctx context.Context, athleteID int) ([]PersonalRecord, error)
}

type Handler struct {
	repo listRepo
}

func NewHandler(repo listRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

type RecordsListResponse struct {
	Records []PersonalRecord `json:"records"`
}

// HandleList returns the caller's record history. Trainers can read any
// athlete's records through the athleteId query param.
func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.list")
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

	personalRecords, err := handler.repo.ListForAthlete(ctx, athleteID)
	if err != nil {
		log.Errorf("failed to list records for athlete %d: %s", athleteID, err)
		http.Error(w, "error, failed to list records", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(RecordsListResponse{Records: personalRecords})
	if err != nil {
		log.Errorf("failed to marshal records list: %s", err)
		http.Error(w, "error, failed to list records", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}
