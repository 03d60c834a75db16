package sessions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/liftlab/liftlab/internal/auth"
	"github.com/liftlab/liftlab/internal/telemetry/tracing"
	"github.com/liftlab/liftlab/internal/training/programs"
	"github.com/liftlab/liftlab/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

type SessionDetailsResponse struct {
	Session *Session        `json:"session"`
	Entries []ExerciseEntry `json:"entries"`
}

type SessionsListResponse struct {
	Sessions []Session `json:"sessions"`
}

type DeleteSessionResponse struct {
	DeletedID int `json:"deletedId"`
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.start")
	defer span.End()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	var params StartParams
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			log.Errorf("start session, unmarshal json params: %s", err)
			http.Error(w, "invalid start params", http.StatusBadRequest)
			return
		}
	}

	result, err := handler.service.Start(ctx, caller, params)
	if err != nil {
		writeServiceError(w, "start session", err)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal start session result: %s", err)
		http.Error(w, "error, failed to start session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.get")
	defer span.End()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	session, entries, err := handler.service.Get(ctx, caller, id)
	if err != nil {
		writeServiceError(w, "get session", err)
		return
	}

	respJson, err := json.Marshal(SessionDetailsResponse{
		Session: session,
		Entries: entries,
	})
	if err != nil {
		log.Errorf("failed to marshal session details: %s", err)
		http.Error(w, "error, failed to get session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.list")
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
		athleteID = parsed
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil {
			http.Error(w, "error, limit NaN", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	sessionsList, err := handler.service.List(ctx, caller, athleteID, limit)
	if err != nil {
		writeServiceError(w, "list sessions", err)
		return
	}

	respJson, err := json.Marshal(SessionsListResponse{Sessions: sessionsList})
	if err != nil {
		log.Errorf("failed to marshal sessions list: %s", err)
		http.Error(w, "error, failed to list sessions", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleLogSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.logSet")
	defer span.End()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	entryID, ok := pathID(w, r)
	if !ok {
		return
	}

	var params LogSetParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Errorf("log set, unmarshal json params: %s", err)
		http.Error(w, "invalid set params", http.StatusBadRequest)
		return
	}

	set, err := handler.service.LogSet(ctx, caller, entryID, params)
	if err != nil {
		writeServiceError(w, "log set", err)
		return
	}

	setJson, err := json.Marshal(set)
	if err != nil {
		log.Errorf("failed to marshal logged set: %s", err)
		http.Error(w, "error, failed to log set", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, setJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdateSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.updateSet")
	defer span.End()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	setID, ok := pathID(w, r)
	if !ok {
		return
	}

	var params UpdateSetParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Errorf("update set, unmarshal json params: %s", err)
		http.Error(w, "invalid set params", http.StatusBadRequest)
		return
	}

	set, err := handler.service.UpdateSet(ctx, caller, setID, params)
	if err != nil {
		writeServiceError(w, "update set", err)
		return
	}

	setJson, err := json.Marshal(set)
	if err != nil {
		log.Errorf("failed to marshal updated set: %s", err)
		http.Error(w, "error, failed to update set", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, setJson)
}

type AddExerciseRequest struct {
	ExerciseID int `json:"exerciseId"`
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.addExercise")
	defer span.End()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add exercise, unmarshal json params: %s", err)
		http.Error(w, "invalid params", http.StatusBadRequest)
		return
	}
	if req.ExerciseID <= 0 {
		http.Error(w, "error, exercise id empty", http.StatusBadRequest)
		return
	}

	entry, err := handler.service.AddExercise(ctx, caller, sessionID, req.ExerciseID)
	if err != nil {
		writeServiceError(w, "add exercise", err)
		return
	}

	entryJson, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("failed to marshal added entry: %s", err)
		http.Error(w, "error, failed to add exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entryJson, http.StatusCreated)
}

type CompleteRequest struct {
	Notes *string `json:"notes,omitempty"`
}

func (handler *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.complete")
	defer span.End()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CompleteRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Errorf("complete session, unmarshal json params: %s", err)
			http.Error(w, "invalid params", http.StatusBadRequest)
			return
		}
	}

	result, err := handler.service.Complete(ctx, caller, sessionID, req.Notes)
	if err != nil {
		writeServiceError(w, "complete session", err)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal complete session result: %s", err)
		http.Error(w, "error, failed to complete session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resultJson)
}

func (handler *Handler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.abandon")
	defer span.End()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := handler.service.Abandon(ctx, caller, sessionID); err != nil {
		writeServiceError(w, "abandon session", err)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"abandoned":true}`)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.delete")
	defer span.End()

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := handler.service.Delete(ctx, caller, sessionID); err != nil {
		writeServiceError(w, "delete session", err)
		return
	}

	deletedJson, err := json.Marshal(DeleteSessionResponse{DeletedID: sessionID})
	if err != nil {
		log.Errorf("failed to marshal delete session response: %s", err)
		http.Error(w, "error, failed to delete session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deletedJson)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotSessionOwner):
		http.Error(w, "not allowed", http.StatusForbidden)
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrEntryNotFound),
		errors.Is(err, ErrSetNotFound),
		errors.Is(err, programs.ErrTemplateNotFound),
		errors.Is(err, programs.ErrExerciseNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrSessionCompleted):
		http.Error(w, "session already completed", http.StatusConflict)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
