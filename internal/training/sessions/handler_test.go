package sessions_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftlab/liftlab/internal/auth"
	"github.com/liftlab/liftlab/internal/training/sessions"
)

func authedRequest(t *testing.T, caller auth.Caller, method, target string, body any) *http.Request {
	t.Helper()
	var reqBody *bytes.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(bodyJson)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reqBody)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.SetCaller(context.Background(), caller))
}

func withID(req *http.Request, id int) *http.Request {
	return mux.SetURLVars(req, map[string]string{"id": strconv.Itoa(id)})
}

func TestHandler_StartRequiresCaller(t *testing.T) {
	f := newServiceFixture()
	h := sessions.NewHandler(f.service)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/training/sessions/start", nil)

	h.HandleStart(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_StartQuickSession(t *testing.T) {
	f := newServiceFixture()
	h := sessions.NewHandler(f.service)

	rec := httptest.NewRecorder()
	req := authedRequest(t, client, "POST", "/training/sessions/start", nil)

	h.HandleStart(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result sessions.StartResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Session)
	assert.Equal(t, client.UserID, result.Session.AthleteID)
	assert.True(t, result.Session.IsActive())
}

func TestHandler_StartUnknownTemplate(t *testing.T) {
	f := newServiceFixture()
	h := sessions.NewHandler(f.service)

	rec := httptest.NewRecorder()
	req := authedRequest(t, client, "POST", "/training/sessions/start", sessions.StartParams{
		TemplateID: ptrI(404),
	})

	h.HandleStart(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CompleteThenAbandonConflicts(t *testing.T) {
	f := newServiceFixture()
	h := sessions.NewHandler(f.service)

	started, err := f.service.Start(context.Background(), client, sessions.StartParams{})
	require.NoError(t, err)
	sessionID := started.Session.ID

	rec := httptest.NewRecorder()
	req := withID(authedRequest(t, client, "POST", "/training/sessions/1/complete", nil), sessionID)
	h.HandleComplete(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result sessions.CompleteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Zero(t, result.TotalVolume)

	// second complete and abandon both hit the terminal state
	rec = httptest.NewRecorder()
	req = withID(authedRequest(t, client, "POST", "/training/sessions/1/complete", nil), sessionID)
	h.HandleComplete(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	req = withID(authedRequest(t, client, "POST", "/training/sessions/1/abandon", nil), sessionID)
	h.HandleAbandon(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_AbandonForbiddenForOthers(t *testing.T) {
	f := newServiceFixture()
	h := sessions.NewHandler(f.service)

	started, err := f.service.Start(context.Background(), client, sessions.StartParams{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := withID(authedRequest(t, trainer, "POST", "/training/sessions/1/abandon", nil), started.Session.ID)
	h.HandleAbandon(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_GetSessionNotFound(t *testing.T) {
	f := newServiceFixture()
	h := sessions.NewHandler(f.service)

	rec := httptest.NewRecorder()
	req := withID(authedRequest(t, client, "GET", "/training/sessions/12345", nil), 12345)
	h.HandleGet(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_LogSetBadID(t *testing.T) {
	f := newServiceFixture()
	h := sessions.NewHandler(f.service)

	rec := httptest.NewRecorder()
	req := authedRequest(t, client, "POST", "/training/entries/abc/sets", sessions.LogSetParams{SetNumber: 1})
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	h.HandleLogSet(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
