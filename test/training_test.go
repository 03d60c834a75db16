package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/liftlab/liftlab/internal/training/records"
	"github.com/liftlab/liftlab/internal/training/sessions"
	"github.com/liftlab/liftlab/internal/training/streaks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) request(
	ctx context.Context,
	t *testing.T,
	method, path, token string,
	body any,
) (int, []byte) {
	var reqBody io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-LIFTLAB-TOKEN", token)

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) TestTrainingSessionLifecycle() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	athleteToken := doLogin(ctx, t, testClientUsername)
	trainerToken := doLogin(ctx, t, testTrainerUsername)

	// seeded program: template 1 (squat + deadlift), linear over 12 weeks,
	// assigned to the athlete 8 days ago, so the derived week is 2
	templateID := 1
	status, respBytes := s.request(ctx, t, "POST", "/training/sessions/start", athleteToken, sessions.StartParams{
		TemplateID: &templateID,
	})
	require.Equal(t, http.StatusCreated, status, string(respBytes))

	var startResult sessions.StartResult
	require.NoError(t, json.Unmarshal(respBytes, &startResult))
	require.NotNil(t, startResult.Session)
	assert.True(t, startResult.Session.IsActive())
	assert.Equal(t, 2, startResult.WeekNumber)
	assert.Equal(t, "linear", string(startResult.Scheme))
	assert.Equal(t, 12, startResult.TotalWeeks)
	assert.Equal(t, map[int]float64{1: 100, 3: 140}, startResult.Baselines)
	require.Len(t, startResult.Entries, 2)
	assert.Equal(t, "A", startResult.Entries[0].Position)
	assert.Equal(t, "B", startResult.Entries[1].Position)

	sessionID := startResult.Session.ID
	squatEntry := startResult.Entries[0]
	deadliftEntry := startResult.Entries[1]

	logSet := func(entryID int, params sessions.LogSetParams) sessions.Set {
		status, respBytes := s.request(ctx, t, "POST", fmt.Sprintf("/training/entries/%d/sets", entryID), athleteToken, params)
		require.Equal(t, http.StatusCreated, status, string(respBytes))
		var set sessions.Set
		require.NoError(t, json.Unmarshal(respBytes, &set))
		return set
	}

	squatSet := logSet(squatEntry.ID, sessions.LogSetParams{
		SetNumber: 1,
		Weight:    ptrF(100),
		Reps:      ptrI(5),
		Completed: true,
	})
	assert.Equal(t, sessions.SetTypeWorking, squatSet.SetType)

	// second squat set left incomplete, it must not count towards volume
	incompleteSet := logSet(squatEntry.ID, sessions.LogSetParams{
		SetNumber: 2,
		Weight:    ptrF(80),
		Reps:      ptrI(5),
	})
	assert.False(t, incompleteSet.Completed)

	deadliftSet := logSet(deadliftEntry.ID, sessions.LogSetParams{
		SetNumber: 1,
		Weight:    ptrF(135),
		Reps:      ptrI(3),
		Completed: true,
	})

	// bump the deadlift weight after the fact
	status, respBytes = s.request(ctx, t, "PUT", fmt.Sprintf("/training/sets/%d", deadliftSet.ID), athleteToken, sessions.UpdateSetParams{
		Weight: ptrF(140),
	})
	require.Equal(t, http.StatusOK, status, string(respBytes))
	var updatedSet sessions.Set
	require.NoError(t, json.Unmarshal(respBytes, &updatedSet))
	require.NotNil(t, updatedSet.Weight)
	assert.Equal(t, 140.0, *updatedSet.Weight)
	assert.True(t, updatedSet.Completed)

	notes := "solid lower day"
	status, respBytes = s.request(ctx, t, "POST", fmt.Sprintf("/training/sessions/%d/complete", sessionID), athleteToken, sessions.CompleteRequest{
		Notes: &notes,
	})
	require.Equal(t, http.StatusOK, status, string(respBytes))

	var completeResult sessions.CompleteResult
	require.NoError(t, json.Unmarshal(respBytes, &completeResult))
	// 100x5 squat + 140x3 deadlift, the incomplete set is skipped
	assert.Equal(t, 920.0, completeResult.TotalVolume)
	assert.True(t, completeResult.DurationSeconds >= 0)

	// first completed session ever, both lifts produce e1rm and max weight records
	require.Len(t, completeResult.NewRecords, 4)
	recordValues := map[string]float64{}
	for _, pr := range completeResult.NewRecords {
		recordValues[fmt.Sprintf("%d/%s", pr.ExerciseID, pr.RecordType)] = pr.Value
		assert.Equal(t, sessionID, pr.SessionID)
	}
	assert.Equal(t, 116.7, recordValues["1/e1rm"])
	assert.Equal(t, 100.0, recordValues["1/max_weight"])
	assert.Equal(t, 154.0, recordValues["3/e1rm"])
	assert.Equal(t, 140.0, recordValues["3/max_weight"])

	require.NotNil(t, completeResult.Streak)
	assert.Equal(t, 1, completeResult.Streak.CurrentStreak)
	assert.Equal(t, 1, completeResult.Streak.LongestStreak)

	// completing twice must conflict
	status, respBytes = s.request(ctx, t, "POST", fmt.Sprintf("/training/sessions/%d/complete", sessionID), athleteToken, nil)
	require.Equal(t, http.StatusConflict, status, string(respBytes))

	// logging into a completed session must conflict too
	status, respBytes = s.request(ctx, t, "POST", fmt.Sprintf("/training/entries/%d/sets", squatEntry.ID), athleteToken, sessions.LogSetParams{
		SetNumber: 3,
		Weight:    ptrF(60),
		Reps:      ptrI(10),
		Completed: true,
	})
	require.Equal(t, http.StatusConflict, status, string(respBytes))

	t.Run("records endpoint", func(t *testing.T) {
		status, respBytes := s.request(ctx, t, "GET", "/training/records", athleteToken, nil)
		require.Equal(t, http.StatusOK, status, string(respBytes))

		var recordsResp records.RecordsListResponse
		require.NoError(t, json.Unmarshal(respBytes, &recordsResp))
		assert.Len(t, recordsResp.Records, 4)

		// trainer reads the athlete's records through the query param
		status, respBytes = s.request(ctx, t, "GET", "/training/records?athleteId=2", trainerToken, nil)
		require.Equal(t, http.StatusOK, status, string(respBytes))
		require.NoError(t, json.Unmarshal(respBytes, &recordsResp))
		assert.Len(t, recordsResp.Records, 4)
	})

	t.Run("streak endpoint", func(t *testing.T) {
		status, respBytes := s.request(ctx, t, "GET", "/training/streak", athleteToken, nil)
		require.Equal(t, http.StatusOK, status, string(respBytes))

		var streak streaks.Streak
		require.NoError(t, json.Unmarshal(respBytes, &streak))
		assert.Equal(t, 1, streak.CurrentStreak)
		require.NotNil(t, streak.LastActivityDate)
	})

	t.Run("second completion same day extends the streak", func(t *testing.T) {
		status, respBytes := s.request(ctx, t, "POST", "/training/sessions/start", athleteToken, nil)
		require.Equal(t, http.StatusCreated, status, string(respBytes))
		var quickStart sessions.StartResult
		require.NoError(t, json.Unmarshal(respBytes, &quickStart))
		assert.Empty(t, quickStart.Entries)

		// free session, pick the exercise by hand
		status, respBytes = s.request(ctx, t, "POST",
			fmt.Sprintf("/training/sessions/%d/exercises", quickStart.Session.ID),
			athleteToken, sessions.AddExerciseRequest{ExerciseID: 2})
		require.Equal(t, http.StatusCreated, status, string(respBytes))
		var benchEntry sessions.ExerciseEntry
		require.NoError(t, json.Unmarshal(respBytes, &benchEntry))
		assert.Equal(t, "A", benchEntry.Position)

		logSet(benchEntry.ID, sessions.LogSetParams{
			SetNumber: 1,
			Weight:    ptrF(60),
			Reps:      ptrI(8),
			Completed: true,
		})

		status, respBytes = s.request(ctx, t, "POST", fmt.Sprintf("/training/sessions/%d/complete", quickStart.Session.ID), athleteToken, nil)
		require.Equal(t, http.StatusOK, status, string(respBytes))
		var result sessions.CompleteResult
		require.NoError(t, json.Unmarshal(respBytes, &result))
		require.NotNil(t, result.Streak)
		assert.Equal(t, 2, result.Streak.CurrentStreak)
		assert.Equal(t, 2, result.Streak.LongestStreak)
	})

	t.Run("trainer can list the athlete's sessions", func(t *testing.T) {
		status, respBytes := s.request(ctx, t, "GET", "/training/sessions?athleteId=2", trainerToken, nil)
		require.Equal(t, http.StatusOK, status, string(respBytes))

		var listResp sessions.SessionsListResponse
		require.NoError(t, json.Unmarshal(respBytes, &listResp))
		require.NotEmpty(t, listResp.Sessions)
	})

	t.Run("completion persisted in db", func(t *testing.T) {
		var completedCount int
		require.NoError(t, s.DB.QueryRow(
			"SELECT COUNT(*) FROM workout_session WHERE athlete_id = 2 AND completed_at IS NOT NULL",
		).Scan(&completedCount))
		assert.Equal(t, 2, completedCount)
	})
}

func (s *IntegrationTestSuite) TestTrainingSessionAbandon() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	athleteToken := doLogin(ctx, t, testClientUsername)
	trainerToken := doLogin(ctx, t, testTrainerUsername)

	status, respBytes := s.request(ctx, t, "POST", "/training/sessions/start", athleteToken, nil)
	require.Equal(t, http.StatusCreated, status, string(respBytes))
	var startResult sessions.StartResult
	require.NoError(t, json.Unmarshal(respBytes, &startResult))
	sessionID := startResult.Session.ID

	// abandoning is the athlete's call, even for their trainer
	status, respBytes = s.request(ctx, t, "POST", fmt.Sprintf("/training/sessions/%d/abandon", sessionID), trainerToken, nil)
	require.Equal(t, http.StatusForbidden, status, string(respBytes))

	status, respBytes = s.request(ctx, t, "POST", fmt.Sprintf("/training/sessions/%d/abandon", sessionID), athleteToken, nil)
	require.Equal(t, http.StatusOK, status, string(respBytes))
	assert.JSONEq(t, `{"abandoned":true}`, string(respBytes))

	status, respBytes = s.request(ctx, t, "GET", fmt.Sprintf("/training/sessions/%d", sessionID), athleteToken, nil)
	require.Equal(t, http.StatusNotFound, status, string(respBytes))

	t.Run("trainer deletes the athlete's session", func(t *testing.T) {
		status, respBytes := s.request(ctx, t, "POST", "/training/sessions/start", athleteToken, nil)
		require.Equal(t, http.StatusCreated, status, string(respBytes))
		var startResult sessions.StartResult
		require.NoError(t, json.Unmarshal(respBytes, &startResult))

		// trainers cannot abandon, but deleting is allowed
		status, respBytes = s.request(ctx, t, "DELETE", fmt.Sprintf("/training/sessions/%d", startResult.Session.ID), trainerToken, nil)
		require.Equal(t, http.StatusOK, status, string(respBytes))

		var deleteResp sessions.DeleteSessionResponse
		require.NoError(t, json.Unmarshal(respBytes, &deleteResp))
		assert.Equal(t, startResult.Session.ID, deleteResp.DeletedID)
	})
}

func ptrF(f float64) *float64 { return &f }
func ptrI(i int) *int         { return &i }
