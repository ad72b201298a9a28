package tracker_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/workoutlog/internal/auth"
	"github.com/2beens/workoutlog/internal/tracker"
	"github.com/2beens/workoutlog/internal/workouts"
)

func liveRequest(method, body string, vars map[string]string) *http.Request {
	req := httptest.NewRequest(method, "/api/live-workout", bytes.NewBufferString(body))
	req = req.WithContext(auth.WithUserID(req.Context(), testUserID))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) tracker.Session {
	t.Helper()
	var session tracker.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	return session
}

func TestHandler_LiveWorkoutFlow(t *testing.T) {
	service, stored, _ := newTestService(t, nil)
	h := tracker.NewHandler(service)

	rec := httptest.NewRecorder()
	h.HandleGet(rec, liveRequest(http.MethodGet, "", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleStart(rec, liveRequest(http.MethodPost, `{"routineId":3}`, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decodeSession(t, rec)
	assert.Equal(t, tracker.StateInProgress, session.State)
	assert.Len(t, session.Slots, 2)

	rec = httptest.NewRecorder()
	h.HandleStart(rec, liveRequest(http.MethodPost, `{"routineId":3}`, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleSetDraft(rec, liveRequest(http.MethodPut, `{"weight":135,"reps":5}`, map[string]string{"slot": "0"}))
	require.Equal(t, http.StatusOK, rec.Code)
	session = decodeSession(t, rec)
	assert.Equal(t, tracker.SlotDrafted, session.Slots[0].State)
	assert.Equal(t, 5, session.Slots[0].RPE)

	rec = httptest.NewRecorder()
	h.HandleSetDraft(rec, liveRequest(http.MethodPut, `{"weight":135,"reps":5,"rpe":0}`, map[string]string{"slot": "1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleSetDraft(rec, liveRequest(http.MethodPut, `{"weight":1}`, map[string]string{"slot": "7"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleFlush(rec, liveRequest(http.MethodPost, "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, stored.inputs, 1)

	rec = httptest.NewRecorder()
	h.HandleSetDraft(rec, liveRequest(http.MethodPut, `{"weight":140,"reps":5}`, map[string]string{"slot": "0"}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleNext(rec, liveRequest(http.MethodPost, "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeSession(t, rec).Cursor)

	rec = httptest.NewRecorder()
	h.HandleNext(rec, liveRequest(http.MethodPost, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandlePrevious(rec, liveRequest(http.MethodPost, "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeSession(t, rec).Cursor)

	rec = httptest.NewRecorder()
	h.HandleSelect(rec, liveRequest(http.MethodPost, "", map[string]string{"index": "1"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeSession(t, rec).Cursor)

	rec = httptest.NewRecorder()
	h.HandleFinish(rec, liveRequest(http.MethodPost, "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	session = decodeSession(t, rec)
	assert.Equal(t, tracker.StateFinished, session.State)
	require.NotNil(t, session.EndTime)

	rec = httptest.NewRecorder()
	h.HandleFinish(rec, liveRequest(http.MethodPost, "", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleDiscard(rec, liveRequest(http.MethodDelete, "", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_StartValidation(t *testing.T) {
	service, _, _ := newTestService(t, nil)
	h := tracker.NewHandler(service)

	rec := httptest.NewRecorder()
	h.HandleStart(rec, liveRequest(http.MethodPost, `{}`, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleStart(rec, liveRequest(http.MethodPost, `{"routineId":99}`, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "routine not found")
}

func TestHandler_FlushFailureReturnsSession(t *testing.T) {
	service, _, _ := newTestService(t, func(workouts.SetInput) error {
		return errors.New("db down")
	})
	h := tracker.NewHandler(service)

	rec := httptest.NewRecorder()
	h.HandleStart(rec, liveRequest(http.MethodPost, `{"routineId":3}`, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleSetDraft(rec, liveRequest(http.MethodPut, `{"weight":80,"reps":8,"rpe":6}`, map[string]string{"slot": "0"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleNext(rec, liveRequest(http.MethodPost, "", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp tracker.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed to save some sets", resp.Error)
	require.NotNil(t, resp.Session)
	assert.Equal(t, 0, resp.Session.Cursor)
	assert.Equal(t, tracker.SlotDrafted, resp.Session.Slots[0].State)
	assert.Contains(t, resp.Session.Slots[0].Error, "db down")
}
