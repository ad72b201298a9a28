package tracker

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/workoutlog/internal/auth"
	"github.com/2beens/workoutlog/internal/routines"
	"github.com/2beens/workoutlog/internal/telemetry/tracing"
	"github.com/2beens/workoutlog/pkg"
)

type StartRequest struct {
	RoutineID int `json:"routineId"`
}

// ErrorResponse carries the session along with the error when state changed partially.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Session *Session `json:"session,omitempty"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func pathInt(r *http.Request, name string) (int, error) {
	v := mux.Vars(r)[name]
	if v == "" {
		return 0, errors.New("error, " + name + " empty")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("error, " + name + " NaN")
	}
	return n, nil
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.live.start")
	defer span.End()

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("start live workout, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoutineID <= 0 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "routineId required")
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	session, err := handler.service.Start(ctx, userID, req.RoutineID)
	if err != nil {
		handler.writeError(w, nil, err)
		return
	}

	pkg.WriteJSON(w, http.StatusCreated, session)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.live.get")
	defer span.End()

	userID, _ := auth.UserIDFromContext(ctx)
	session, err := handler.service.Get(ctx, userID)
	if err != nil {
		handler.writeError(w, nil, err)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, session)
}

func (handler *Handler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.live.discard")
	defer span.End()

	userID, _ := auth.UserIDFromContext(ctx)
	if err := handler.service.Discard(ctx, userID); err != nil {
		handler.writeError(w, nil, err)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, map[string]bool{"discarded": true})
}

func (handler *Handler) HandleSetDraft(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.live.setdraft")
	defer span.End()

	slot, err := pathInt(r, "slot")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft := Draft{RPE: 5}
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		log.Tracef("set draft, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	session, err := handler.service.SetDraft(ctx, userID, slot, draft)
	if err != nil {
		handler.writeError(w, session, err)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, session)
}

func (handler *Handler) HandleFlush(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.live.flush")
	defer span.End()

	userID, _ := auth.UserIDFromContext(ctx)
	session, err := handler.service.Flush(ctx, userID)
	handler.writeSession(w, session, err)
}

func (handler *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.live.next")
	defer span.End()

	userID, _ := auth.UserIDFromContext(ctx)
	session, err := handler.service.Next(ctx, userID)
	handler.writeSession(w, session, err)
}

func (handler *Handler) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.live.previous")
	defer span.End()

	userID, _ := auth.UserIDFromContext(ctx)
	session, err := handler.service.Previous(ctx, userID)
	handler.writeSession(w, session, err)
}

func (handler *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.live.select")
	defer span.End()

	index, err := pathInt(r, "index")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	session, err := handler.service.Select(ctx, userID, index)
	handler.writeSession(w, session, err)
}

func (handler *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.live.finish")
	defer span.End()

	userID, _ := auth.UserIDFromContext(ctx)
	session, err := handler.service.Finish(ctx, userID)
	handler.writeSession(w, session, err)
}

func (handler *Handler) writeSession(w http.ResponseWriter, session *Session, err error) {
	if err != nil {
		handler.writeError(w, session, err)
		return
	}
	pkg.WriteJSON(w, http.StatusOK, session)
}

func (handler *Handler) writeError(w http.ResponseWriter, session *Session, err error) {
	status := http.StatusInternalServerError
	msg := "live workout error"
	switch {
	case errors.Is(err, ErrNoLiveSession):
		status, msg = http.StatusNotFound, "no live workout"
	case errors.Is(err, routines.ErrRoutineNotFound):
		status, msg = http.StatusNotFound, "routine not found"
	case errors.Is(err, ErrAlreadyStarted):
		status, msg = http.StatusConflict, "live workout already in progress"
	case errors.Is(err, ErrNotInProgress):
		status, msg = http.StatusConflict, "live workout not in progress"
	case errors.Is(err, ErrSlotPersisted):
		status, msg = http.StatusConflict, "slot already persisted, edit the set instead"
	case errors.Is(err, ErrSlotOutOfRange), errors.Is(err, ErrExerciseOutOfRange), errors.Is(err, ErrInvalidDraft):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrStateNotSaved):
		log.Errorf("live workout: %s", err)
		status, msg, session = http.StatusServiceUnavailable, "live workout state not saved, retry", nil
	case errors.Is(err, ErrFlushFailed):
		log.Errorf("live workout flush: %s", err)
		msg = "failed to save some sets"
	default:
		log.Errorf("live workout: %s", err)
		session = nil
	}

	pkg.WriteJSON(w, status, ErrorResponse{Error: msg, Session: session})
}
