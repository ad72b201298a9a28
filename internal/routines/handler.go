package routines

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/workoutlog/internal/auth"
	"github.com/2beens/workoutlog/internal/telemetry/tracing"
	"github.com/2beens/workoutlog/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=routines_mocks_test.go -package=routines_test

type routinesRepo interface {
	Create(ctx context.Context, userID int, req CreateRoutineRequest) (*Routine, error)
	List(ctx context.Context, userID int) ([]Routine, error)
	Get(ctx context.Context, userID, id int) (*Routine, error)
	Delete(ctx context.Context, userID, id int) error
	ListExercises(ctx context.Context, userID, routineID int) ([]Exercise, error)
	AddExercise(ctx context.Context, userID, routineID int, in ExerciseInput) (*Exercise, error)
	DeleteExercise(ctx context.Context, userID, exerciseID int) error
}

type DeleteResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo routinesRepo
}

func NewHandler(repo routinesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func pathID(r *http.Request, name string) (int, error) {
	idStr := mux.Vars(r)[name]
	if idStr == "" {
		return 0, errors.New("id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("id NaN")
	}
	return id, nil
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.list")
	defer span.End()

	userID, _ := auth.UserIDFromContext(ctx)
	routines, err := handler.repo.List(ctx, userID)
	if err != nil {
		log.Errorf("failed to list routines for user %d: %s", userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list routines")
		return
	}
	if routines == nil {
		routines = []Routine{}
	}

	pkg.WriteJSON(w, http.StatusOK, routines)
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.create")
	defer span.End()

	var req CreateRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("create routine, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	routine, err := handler.repo.Create(ctx, userID, req)
	if err != nil {
		log.Errorf("failed to create routine [%s] for user %d: %s", req.Name, userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to create routine")
		return
	}

	log.Debugf("new routine added: %d", routine.ID)
	pkg.WriteJSON(w, http.StatusCreated, routine)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.get")
	defer span.End()

	id, err := pathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, "+err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	routine, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		handler.writeRepoError(w, err, "failed to get routine")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, routine)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.delete")
	defer span.End()

	id, err := pathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, "+err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		handler.writeRepoError(w, err, "failed to delete routine")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, DeleteResponse{DeletedID: id})
}

func (handler *Handler) HandleListExercises(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.listexercises")
	defer span.End()

	routineID, err := pathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, "+err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	exercises, err := handler.repo.ListExercises(ctx, userID, routineID)
	if err != nil {
		handler.writeRepoError(w, err, "failed to list exercises")
		return
	}
	if exercises == nil {
		exercises = []Exercise{}
	}

	pkg.WriteJSON(w, http.StatusOK, exercises)
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.addexercise")
	defer span.End()

	routineID, err := pathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, "+err.Error())
		return
	}

	var in ExerciseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Tracef("add exercise, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	ex, err := handler.repo.AddExercise(ctx, userID, routineID, in)
	if err != nil {
		handler.writeRepoError(w, err, "failed to add exercise")
		return
	}

	pkg.WriteJSON(w, http.StatusCreated, ex)
}

func (handler *Handler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.deleteexercise")
	defer span.End()

	id, err := pathID(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, "+err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	if err := handler.repo.DeleteExercise(ctx, userID, id); err != nil {
		handler.writeRepoError(w, err, "failed to delete exercise")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, DeleteResponse{DeletedID: id})
}

func (handler *Handler) writeRepoError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrRoutineNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, "routine not found")
	case errors.Is(err, ErrExerciseNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, "exercise not found")
	default:
		log.Errorf("%s: %s", msg, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, msg)
	}
}
