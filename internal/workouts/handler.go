package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/workoutlog/internal/auth"
	"github.com/2beens/workoutlog/internal/routines"
	"github.com/2beens/workoutlog/internal/telemetry/metrics"
	"github.com/2beens/workoutlog/internal/telemetry/tracing"
	"github.com/2beens/workoutlog/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Create(ctx context.Context, userID int, nw NewWorkout) (*Workout, error)
	Get(ctx context.Context, userID, id int) (*Workout, error)
	List(ctx context.Context, params ListParams) (_ []Workout, total int, err error)
	Finish(ctx context.Context, userID, id int, endTime time.Time) (*Workout, error)
	Delete(ctx context.Context, userID, id int) error
	ListSets(ctx context.Context, userID, workoutID int) ([]Set, error)
	AddSet(ctx context.Context, userID, workoutID int, in SetInput) (*Set, error)
	UpdateSet(ctx context.Context, userID, setID int, u SetUpdate) (*Set, error)
	DeleteSet(ctx context.Context, userID, setID int) error
	ListSetsByExercise(ctx context.Context, userID int, exerciseName string) ([]HistorySet, error)
}

type ListResponse struct {
	Workouts []Workout `json:"workouts"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Size     int       `json:"size"`
}

type DeleteResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo           workoutsRepo
	analyzer       *Analyzer
	metricsManager *metrics.Manager
}

func NewHandler(repo workoutsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		analyzer:       NewAnalyzer(repo),
		metricsManager: metricsManager,
	}
}

func pathID(r *http.Request) (int, error) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		return 0, errors.New("error, id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, id NaN")
	}
	return id, nil
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID, _ := auth.UserIDFromContext(ctx)
	params := ListParams{
		UserID: userID,
		Status: r.URL.Query().Get("status"),
	}
	for name, dst := range map[string]*int{"page": &params.Page, "size": &params.Size} {
		if v := r.URL.Query().Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				pkg.WriteJSONError(w, http.StatusBadRequest, "error, "+name+" NaN")
				return
			}
			*dst = n
		}
	}
	if err := params.Normalize(); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	workouts, total, err := handler.repo.List(ctx, params)
	if err != nil {
		log.Errorf("failed to list workouts for user %d: %s", userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list workouts")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, ListResponse{
		Workouts: workouts,
		Total:    total,
		Page:     params.Page,
		Size:     params.Size,
	})
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.create")
	defer span.End()

	var nw NewWorkout
	if err := json.NewDecoder(r.Body).Decode(&nw); err != nil {
		log.Tracef("create workout, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	nw.RoutineName = strings.TrimSpace(nw.RoutineName)
	if nw.RoutineID == nil && nw.RoutineName == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "routineId or routineName required")
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	workout, err := handler.repo.Create(ctx, userID, nw)
	if err != nil {
		handler.writeRepoError(w, err, "failed to create workout")
		return
	}

	pkg.WriteJSON(w, http.StatusCreated, workout)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	workout, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		handler.writeRepoError(w, err, "failed to get workout")
		return
	}
	sets, err := handler.repo.ListSets(ctx, userID, id)
	if err != nil {
		handler.writeRepoError(w, err, "failed to get workout sets")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, WorkoutDetails{Workout: *workout, Sets: sets})
}

// HandleFinish sets the end time. Without one in the body, the workout ends now
// (or at its start, if that lies in the future).
func (handler *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.finish")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req FinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Tracef("finish workout, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	if req.EndTime == nil {
		workout, err := handler.repo.Get(ctx, userID, id)
		if err != nil {
			handler.writeRepoError(w, err, "failed to finish workout")
			return
		}
		endTime := time.Now()
		if endTime.Before(workout.StartTime) {
			endTime = workout.StartTime
		}
		req.EndTime = &endTime
	}

	workout, err := handler.repo.Finish(ctx, userID, id, *req.EndTime)
	if err != nil {
		handler.writeRepoError(w, err, "failed to finish workout")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, workout)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		handler.writeRepoError(w, err, "failed to delete workout")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, DeleteResponse{DeletedID: id})
}

func (handler *Handler) HandleListSets(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.list")
	defer span.End()

	workoutID, err := pathID(r)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	sets, err := handler.repo.ListSets(ctx, userID, workoutID)
	if err != nil {
		handler.writeRepoError(w, err, "failed to list sets")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, sets)
}

func (handler *Handler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.add")
	defer span.End()

	workoutID, err := pathID(r)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in SetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Tracef("add set, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	set, err := handler.repo.AddSet(ctx, userID, workoutID, in)
	if err != nil {
		handler.writeRepoError(w, err, "failed to add set")
		return
	}

	handler.metricsManager.CounterSetsLogged.Inc()
	pkg.WriteJSON(w, http.StatusCreated, set)
}

func (handler *Handler) HandleUpdateSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.update")
	defer span.End()

	setID, err := pathID(r)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var u SetUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		log.Tracef("update set, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := u.Validate(); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	set, err := handler.repo.UpdateSet(ctx, userID, setID, u)
	if err != nil {
		handler.writeRepoError(w, err, "failed to update set")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, set)
}

func (handler *Handler) HandleDeleteSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.delete")
	defer span.End()

	setID, err := pathID(r)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	if err := handler.repo.DeleteSet(ctx, userID, setID); err != nil {
		handler.writeRepoError(w, err, "failed to delete set")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, DeleteResponse{DeletedID: setID})
}

func (handler *Handler) HandleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercise-history")
	defer span.End()

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, exercise name empty")
		return
	}

	userID, _ := auth.UserIDFromContext(ctx)
	history, err := handler.analyzer.ExerciseHistory(ctx, userID, name)
	if err != nil {
		log.Errorf("failed to get exercise history [%s] for user %d: %s", name, userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to get exercise history")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, history)
}

func (handler *Handler) writeRepoError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrWorkoutNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, "workout not found")
	case errors.Is(err, ErrSetNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, "set not found")
	case errors.Is(err, routines.ErrRoutineNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, "routine not found")
	case errors.Is(err, ErrWorkoutAlreadyFinished):
		pkg.WriteJSONError(w, http.StatusConflict, "workout already finished")
	case errors.Is(err, ErrSetOutOfBounds):
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEndBeforeStart):
		pkg.WriteJSONError(w, http.StatusBadRequest, "end time must not be before start time")
	default:
		log.Errorf("%s: %s", msg, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, msg)
	}
}
