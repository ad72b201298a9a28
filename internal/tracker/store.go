package tracker

import (
	"context"
	"time"

	"github.com/2beens/workoutlog/internal/routines"
	"github.com/2beens/workoutlog/internal/workouts"
)

//go:generate mockgen -source=$GOFILE -destination=store_mocks_test.go -package=tracker_test

// Store is the persistence the live workout needs.
type Store interface {
	GetRoutine(ctx context.Context, userID, routineID int) (*routines.Routine, error)
	CreateWorkout(ctx context.Context, userID int, routine *routines.Routine, start time.Time) (*workouts.Workout, error)
	AddSet(ctx context.Context, userID, workoutID int, in workouts.SetInput) (*workouts.Set, error)
	ListSets(ctx context.Context, userID, workoutID int) ([]workouts.Set, error)
	FinishWorkout(ctx context.Context, userID, workoutID int, end time.Time) (*workouts.Workout, error)
}

type RepoStore struct {
	routinesRepo *routines.Repo
	workoutsRepo *workouts.Repo
}

func NewRepoStore(routinesRepo *routines.Repo, workoutsRepo *workouts.Repo) *RepoStore {
	return &RepoStore{
		routinesRepo: routinesRepo,
		workoutsRepo: workoutsRepo,
	}
}

func (rs *RepoStore) GetRoutine(ctx context.Context, userID, routineID int) (*routines.Routine, error) {
	return rs.routinesRepo.Get(ctx, userID, routineID)
}

func (rs *RepoStore) CreateWorkout(ctx context.Context, userID int, routine *routines.Routine, start time.Time) (*workouts.Workout, error) {
	return rs.workoutsRepo.Create(ctx, userID, workouts.NewWorkout{
		RoutineID: &routine.ID,
		StartTime: &start,
	})
}

func (rs *RepoStore) AddSet(ctx context.Context, userID, workoutID int, in workouts.SetInput) (*workouts.Set, error) {
	return rs.workoutsRepo.AddSet(ctx, userID, workoutID, in)
}

func (rs *RepoStore) ListSets(ctx context.Context, userID, workoutID int) ([]workouts.Set, error) {
	return rs.workoutsRepo.ListSets(ctx, userID, workoutID)
}

func (rs *RepoStore) FinishWorkout(ctx context.Context, userID, workoutID int, end time.Time) (*workouts.Workout, error) {
	return rs.workoutsRepo.Finish(ctx, userID, workoutID, end)
}
