package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/2beens/workoutlog/internal/workouts"
)

type ListWorkoutsParams struct {
	Status string
	Page   int
	Size   int
}

func (c *Client) ListWorkouts(ctx context.Context, params ListWorkoutsParams) (*workouts.ListResponse, error) {
	values := url.Values{}
	if params.Status != "" {
		values.Set("status", params.Status)
	}
	if params.Page > 0 {
		values.Set("page", strconv.Itoa(params.Page))
	}
	if params.Size > 0 {
		values.Set("size", strconv.Itoa(params.Size))
	}

	var resp workouts.ListResponse
	if err := c.do(ctx, http.MethodGet, queryPath("/api/workouts", values), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateWorkout(ctx context.Context, nw workouts.NewWorkout) (*workouts.Workout, error) {
	var workout workouts.Workout
	if err := c.do(ctx, http.MethodPost, "/api/workouts", nw, &workout); err != nil {
		return nil, err
	}
	return &workout, nil
}

func (c *Client) GetWorkout(ctx context.Context, id int) (*workouts.WorkoutDetails, error) {
	var details workouts.WorkoutDetails
	if err := c.do(ctx, http.MethodGet, pathID("/api/workouts/%s", id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// FinishWorkout sets the end time; a nil end lets the server use the current time.
func (c *Client) FinishWorkout(ctx context.Context, id int, end *time.Time) (*workouts.Workout, error) {
	var workout workouts.Workout
	req := workouts.FinishRequest{EndTime: end}
	if err := c.do(ctx, http.MethodPatch, pathID("/api/workouts/%s", id), req, &workout); err != nil {
		return nil, err
	}
	return &workout, nil
}

func (c *Client) DeleteWorkout(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, pathID("/api/workouts/%s", id), nil, nil)
}

func (c *Client) ListSets(ctx context.Context, workoutID int) ([]workouts.Set, error) {
	var sets []workouts.Set
	if err := c.do(ctx, http.MethodGet, pathID("/api/workouts/%s/sets", workoutID), nil, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (c *Client) AddSet(ctx context.Context, workoutID int, in workouts.SetInput) (*workouts.Set, error) {
	var set workouts.Set
	if err := c.do(ctx, http.MethodPost, pathID("/api/workouts/%s/sets", workoutID), in, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *Client) UpdateSet(ctx context.Context, setID int, u workouts.SetUpdate) (*workouts.Set, error) {
	var set workouts.Set
	if err := c.do(ctx, http.MethodPatch, pathID("/api/workout-sets/%s", setID), u, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *Client) DeleteSet(ctx context.Context, setID int) error {
	return c.do(ctx, http.MethodDelete, pathID("/api/workout-sets/%s", setID), nil, nil)
}

func (c *Client) ExerciseHistory(ctx context.Context, exerciseName string) (*workouts.ExerciseHistory, error) {
	var history workouts.ExerciseHistory
	path := queryPath("/api/exercises/history", url.Values{"name": []string{exerciseName}})
	if err := c.do(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return &history, nil
}
