package client

import (
	"context"
	"net/http"

	"github.com/2beens/workoutlog/internal/routines"
)

func (c *Client) ListRoutines(ctx context.Context) ([]routines.Routine, error) {
	var list []routines.Routine
	if err := c.do(ctx, http.MethodGet, "/api/routines", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateRoutine(ctx context.Context, req routines.CreateRoutineRequest) (*routines.Routine, error) {
	var routine routines.Routine
	if err := c.do(ctx, http.MethodPost, "/api/routines", req, &routine); err != nil {
		return nil, err
	}
	return &routine, nil
}

func (c *Client) GetRoutine(ctx context.Context, id int) (*routines.Routine, error) {
	var routine routines.Routine
	if err := c.do(ctx, http.MethodGet, pathID("/api/routines/%s", id), nil, &routine); err != nil {
		return nil, err
	}
	return &routine, nil
}

func (c *Client) DeleteRoutine(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, pathID("/api/routines/%s", id), nil, nil)
}

func (c *Client) ListRoutineExercises(ctx context.Context, routineID int) ([]routines.Exercise, error) {
	var list []routines.Exercise
	if err := c.do(ctx, http.MethodGet, pathID("/api/routines/%s/exercises", routineID), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) AddRoutineExercise(ctx context.Context, routineID int, in routines.ExerciseInput) (*routines.Exercise, error) {
	var exercise routines.Exercise
	if err := c.do(ctx, http.MethodPost, pathID("/api/routines/%s/exercises", routineID), in, &exercise); err != nil {
		return nil, err
	}
	return &exercise, nil
}

func (c *Client) DeleteRoutineExercise(ctx context.Context, exerciseID int) error {
	return c.do(ctx, http.MethodDelete, pathID("/api/routine-exercises/%s", exerciseID), nil, nil)
}
