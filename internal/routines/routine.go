package routines

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxPlannedSets bounds the planned sets of one exercise. The schema check uses the same value.
const MaxPlannedSets = 50

type Routine struct {
	ID        int        `json:"id"`
	UserID    int        `json:"userId"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	Exercises []Exercise `json:"exercises"`
}

// Exercise is one planned exercise of a routine. Lists are ordered by (OrderIndex, ID).
type Exercise struct {
	ID          int    `json:"id"`
	RoutineID   int    `json:"routineId"`
	Name        string `json:"name"`
	PlannedSets int    `json:"plannedSets"`
	OrderIndex  int    `json:"orderIndex"`
}

type ExerciseInput struct {
	Name        string `json:"name"`
	PlannedSets int    `json:"plannedSets"`
	// OrderIndex is assigned as the next free position when omitted.
	OrderIndex *int `json:"orderIndex,omitempty"`
}

type CreateRoutineRequest struct {
	Name      string          `json:"name"`
	Exercises []ExerciseInput `json:"exercises"`
}

func (in *ExerciseInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return errors.New("exercise name empty")
	}
	if in.PlannedSets < 0 || in.PlannedSets > MaxPlannedSets {
		return fmt.Errorf("planned sets must be between 0 and %d", MaxPlannedSets)
	}
	if in.OrderIndex != nil && *in.OrderIndex < 0 {
		return errors.New("order index must not be negative")
	}
	return nil
}

func (req *CreateRoutineRequest) Validate() error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return errors.New("routine name empty")
	}
	for i := range req.Exercises {
		if err := req.Exercises[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func sortExercises(exercises []Exercise) {
	sort.SliceStable(exercises, func(i, j int) bool {
		if exercises[i].OrderIndex != exercises[j].OrderIndex {
			return exercises[i].OrderIndex < exercises[j].OrderIndex
		}
		return exercises[i].ID < exercises[j].ID
	})
}
