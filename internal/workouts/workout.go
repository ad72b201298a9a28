package workouts

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultRPE = 5
	MinRPE     = 1
	MaxRPE     = 10
	// MaxWeight fits NUMERIC(7,2).
	MaxWeight = 99999.99
	// MaxPage keeps the list offset far from int overflow.
	MaxPage = 100000

	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Workout is active while EndTime is nil.
type Workout struct {
	ID          int        `json:"id"`
	UserID      int        `json:"userId"`
	RoutineID   *int       `json:"routineId"`
	RoutineName string     `json:"routineName"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
}

func (w Workout) Active() bool {
	return w.EndTime == nil
}

type WorkoutDetails struct {
	Workout
	Sets []Set `json:"sets"`
}

type Set struct {
	ID           int       `json:"id"`
	WorkoutID    int       `json:"workoutId"`
	ExerciseName string    `json:"exerciseName"`
	Weight       float64   `json:"weight"`
	Reps         int       `json:"reps"`
	RPE          int       `json:"rpe"`
	SetNumber    int       `json:"setNumber"`
	CreatedAt    time.Time `json:"createdAt"`
}

type NewWorkout struct {
	RoutineID   *int       `json:"routineId,omitempty"`
	RoutineName string     `json:"routineName,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
}

type FinishRequest struct {
	EndTime *time.Time `json:"endTime"`
}

type SetInput struct {
	ExerciseName string  `json:"exerciseName"`
	Weight       float64 `json:"weight"`
	Reps         int     `json:"reps"`
	RPE          *int    `json:"rpe,omitempty"`
	// SetNumber is assigned as max(set_number)+1 for the exercise when omitted.
	SetNumber *int `json:"setNumber,omitempty"`
}

type SetUpdate struct {
	ExerciseName *string  `json:"exerciseName,omitempty"`
	Weight       *float64 `json:"weight,omitempty"`
	Reps         *int     `json:"reps,omitempty"`
	RPE          *int     `json:"rpe,omitempty"`
	SetNumber    *int     `json:"setNumber,omitempty"`
}

type ListParams struct {
	UserID int
	// Status is one of StatusActive, StatusCompleted or empty for all.
	Status string
	Page   int
	Size   int
}

func ValidateWeight(weight float64) error {
	if weight < 0 {
		return errors.New("weight must not be negative")
	}
	if weight > MaxWeight {
		return errors.New("weight too large")
	}
	return nil
}

func ValidateReps(reps int) error {
	if reps < 0 {
		return errors.New("reps must not be negative")
	}
	return nil
}

func ValidateRPE(rpe int) error {
	if rpe < MinRPE || rpe > MaxRPE {
		return errors.New("rpe must be between 1 and 10")
	}
	return nil
}

func (in *SetInput) Validate() error {
	in.ExerciseName = strings.TrimSpace(in.ExerciseName)
	if in.ExerciseName == "" {
		return errors.New("exercise name empty")
	}
	if err := ValidateWeight(in.Weight); err != nil {
		return err
	}
	if err := ValidateReps(in.Reps); err != nil {
		return err
	}
	if in.RPE != nil {
		if err := ValidateRPE(*in.RPE); err != nil {
			return err
		}
	}
	if in.SetNumber != nil && *in.SetNumber < 1 {
		return errors.New("set number must be positive")
	}
	return nil
}

func (in SetInput) rpeOrDefault() int {
	if in.RPE == nil {
		return DefaultRPE
	}
	return *in.RPE
}

func (u *SetUpdate) Validate() error {
	if u.ExerciseName == nil && u.Weight == nil && u.Reps == nil && u.RPE == nil && u.SetNumber == nil {
		return errors.New("nothing to update")
	}
	if u.ExerciseName != nil {
		name := strings.TrimSpace(*u.ExerciseName)
		if name == "" {
			return errors.New("exercise name empty")
		}
		u.ExerciseName = &name
	}
	if u.Weight != nil {
		if err := ValidateWeight(*u.Weight); err != nil {
			return err
		}
	}
	if u.Reps != nil {
		if err := ValidateReps(*u.Reps); err != nil {
			return err
		}
	}
	if u.RPE != nil {
		if err := ValidateRPE(*u.RPE); err != nil {
			return err
		}
	}
	if u.SetNumber != nil && *u.SetNumber < 1 {
		return errors.New("set number must be positive")
	}
	return nil
}

func (p *ListParams) Normalize() error {
	switch p.Status {
	case "", StatusActive, StatusCompleted:
	default:
		return errors.New("status must be active or completed")
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		return fmt.Errorf("page must not exceed %d", MaxPage)
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return nil
}
