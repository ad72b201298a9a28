package workouts

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workoutlog/internal/telemetry/tracing"
)

// ExerciseHistory represents the history of an exercise
// so that, for each workout it was done in, we get the best set and the total volume.
type ExerciseHistory struct {
	ExerciseName string                 `json:"exerciseName"`
	Workouts     []WorkoutExerciseStats `json:"workouts"`
}

type WorkoutExerciseStats struct {
	WorkoutID    int       `json:"workoutId"`
	WorkoutStart time.Time `json:"workoutStart"`
	BestWeight   float64   `json:"bestWeight"`
	BestReps     int       `json:"bestReps"`
	// Volume is the sum of weight * reps over all sets.
	Volume float64 `json:"volume"`
	Sets   int     `json:"sets"`
}

type Analyzer struct {
	repo workoutsRepo
}

func NewAnalyzer(repo workoutsRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

func (a *Analyzer) ExerciseHistory(ctx context.Context, userID int, exerciseName string) (_ *ExerciseHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.exercise-history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.name", exerciseName))

	sets, err := a.repo.ListSetsByExercise(ctx, userID, exerciseName)
	if err != nil {
		return nil, err
	}

	history := &ExerciseHistory{
		ExerciseName: exerciseName,
		Workouts:     []WorkoutExerciseStats{},
	}
	index := map[int]int{}
	for _, s := range sets {
		i, ok := index[s.WorkoutID]
		if !ok {
			history.Workouts = append(history.Workouts, WorkoutExerciseStats{
				WorkoutID:    s.WorkoutID,
				WorkoutStart: s.WorkoutStart,
			})
			i = len(history.Workouts) - 1
			index[s.WorkoutID] = i
		}

		stats := &history.Workouts[i]
		stats.Sets++
		stats.Volume += s.Weight * float64(s.Reps)
		// best set: heaviest, ties broken by reps
		if s.Weight > stats.BestWeight || (s.Weight == stats.BestWeight && s.Reps > stats.BestReps) {
			stats.BestWeight = s.Weight
			stats.BestReps = s.Reps
		}
	}

	return history, nil
}
