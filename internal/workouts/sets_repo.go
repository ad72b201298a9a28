package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workoutlog/internal/telemetry/tracing"
	"github.com/2beens/workoutlog/pkg"
)

var (
	ErrSetNotFound    = errors.New("set not found")
	ErrSetOutOfBounds = errors.New("set values out of bounds")
)

const setColumns = `s.id, s.workout_id, s.exercise_name, s.weight, s.reps, s.rpe, s.set_number, s.created_at`

// HistorySet is a set together with the start time of its workout.
type HistorySet struct {
	Set
	WorkoutStart time.Time `json:"workoutStart"`
}

func (r *Repo) ListSets(ctx context.Context, userID, workoutID int) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	if _, err := r.Get(ctx, userID, workoutID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+setColumns+` FROM workout_sets s WHERE s.workout_id = $1 ORDER BY s.created_at, s.id;`,
		workoutID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := []Set{}
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		sets = append(sets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

// AddSet stores a set on a workout owned by the user.
func (r *Repo) AddSet(ctx context.Context, userID, workoutID int, in SetInput) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	s, err := scanSet(r.db.QueryRow(
		ctx,
		`
			INSERT INTO workout_sets AS s (workout_id, exercise_name, weight, reps, rpe, set_number)
			SELECT w.id, $3, $4, $5, $6, COALESCE($7::int, (
				SELECT COALESCE(MAX(set_number), 0) + 1
				FROM workout_sets
				WHERE workout_id = w.id AND exercise_name = $3
			))
			FROM workouts w
			WHERE w.id = $1 AND w.user_id = $2
			RETURNING `+setColumns+`;`,
		workoutID, userID, in.ExerciseName, in.Weight, in.Reps, in.rpeOrDefault(), in.SetNumber,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pkg.IsForeignKeyViolationError(err) {
			return nil, ErrWorkoutNotFound
		}
		if pkg.IsCheckViolationError(err) {
			return nil, ErrSetOutOfBounds
		}
		return nil, fmt.Errorf("insert set: %w", err)
	}

	span.SetAttributes(attribute.Int("set.id", s.ID))
	return s, nil
}

// UpdateSet changes only the fields present in the update.
func (r *Repo) UpdateSet(ctx context.Context, userID, setID int, u SetUpdate) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", setID))

	s, err := scanSet(r.db.QueryRow(
		ctx,
		`
			UPDATE workout_sets s SET
				exercise_name = COALESCE($3::text, s.exercise_name),
				weight = COALESCE($4::numeric, s.weight),
				reps = COALESCE($5::int, s.reps),
				rpe = COALESCE($6::int, s.rpe),
				set_number = COALESCE($7::int, s.set_number)
			FROM workouts w
			WHERE s.id = $1 AND s.workout_id = w.id AND w.user_id = $2
			RETURNING `+setColumns+`;`,
		setID, userID, u.ExerciseName, u.Weight, u.Reps, u.RPE, u.SetNumber,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		if pkg.IsCheckViolationError(err) {
			return nil, ErrSetOutOfBounds
		}
		return nil, fmt.Errorf("update set: %w", err)
	}
	return s, nil
}

func (r *Repo) DeleteSet(ctx context.Context, userID, setID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", setID))

	tag, err := r.db.Exec(
		ctx,
		`
			DELETE FROM workout_sets s
			USING workouts w
			WHERE s.id = $1 AND s.workout_id = w.id AND w.user_id = $2;`,
		setID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}
	return nil
}

// ListSetsByExercise returns every set of the user for the exercise name (case insensitive),
// oldest workout first.
func (r *Repo) ListSetsByExercise(ctx context.Context, userID int, exerciseName string) (_ []HistorySet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.listbyexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.name", exerciseName))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT `+setColumns+`, w.start_time
			FROM workout_sets s
			JOIN workouts w ON w.id = s.workout_id
			WHERE w.user_id = $1 AND lower(s.exercise_name) = lower($2)
			ORDER BY w.start_time, s.workout_id, s.set_number, s.id;`,
		userID, exerciseName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []HistorySet
	for rows.Next() {
		var hs HistorySet
		if err := rows.Scan(
			&hs.ID, &hs.WorkoutID, &hs.ExerciseName, &hs.Weight, &hs.Reps, &hs.RPE, &hs.SetNumber, &hs.CreatedAt,
			&hs.WorkoutStart,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		sets = append(sets, hs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

func scanSet(row pgx.Row) (*Set, error) {
	var s Set
	if err := row.Scan(&s.ID, &s.WorkoutID, &s.ExerciseName, &s.Weight, &s.Reps, &s.RPE, &s.SetNumber, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
