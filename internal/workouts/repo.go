package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workoutlog/internal/routines"
	"github.com/2beens/workoutlog/internal/telemetry/tracing"
)

var (
	ErrWorkoutNotFound        = errors.New("workout not found")
	ErrWorkoutAlreadyFinished = errors.New("workout already finished")
	ErrEndBeforeStart         = errors.New("end time before start time")
)

const workoutColumns = `w.id, w.user_id, w.routine_id, w.routine_name, w.start_time, w.end_time`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create starts a workout. With a routine id set, the routine must belong to the user
// and its name is copied onto the workout.
func (r *Repo) Create(ctx context.Context, userID int, nw NewWorkout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	startTime := time.Now()
	if nw.StartTime != nil {
		startTime = *nw.StartTime
	}

	var row pgx.Row
	if nw.RoutineID != nil {
		row = r.db.QueryRow(
			ctx,
			`
				INSERT INTO workouts AS w (user_id, routine_id, routine_name, start_time)
				SELECT r.user_id, r.id, r.name, $3
				FROM routines r
				WHERE r.id = $1 AND r.user_id = $2
				RETURNING `+workoutColumns+`;`,
			*nw.RoutineID, userID, startTime,
		)
	} else {
		row = r.db.QueryRow(
			ctx,
			`
				INSERT INTO workouts AS w (user_id, routine_name, start_time)
				VALUES ($1, $2, $3)
				RETURNING `+workoutColumns+`;`,
			userID, nw.RoutineName, startTime,
		)
	}

	workout, err := scanWorkout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, routines.ErrRoutineNotFound
		}
		return nil, fmt.Errorf("insert workout: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.id", workout.ID))
	return workout, nil
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	workout, err := scanWorkout(r.db.QueryRow(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts w WHERE w.id = $1 AND w.user_id = $2;`,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return workout, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) (_ []Workout, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", params.UserID))
	span.SetAttributes(attribute.String("status", params.Status))
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))

	const filter = `
		WHERE w.user_id = $1
		AND (
			$2::text = ''
			OR ($2::text = 'active' AND w.end_time IS NULL)
			OR ($2::text = 'completed' AND w.end_time IS NOT NULL)
		)`

	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM workouts w`+filter+`;`,
		params.UserID, params.Status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count workouts: %w", err)
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts w`+filter+`
			ORDER BY w.start_time DESC, w.id DESC
			LIMIT $3 OFFSET $4;`,
		params.UserID, params.Status, params.Size, (params.Page-1)*params.Size,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	workouts := []Workout{}
	for rows.Next() {
		workout, err := scanWorkout(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("rows scan: %w", err)
		}
		workouts = append(workouts, *workout)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return workouts, total, nil
}

// Finish sets the end time of an active workout.
func (r *Repo) Finish(ctx context.Context, userID, id int, endTime time.Time) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.finish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	workout, err := scanWorkout(r.db.QueryRow(
		ctx,
		`
			UPDATE workouts w SET end_time = $3
			WHERE w.id = $1 AND w.user_id = $2 AND w.end_time IS NULL AND w.start_time <= $3
			RETURNING `+workoutColumns+`;`,
		id, userID, endTime,
	))
	if err == nil {
		return workout, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// nothing updated, find out why
	existing, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !existing.Active() {
		return nil, ErrWorkoutAlreadyFinished
	}
	return nil, ErrEndBeforeStart
}

func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workouts WHERE id = $1 AND user_id = $2;`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func scanWorkout(row pgx.Row) (*Workout, error) {
	var w Workout
	if err := row.Scan(&w.ID, &w.UserID, &w.RoutineID, &w.RoutineName, &w.StartTime, &w.EndTime); err != nil {
		return nil, err
	}
	return &w, nil
}
