package routines

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workoutlog/internal/telemetry/tracing"
	"github.com/2beens/workoutlog/pkg"
)

var (
	ErrRoutineNotFound  = errors.New("routine not found")
	ErrExerciseNotFound = errors.New("exercise not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create stores the routine together with its exercises in a single transaction.
func (r *Repo) Create(ctx context.Context, userID int, req CreateRoutineRequest) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	routine := Routine{
		UserID:    userID,
		Name:      req.Name,
		Exercises: make([]Exercise, 0, len(req.Exercises)),
	}
	if err = tx.QueryRow(
		ctx,
		`INSERT INTO routines (user_id, name) VALUES ($1, $2) RETURNING id, created_at;`,
		userID, req.Name,
	).Scan(&routine.ID, &routine.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert routine: %w", err)
	}

	for i, in := range req.Exercises {
		orderIndex := i
		if in.OrderIndex != nil {
			orderIndex = *in.OrderIndex
		}
		ex := Exercise{
			RoutineID:   routine.ID,
			Name:        in.Name,
			PlannedSets: in.PlannedSets,
			OrderIndex:  orderIndex,
		}
		if err = tx.QueryRow(
			ctx,
			`INSERT INTO routine_exercises (routine_id, name, planned_sets, order_index)
				VALUES ($1, $2, $3, $4) RETURNING id;`,
			routine.ID, ex.Name, ex.PlannedSets, ex.OrderIndex,
		).Scan(&ex.ID); err != nil {
			return nil, fmt.Errorf("insert exercise [%s]: %w", in.Name, err)
		}
		routine.Exercises = append(routine.Exercises, ex)
	}

	span.SetAttributes(attribute.Int("routine.id", routine.ID))
	sortExercises(routine.Exercises)
	return &routine, nil
}

func (r *Repo) List(ctx context.Context, userID int) (_ []Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				r.id, r.user_id, r.name, r.created_at,
				re.id, re.name, re.planned_sets, re.order_index
			FROM routines r
			LEFT JOIN routine_exercises re ON re.routine_id = r.id
			WHERE r.user_id = $1
			ORDER BY r.created_at DESC, r.id DESC, re.order_index, re.id;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2routines(rows)
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Routine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				r.id, r.user_id, r.name, r.created_at,
				re.id, re.name, re.planned_sets, re.order_index
			FROM routines r
			LEFT JOIN routine_exercises re ON re.routine_id = r.id
			WHERE r.id = $1 AND r.user_id = $2
			ORDER BY re.order_index, re.id;`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routines, err := rows2routines(rows)
	if err != nil {
		return nil, err
	}
	if len(routines) != 1 {
		return nil, ErrRoutineNotFound
	}
	return &routines[0], nil
}

// Delete removes the routine and its exercises. Workouts started from it keep their rows.
func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM routines WHERE id = $1 AND user_id = $2;`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoutineNotFound
	}
	return nil
}

func (r *Repo) ListExercises(ctx context.Context, userID, routineID int) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.listexercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("routine.id", routineID))

	routine, err := r.Get(ctx, userID, routineID)
	if err != nil {
		return nil, err
	}
	return routine.Exercises, nil
}

func (r *Repo) AddExercise(ctx context.Context, userID, routineID int, in ExerciseInput) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.addexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("routine.id", routineID))

	ex := Exercise{
		RoutineID:   routineID,
		Name:        in.Name,
		PlannedSets: in.PlannedSets,
	}
	// the insert only happens when the routine belongs to the user
	if err := r.db.QueryRow(
		ctx,
		`
			INSERT INTO routine_exercises (routine_id, name, planned_sets, order_index)
			SELECT r.id, $3, $4, COALESCE($5::int, (
				SELECT COALESCE(MAX(order_index) + 1, 0) FROM routine_exercises WHERE routine_id = r.id
			))
			FROM routines r
			WHERE r.id = $1 AND r.user_id = $2
			RETURNING id, order_index;`,
		routineID, userID, in.Name, in.PlannedSets, in.OrderIndex,
	).Scan(&ex.ID, &ex.OrderIndex); err != nil {
		// fk violation: the routine was deleted concurrently
		if errors.Is(err, pgx.ErrNoRows) || pkg.IsForeignKeyViolationError(err) {
			return nil, ErrRoutineNotFound
		}
		return nil, fmt.Errorf("insert exercise: %w", err)
	}

	span.SetAttributes(attribute.Int("exercise.id", ex.ID))
	return &ex, nil
}

func (r *Repo) DeleteExercise(ctx context.Context, userID, exerciseID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.deleteexercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	tag, err := r.db.Exec(
		ctx,
		`
			DELETE FROM routine_exercises re
			USING routines r
			WHERE re.id = $1 AND re.routine_id = r.id AND r.user_id = $2;`,
		exerciseID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func rows2routines(rows pgx.Rows) ([]Routine, error) {
	var routines []Routine
	index := map[int]int{}
	for rows.Next() {
		var (
			routine     Routine
			exID        *int
			exName      *string
			plannedSets *int
			orderIndex  *int
		)
		if err := rows.Scan(
			&routine.ID, &routine.UserID, &routine.Name, &routine.CreatedAt,
			&exID, &exName, &plannedSets, &orderIndex,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}

		i, ok := index[routine.ID]
		if !ok {
			routine.Exercises = []Exercise{}
			routines = append(routines, routine)
			i = len(routines) - 1
			index[routine.ID] = i
		}
		if exID != nil {
			routines[i].Exercises = append(routines[i].Exercises, Exercise{
				ID:          *exID,
				RoutineID:   routine.ID,
				Name:        *exName,
				PlannedSets: *plannedSets,
				OrderIndex:  *orderIndex,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return routines, nil
}
