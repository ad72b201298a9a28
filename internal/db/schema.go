package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is idempotent, safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS users
(
    id            SERIAL PRIMARY KEY,
    username      VARCHAR     NOT NULL UNIQUE,
    password_hash VARCHAR     NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS routines
(
    id         SERIAL PRIMARY KEY,
    user_id    INTEGER     NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    name       VARCHAR     NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ix_routines_user_id ON routines (user_id);

CREATE TABLE IF NOT EXISTS routine_exercises
(
    id           SERIAL PRIMARY KEY,
    routine_id   INTEGER NOT NULL REFERENCES routines (id) ON DELETE CASCADE,
    name         VARCHAR NOT NULL,
    planned_sets INTEGER NOT NULL CHECK (planned_sets BETWEEN 0 AND 50),
    order_index  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS ix_routine_exercises_routine_id ON routine_exercises (routine_id);

CREATE TABLE IF NOT EXISTS workouts
(
    id           SERIAL PRIMARY KEY,
    user_id      INTEGER     NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    routine_id   INTEGER     REFERENCES routines (id) ON DELETE SET NULL,
    routine_name VARCHAR     NOT NULL,
    start_time   TIMESTAMPTZ NOT NULL,
    end_time     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS ix_workouts_user_id_start_time ON workouts (user_id, start_time DESC);

CREATE TABLE IF NOT EXISTS workout_sets
(
    id            SERIAL PRIMARY KEY,
    workout_id    INTEGER       NOT NULL REFERENCES workouts (id) ON DELETE CASCADE,
    exercise_name VARCHAR       NOT NULL,
    weight        NUMERIC(7, 2) NOT NULL CHECK (weight >= 0),
    reps          INTEGER       NOT NULL CHECK (reps >= 0),
    rpe           INTEGER       NOT NULL DEFAULT 5,
    set_number    INTEGER       NOT NULL,
    created_at    TIMESTAMPTZ   NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ix_workout_sets_workout_id ON workout_sets (workout_id);
CREATE INDEX IF NOT EXISTS ix_workout_sets_exercise_name ON workout_sets (exercise_name);
`

// Migrate ensures tables exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
