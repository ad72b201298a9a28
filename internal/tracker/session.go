package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/2beens/workoutlog/internal/routines"
	"github.com/2beens/workoutlog/internal/workouts"
)

type SessionState string

const (
	StateNotStarted SessionState = "not_started"
	StateInProgress SessionState = "in_progress"
	StateFinished   SessionState = "finished"
)

type SlotState string

const (
	SlotEmpty     SlotState = "empty"
	SlotDrafted   SlotState = "drafted"
	SlotPersisted SlotState = "persisted"
)

var (
	ErrAlreadyStarted     = errors.New("live workout already started")
	ErrNotInProgress      = errors.New("live workout not in progress")
	ErrSlotOutOfRange     = errors.New("slot out of range")
	ErrSlotPersisted      = errors.New("slot already persisted")
	ErrExerciseOutOfRange = errors.New("exercise index out of range")
	ErrInvalidDraft       = errors.New("invalid draft")
	ErrFlushFailed        = errors.New("flush failed")
	ErrStateNotSaved      = errors.New("live workout state not saved")
)

type ExercisePlan struct {
	Name        string `json:"name"`
	PlannedSets int    `json:"plannedSets"`
}

// Slot is the draft input for one planned set of the current exercise.
type Slot struct {
	Weight float64   `json:"weight"`
	Reps   int       `json:"reps"`
	RPE    int       `json:"rpe"`
	State  SlotState `json:"state"`
	SetID  *int      `json:"setId,omitempty"`
	// Error holds the last failed persist attempt, cleared on success or edit.
	Error string `json:"error,omitempty"`
}

type Draft struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
	RPE    int     `json:"rpe"`
}

type Session struct {
	ID          string         `json:"id"`
	UserID      int            `json:"userId"`
	WorkoutID   int            `json:"workoutId"`
	RoutineID   int            `json:"routineId"`
	RoutineName string         `json:"routineName"`
	State       SessionState   `json:"state"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     *time.Time     `json:"endTime,omitempty"`
	Exercises   []ExercisePlan `json:"exercises"`
	Cursor      int            `json:"cursor"`
	Slots       []Slot         `json:"slots"`
	// PersistedCounts holds, per exercise name, how many sets this session persisted.
	PersistedCounts map[string]int `json:"persistedCounts"`
	// FlushPending is stored before sets are written and cleared with the state that records them.
	// When it is still set on load, the previous save was lost and the next flush reconciles.
	FlushPending bool `json:"flushPending,omitempty"`
}

func emptySlot() Slot {
	return Slot{RPE: workouts.DefaultRPE, State: SlotEmpty}
}

// NewSession returns a session in the not started state.
func NewSession(userID int) *Session {
	return &Session{
		ID:              uuid.NewString(),
		UserID:          userID,
		State:           StateNotStarted,
		Exercises:       []ExercisePlan{},
		Slots:           []Slot{},
		PersistedCounts: map[string]int{},
	}
}

// Start creates the workout row and places the cursor on the first exercise.
func (s *Session) Start(ctx context.Context, store Store, routine *routines.Routine, now time.Time) error {
	if s.State != StateNotStarted {
		return ErrAlreadyStarted
	}

	workout, err := store.CreateWorkout(ctx, s.UserID, routine, now)
	if err != nil {
		return fmt.Errorf("create workout: %w", err)
	}

	s.WorkoutID = workout.ID
	s.RoutineID = routine.ID
	s.RoutineName = routine.Name
	s.StartTime = workout.StartTime
	s.Exercises = make([]ExercisePlan, 0, len(routine.Exercises))
	for _, ex := range routine.Exercises {
		s.Exercises = append(s.Exercises, ExercisePlan{Name: ex.Name, PlannedSets: ex.PlannedSets})
	}
	s.State = StateInProgress
	s.Cursor = 0
	s.resetSlots()

	return nil
}

func (s *Session) CurrentExercise() (ExercisePlan, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Exercises) {
		return ExercisePlan{}, false
	}
	return s.Exercises[s.Cursor], true
}

func (s *Session) resetSlots() {
	current, ok := s.CurrentExercise()
	if !ok {
		s.Slots = []Slot{}
		return
	}
	s.Slots = make([]Slot, min(max(current.PlannedSets, 0), routines.MaxPlannedSets))
	for i := range s.Slots {
		s.Slots[i] = emptySlot()
	}
}

func (s *Session) hasDraftedSlots() bool {
	for _, slot := range s.Slots {
		if slot.State == SlotDrafted {
			return true
		}
	}
	return false
}

// SetDraft edits a slot of the current exercise. A slot with weight or reps above zero is drafted,
// otherwise it goes back to empty.
func (s *Session) SetDraft(slot int, draft Draft) error {
	if s.State != StateInProgress {
		return ErrNotInProgress
	}
	if slot < 0 || slot >= len(s.Slots) {
		return ErrSlotOutOfRange
	}
	if s.Slots[slot].State == SlotPersisted {
		return ErrSlotPersisted
	}
	if err := validateDraft(draft); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	state := SlotEmpty
	if draft.Weight > 0 || draft.Reps > 0 {
		state = SlotDrafted
	}
	s.Slots[slot] = Slot{
		Weight: draft.Weight,
		Reps:   draft.Reps,
		RPE:    draft.RPE,
		State:  state,
	}
	return nil
}

func validateDraft(draft Draft) error {
	if err := workouts.ValidateWeight(draft.Weight); err != nil {
		return err
	}
	if err := workouts.ValidateReps(draft.Reps); err != nil {
		return err
	}
	return workouts.ValidateRPE(draft.RPE)
}

// Flush persists every drafted slot of the current exercise. Slots that fail to persist stay
// drafted and all failures are returned together.
func (s *Session) Flush(ctx context.Context, store Store) (persisted int, err error) {
	if s.State != StateInProgress {
		return 0, ErrNotInProgress
	}
	current, ok := s.CurrentExercise()
	if !ok {
		s.FlushPending = false
		return 0, nil
	}

	if s.FlushPending && s.hasDraftedSlots() {
		if err := s.reconcile(ctx, store, current.Name); err != nil {
			return 0, err
		}
	}
	s.FlushPending = false

	var flushErr error
	for i := range s.Slots {
		slot := &s.Slots[i]
		if slot.State != SlotDrafted {
			continue
		}

		setNumber := s.PersistedCounts[current.Name] + 1
		rpe := slot.RPE
		set, err := store.AddSet(ctx, s.UserID, s.WorkoutID, workouts.SetInput{
			ExerciseName: current.Name,
			Weight:       slot.Weight,
			Reps:         slot.Reps,
			RPE:          &rpe,
			SetNumber:    &setNumber,
		})
		if err != nil {
			slot.Error = err.Error()
			flushErr = multierr.Append(flushErr, fmt.Errorf("slot %d: %w", i, err))
			continue
		}

		slot.State = SlotPersisted
		slot.SetID = &set.ID
		slot.Error = ""
		s.PersistedCounts[current.Name] = setNumber
		persisted++
	}

	if flushErr != nil {
		return persisted, fmt.Errorf("%w: %w", ErrFlushFailed, flushErr)
	}
	return persisted, nil
}

// reconcile marks drafted slots persisted when their sets were already written by a flush
// whose state was never saved. Sets are matched in order by set number and values.
func (s *Session) reconcile(ctx context.Context, store Store, exerciseName string) error {
	sets, err := store.ListSets(ctx, s.UserID, s.WorkoutID)
	if err != nil {
		return fmt.Errorf("list persisted sets: %w", err)
	}

	base := s.PersistedCounts[exerciseName]
	highest := base
	written := make(map[int]workouts.Set)
	for _, set := range sets {
		if set.ExerciseName != exerciseName || set.SetNumber <= base {
			continue
		}
		written[set.SetNumber] = set
		highest = max(highest, set.SetNumber)
	}

	next := base + 1
	for i := range s.Slots {
		slot := &s.Slots[i]
		if slot.State != SlotDrafted {
			continue
		}
		set, ok := written[next]
		if !ok || set.Weight != slot.Weight || set.Reps != slot.Reps || set.RPE != slot.RPE {
			break
		}
		setID := set.ID
		slot.State = SlotPersisted
		slot.SetID = &setID
		slot.Error = ""
		next++
	}

	// unmatched sets keep their numbers too
	s.PersistedCounts[exerciseName] = highest
	return nil
}

// Select flushes the current exercise and moves the cursor to index.
// The cursor stays put when the flush fails.
func (s *Session) Select(ctx context.Context, store Store, index int) (persisted int, err error) {
	if s.State != StateInProgress {
		return 0, ErrNotInProgress
	}
	if index < 0 || index >= len(s.Exercises) {
		return 0, ErrExerciseOutOfRange
	}

	persisted, err = s.Flush(ctx, store)
	if err != nil {
		return persisted, err
	}

	s.Cursor = index
	s.resetSlots()
	return persisted, nil
}

func (s *Session) Next(ctx context.Context, store Store) (int, error) {
	return s.Select(ctx, store, s.Cursor+1)
}

func (s *Session) Previous(ctx context.Context, store Store) (int, error) {
	return s.Select(ctx, store, s.Cursor-1)
}

// Finish flushes, then ends the workout at now, or at its start if now lies before it.
func (s *Session) Finish(ctx context.Context, store Store, now time.Time) (persisted int, err error) {
	if s.State != StateInProgress {
		return 0, ErrNotInProgress
	}

	persisted, err = s.Flush(ctx, store)
	if err != nil {
		return persisted, err
	}

	endTime := now
	if endTime.Before(s.StartTime) {
		endTime = s.StartTime
	}
	workout, err := store.FinishWorkout(ctx, s.UserID, s.WorkoutID, endTime)
	switch {
	case errors.Is(err, workouts.ErrWorkoutAlreadyFinished):
		// ended through the workouts api meanwhile, nothing left to write
	case err != nil:
		return persisted, fmt.Errorf("finish workout: %w", err)
	case workout.EndTime != nil:
		endTime = *workout.EndTime
	}

	s.EndTime = &endTime
	s.State = StateFinished
	return persisted, nil
}
