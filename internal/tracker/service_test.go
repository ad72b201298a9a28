package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/2beens/workoutlog/internal/routines"
	"github.com/2beens/workoutlog/internal/telemetry/metrics"
	"github.com/2beens/workoutlog/internal/tracker"
	"github.com/2beens/workoutlog/internal/workouts"
)

func newTestService(t *testing.T, failFor func(in workouts.SetInput) error) (*tracker.Service, *storedSets, *metrics.Manager) {
	t.Helper()
	store, stored := newStoreMock(t, failFor)
	store.EXPECT().GetRoutine(gomock.Any(), testUserID, 3).Return(testRoutine(), nil).AnyTimes()
	store.EXPECT().GetRoutine(gomock.Any(), testUserID, gomock.Not(3)).Return(nil, routines.ErrRoutineNotFound).AnyTimes()

	metricsManager := metrics.NewTestManager()
	service := tracker.NewService(store, tracker.NewMemoryStateStore(), metricsManager)
	service.NowFunc = func() time.Time { return testStart }
	return service, stored, metricsManager
}

func TestService_StartAndGet(t *testing.T) {
	service, _, metricsManager := newTestService(t, nil)
	ctx := context.Background()

	_, err := service.Get(ctx, testUserID)
	assert.ErrorIs(t, err, tracker.ErrNoLiveSession)

	session, err := service.Start(ctx, testUserID, 3)
	require.NoError(t, err)
	assert.Equal(t, tracker.StateInProgress, session.State)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterWorkoutsStarted))

	loaded, err := service.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.Len(t, loaded.Slots, 2)

	// one live workout per user
	_, err = service.Start(ctx, testUserID, 3)
	assert.ErrorIs(t, err, tracker.ErrAlreadyStarted)
}

func TestService_UnknownRoutine(t *testing.T) {
	service, _, _ := newTestService(t, nil)
	_, err := service.Start(context.Background(), testUserID, 99)
	assert.ErrorIs(t, err, routines.ErrRoutineNotFound)

	_, err = service.Get(context.Background(), testUserID)
	assert.ErrorIs(t, err, tracker.ErrNoLiveSession)
}

func TestService_FullWorkout(t *testing.T) {
	service, stored, metricsManager := newTestService(t, nil)
	ctx := context.Background()

	_, err := service.Start(ctx, testUserID, 3)
	require.NoError(t, err)

	_, err = service.SetDraft(ctx, testUserID, 0, tracker.Draft{Weight: 135, Reps: 5, RPE: 5})
	require.NoError(t, err)
	session, err := service.Next(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.Cursor)

	_, err = service.SetDraft(ctx, testUserID, 0, tracker.Draft{Weight: 40, Reps: 12, RPE: 7})
	require.NoError(t, err)
	session, err = service.Finish(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, tracker.StateFinished, session.State)

	assert.Len(t, stored.inputs, 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(metricsManager.CounterSetsLogged))
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterWorkoutsFinished))

	// finished session stays readable, and a new one can be started
	loaded, err := service.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, tracker.StateFinished, loaded.State)

	_, err = service.Next(ctx, testUserID)
	assert.ErrorIs(t, err, tracker.ErrNotInProgress)

	restarted, err := service.Start(ctx, testUserID, 3)
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, restarted.ID)
}

func TestService_FailedFlushStateIsSaved(t *testing.T) {
	service, _, _ := newTestService(t, func(in workouts.SetInput) error {
		if in.Reps == 3 {
			return errors.New("db down")
		}
		return nil
	})
	ctx := context.Background()

	_, err := service.Start(ctx, testUserID, 3)
	require.NoError(t, err)
	_, err = service.SetDraft(ctx, testUserID, 0, tracker.Draft{Weight: 100, Reps: 3, RPE: 5})
	require.NoError(t, err)
	_, err = service.SetDraft(ctx, testUserID, 1, tracker.Draft{Weight: 100, Reps: 5, RPE: 5})
	require.NoError(t, err)

	session, err := service.Flush(ctx, testUserID)
	assert.ErrorIs(t, err, tracker.ErrFlushFailed)
	require.NotNil(t, session)

	loaded, err := service.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, tracker.SlotDrafted, loaded.Slots[0].State)
	assert.Equal(t, tracker.SlotPersisted, loaded.Slots[1].State)
	assert.Equal(t, 1, loaded.PersistedCounts["A"])
}

func TestService_Discard(t *testing.T) {
	service, _, _ := newTestService(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, service.Discard(ctx, testUserID), tracker.ErrNoLiveSession)

	_, err := service.Start(ctx, testUserID, 3)
	require.NoError(t, err)
	require.NoError(t, service.Discard(ctx, testUserID))

	_, err = service.Get(ctx, testUserID)
	assert.ErrorIs(t, err, tracker.ErrNoLiveSession)
}

func TestService_ConcurrentDraftsAreSerialized(t *testing.T) {
	service, _, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := service.Start(ctx, testUserID, 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.SetDraft(ctx, testUserID, i%2, tracker.Draft{Weight: float64(i + 1), Reps: 1, RPE: 5})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	loaded, err := service.Get(ctx, testUserID)
	require.NoError(t, err)
	for _, slot := range loaded.Slots {
		assert.Equal(t, tracker.SlotDrafted, slot.State)
	}
}

// flakyStateStore fails the save calls listed in failSaves, counted from 1.
type flakyStateStore struct {
	*tracker.MemoryStateStore
	saves     int
	failSaves map[int]bool
}

func (fs *flakyStateStore) Save(ctx context.Context, session *tracker.Session) error {
	fs.saves++
	if fs.failSaves[fs.saves] {
		return errors.New("redis down")
	}
	return fs.MemoryStateStore.Save(ctx, session)
}

func TestService_LostSaveDoesNotDuplicateSets(t *testing.T) {
	store, stored := newStoreMock(t, nil)
	store.EXPECT().GetRoutine(gomock.Any(), testUserID, 3).Return(testRoutine(), nil).AnyTimes()
	// saves: 1 start, 2 draft, 3 draft, 4 pending marker before next, 5 after next
	states := &flakyStateStore{
		MemoryStateStore: tracker.NewMemoryStateStore(),
		failSaves:        map[int]bool{5: true},
	}
	service := tracker.NewService(store, states, metrics.NewTestManager())
	service.NowFunc = func() time.Time { return testStart }
	ctx := context.Background()

	_, err := service.Start(ctx, testUserID, 3)
	require.NoError(t, err)
	_, err = service.SetDraft(ctx, testUserID, 0, tracker.Draft{Weight: 100, Reps: 5, RPE: 7})
	require.NoError(t, err)
	_, err = service.SetDraft(ctx, testUserID, 1, tracker.Draft{Weight: 100, Reps: 4, RPE: 8})
	require.NoError(t, err)

	session, err := service.Next(ctx, testUserID)
	assert.ErrorIs(t, err, tracker.ErrStateNotSaved)
	assert.Nil(t, session)
	require.Len(t, stored.inputs, 2)

	loaded, err := service.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, loaded.FlushPending)
	assert.Equal(t, 0, loaded.Cursor)

	session, err = service.Next(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.Cursor)
	assert.False(t, session.FlushPending)
	assert.Equal(t, 2, session.PersistedCounts["A"])

	require.Len(t, stored.inputs, 2)
	assert.Equal(t, 1, *stored.inputs[0].SetNumber)
	assert.Equal(t, 2, *stored.inputs[1].SetNumber)
}

func TestService_LostSaveWithEditedDraftKeepsNumbering(t *testing.T) {
	store, stored := newStoreMock(t, nil)
	store.EXPECT().GetRoutine(gomock.Any(), testUserID, 3).Return(testRoutine(), nil).AnyTimes()
	// saves: 1 start, 2 draft, 3 pending marker before flush, 4 after flush
	states := &flakyStateStore{
		MemoryStateStore: tracker.NewMemoryStateStore(),
		failSaves:        map[int]bool{4: true},
	}
	service := tracker.NewService(store, states, metrics.NewTestManager())
	ctx := context.Background()

	_, err := service.Start(ctx, testUserID, 3)
	require.NoError(t, err)
	_, err = service.SetDraft(ctx, testUserID, 0, tracker.Draft{Weight: 60, Reps: 10, RPE: 6})
	require.NoError(t, err)
	_, err = service.Flush(ctx, testUserID)
	require.ErrorIs(t, err, tracker.ErrStateNotSaved)

	// the stale slot is edited before the retry, so it no longer matches the stored set
	_, err = service.SetDraft(ctx, testUserID, 0, tracker.Draft{Weight: 65, Reps: 10, RPE: 6})
	require.NoError(t, err)
	session, err := service.Flush(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, tracker.SlotPersisted, session.Slots[0].State)
	assert.Equal(t, 2, session.PersistedCounts["A"])

	require.Len(t, stored.inputs, 2)
	assert.Equal(t, 2, *stored.inputs[1].SetNumber)
}
