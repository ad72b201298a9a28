package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workoutlog/internal/telemetry/metrics"
	"github.com/2beens/workoutlog/internal/telemetry/tracing"
)

// Service runs at most one live workout per user. Mutations of one user are serialized.
type Service struct {
	store          Store
	states         StateStore
	metricsManager *metrics.Manager
	locks          *userLocks

	NowFunc func() time.Time
}

func NewService(store Store, states StateStore, metricsManager *metrics.Manager) *Service {
	return &Service{
		store:          store,
		states:         states,
		metricsManager: metricsManager,
		locks:          newUserLocks(),
		NowFunc:        time.Now,
	}
}

func (s *Service) Start(ctx context.Context, userID, routineID int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("routine.id", routineID))

	unlock := s.locks.lock(userID)
	defer unlock()

	existing, err := s.states.Load(ctx, userID)
	switch {
	case err == nil && existing.State == StateInProgress:
		return nil, ErrAlreadyStarted
	case err != nil && !errors.Is(err, ErrNoLiveSession):
		return nil, err
	}

	routine, err := s.store.GetRoutine(ctx, userID, routineID)
	if err != nil {
		return nil, err
	}

	session := NewSession(userID)
	if err := session.Start(ctx, s.store, routine, s.NowFunc()); err != nil {
		return nil, err
	}
	if err := s.states.Save(ctx, session); err != nil {
		return nil, err
	}

	s.metricsManager.CounterWorkoutsStarted.Inc()
	log.Debugf("live workout %s started for user %d, workout %d", session.ID, userID, session.WorkoutID)
	return session, nil
}

func (s *Service) Get(ctx context.Context, userID int) (*Session, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.states.Load(ctx, userID)
}

// Discard forgets the live session. The workout row and its persisted sets stay.
func (s *Service) Discard(ctx context.Context, userID int) error {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.states.Delete(ctx, userID)
}

func (s *Service) SetDraft(ctx context.Context, userID, slot int, draft Draft) (*Session, error) {
	return s.mutate(ctx, userID, "tracker.setdraft", false, func(session *Session) (int, error) {
		return 0, session.SetDraft(slot, draft)
	})
}

func (s *Service) Flush(ctx context.Context, userID int) (*Session, error) {
	return s.mutate(ctx, userID, "tracker.flush", true, func(session *Session) (int, error) {
		return session.Flush(ctx, s.store)
	})
}

func (s *Service) Next(ctx context.Context, userID int) (*Session, error) {
	return s.mutate(ctx, userID, "tracker.next", true, func(session *Session) (int, error) {
		return session.Next(ctx, s.store)
	})
}

func (s *Service) Previous(ctx context.Context, userID int) (*Session, error) {
	return s.mutate(ctx, userID, "tracker.previous", true, func(session *Session) (int, error) {
		return session.Previous(ctx, s.store)
	})
}

func (s *Service) Select(ctx context.Context, userID, index int) (*Session, error) {
	return s.mutate(ctx, userID, "tracker.select", true, func(session *Session) (int, error) {
		return session.Select(ctx, s.store, index)
	})
}

func (s *Service) Finish(ctx context.Context, userID int) (*Session, error) {
	session, err := s.mutate(ctx, userID, "tracker.finish", true, func(session *Session) (int, error) {
		return session.Finish(ctx, s.store, s.NowFunc())
	})
	if err == nil {
		s.metricsManager.CounterWorkoutsFinished.Inc()
	}
	return session, err
}

// mutate loads the session, applies fn and stores the result even when fn fails,
// so partially flushed slots are never lost. When fn may write sets, the session is
// first stored with FlushPending, so a lost final save is reconciled by the next flush.
func (s *Service) mutate(
	ctx context.Context,
	userID int,
	spanName string,
	writesSets bool,
	fn func(session *Session) (persisted int, err error),
) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, spanName)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	unlock := s.locks.lock(userID)
	defer unlock()

	session, err := s.states.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if writesSets && session.State == StateInProgress && !session.FlushPending && session.hasDraftedSlots() {
		session.FlushPending = true
		if err := s.states.Save(ctx, session); err != nil {
			return nil, err
		}
		// only the stored copy carries the marker
		session.FlushPending = false
	}

	persisted, fnErr := fn(session)
	if persisted > 0 {
		s.metricsManager.CounterSetsLogged.Add(float64(persisted))
	}

	if err := s.states.Save(ctx, session); err != nil {
		log.Errorf("live workout %s, save state: %s", session.ID, err)
		if fnErr == nil {
			return nil, fmt.Errorf("%w: %w", ErrStateNotSaved, err)
		}
	}

	return session, fnErr
}

type userLock struct {
	sync.Mutex
	refs int
}

type userLocks struct {
	mutex sync.Mutex
	locks map[int]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{
		locks: make(map[int]*userLock),
	}
}

// lock acquires the user's mutex and returns its release func.
func (ul *userLocks) lock(userID int) func() {
	ul.mutex.Lock()
	l, ok := ul.locks[userID]
	if !ok {
		l = &userLock{}
		ul.locks[userID] = l
	}
	l.refs++
	ul.mutex.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		ul.mutex.Lock()
		l.refs--
		if l.refs == 0 {
			delete(ul.locks, userID)
		}
		ul.mutex.Unlock()
	}
}
