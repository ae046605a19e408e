package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/setlive/backend/internal/logging"
)

const persistTimeout = 5 * time.Second

// Manager is the authorization-checked surface DJs and attendees call. It
// owns one actor per event; each actor's goroutine is the single writer for
// that session, so read-modify-write sequences never interleave. Different
// events share no mutable state and run fully in parallel.
type Manager struct {
	store    Store
	notifier Notifier

	mu     sync.Mutex
	actors map[string]*actor
	group  singleflight.Group
}

// NewManager creates a Manager backed by the given store and notifier.
func NewManager(store Store, notifier Notifier) *Manager {
	return &Manager{
		store:    store,
		notifier: notifier,
		actors:   make(map[string]*actor),
	}
}

type cmdOut struct {
	result  any
	err     error
	mutated bool
	persist func(ctx context.Context) error
	notes   []notification
}

type cmdResult struct {
	result any
	err    error
}

type command struct {
	fn    func(st *state) cmdOut
	reply chan cmdResult
}

// actor owns one session's state. Mutations run on its goroutine; reads go
// through the atomically swapped snapshot and never touch the loop.
type actor struct {
	cmds chan command
	snap atomic.Pointer[Snapshot]
}

func (m *Manager) spawn(st *state) *actor {
	a := &actor{cmds: make(chan command, 16)}
	a.snap.Store(st.snapshot())
	go m.run(a, st)
	return a
}

func (m *Manager) run(a *actor, st *state) {
	for cmd := range a.cmds {
		out := cmd.fn(st)
		if out.err == nil && out.mutated {
			st.version++
			a.snap.Store(st.snapshot())
			if out.persist != nil {
				ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
				if err := out.persist(ctx); err != nil {
					slog.Error("session: write-through persist failed",
						slog.String("event_id", st.eventID),
						slog.Any("error", logging.WrapError(err, "persist")))
				}
				cancel()
			}
			for _, n := range out.notes {
				m.notifier.Publish(st.eventID, n.eventType, n.payload)
			}
		}
		cmd.reply <- cmdResult{out.result, out.err}
	}
}

func (a *actor) do(ctx context.Context, fn func(st *state) cmdOut) (any, error) {
	cmd := command{fn: fn, reply: make(chan cmdResult, 1)}
	select {
	case a.cmds <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res.result, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) cached(eventID string) (*actor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[eventID]
	return a, ok
}

func (m *Manager) register(eventID string, a *actor) {
	m.mu.Lock()
	m.actors[eventID] = a
	m.mu.Unlock()
}

// getActor returns the live actor for an event, lazily hydrating from the
// store after a restart. Unknown events return ErrNotFound. Hydration runs
// outside the registry lock, deduplicated per event, so a slow load for one
// event never blocks first-touch of another.
func (m *Manager) getActor(ctx context.Context, eventID string) (*actor, error) {
	if a, ok := m.cached(eventID); ok {
		return a, nil
	}
	v, err, _ := m.group.Do(eventID, func() (any, error) {
		if a, ok := m.cached(eventID); ok {
			return a, nil
		}
		stored, err := m.store.LoadSession(ctx, eventID)
		if err != nil {
			return nil, err
		}
		a := m.spawn(hydrate(stored))
		m.register(eventID, a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*actor), nil
}

// Init creates the session for an event, or returns the existing one.
// Exactly one session ever exists per event; re-init is a no-op.
func (m *Manager) Init(ctx context.Context, eventID, djID string) (*Snapshot, error) {
	if eventID == "" || djID == "" {
		return nil, ErrValidation
	}

	v, err, _ := m.group.Do(eventID, func() (any, error) {
		if a, ok := m.cached(eventID); ok {
			return a, nil
		}
		stored, err := m.store.LoadSession(ctx, eventID)
		switch {
		case err == nil:
			a := m.spawn(hydrate(stored))
			m.register(eventID, a)
			return a, nil
		case errors.Is(err, ErrNotFound):
			st := newState(uuid.New().String(), eventID, djID)
			if err := m.store.CreateSession(ctx, &StoredSession{
				SessionID: st.sessionID,
				EventID:   st.eventID,
				DJID:      st.djID,
				Settings:  st.settings,
			}); err != nil {
				return nil, err
			}
			a := m.spawn(st)
			m.register(eventID, a)
			return a, nil
		default:
			return nil, err
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(*actor).snap.Load(), nil
}

// Get returns the current snapshot for an event's session.
func (m *Manager) Get(ctx context.Context, eventID string) (*Snapshot, error) {
	a, err := m.getActor(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return a.snap.Load(), nil
}

// SubmitRequest validates quota and settings, then appends a pending request
// and broadcasts songRequested.
func (m *Manager) SubmitRequest(ctx context.Context, eventID string, track TrackDescriptor, requester Requester) (RequestView, error) {
	a, err := m.getActor(ctx, eventID)
	if err != nil {
		return RequestView{}, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	res, err := a.do(ctx, func(st *state) cmdOut {
		r, notes, err := st.submit(id, track, requester, now)
		if err != nil {
			return cmdOut{err: err}
		}
		stored := &StoredRequest{
			ID:            r.id,
			Track:         r.track,
			RequesterKey:  r.requesterKey,
			RequesterName: r.requesterName,
			RequestedAt:   r.requestedAt,
			Status:        r.status,
		}
		sessionID := st.sessionID
		return cmdOut{
			result:  r.view(),
			mutated: true,
			notes:   notes,
			persist: func(ctx context.Context) error {
				return m.store.CreateSongRequest(ctx, sessionID, stored)
			},
		}
	})
	if err != nil {
		return RequestView{}, err
	}
	return res.(RequestView), nil
}

// Vote applies one user's vote on a queued request and returns the resulting
// score. Repeating an identical vote succeeds without mutating or
// broadcasting anything.
func (m *Manager) Vote(ctx context.Context, eventID, songID, userID string, v VoteType) (int, error) {
	a, err := m.getActor(ctx, eventID)
	if err != nil {
		return 0, err
	}

	res, err := a.do(ctx, func(st *state) cmdOut {
		r, mutated, notes, err := st.vote(songID, userID, v)
		if err != nil {
			return cmdOut{err: err}
		}
		out := cmdOut{result: r.score, mutated: mutated, notes: notes}
		if mutated {
			vote := r.votes[userID]
			out.persist = func(ctx context.Context) error {
				return m.store.UpsertVote(ctx, songID, userID, vote)
			}
		}
		return out
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// SetStatus applies a DJ status transition. Played and rejected requests are
// archived to history in the same mutation; played also swaps the current
// track before anything is broadcast.
func (m *Manager) SetStatus(ctx context.Context, eventID, songID string, newStatus Status, actorID string) (RequestView, error) {
	a, err := m.getActor(ctx, eventID)
	if err != nil {
		return RequestView{}, err
	}

	now := time.Now().UTC()
	res, err := a.do(ctx, func(st *state) cmdOut {
		r, mutated, notes, err := st.transition(songID, newStatus, actorID, now)
		if err != nil {
			return cmdOut{err: err}
		}
		out := cmdOut{result: r.view(), mutated: mutated, notes: notes}
		if mutated {
			processedAt := r.processedAt
			current := st.current
			sessionID := st.sessionID
			out.persist = func(ctx context.Context) error {
				if err := m.store.UpdateSongRequestStatus(ctx, songID, newStatus, processedAt); err != nil {
					return err
				}
				if newStatus == StatusPlayed {
					return m.store.SetCurrentTrack(ctx, sessionID, current)
				}
				return nil
			}
		}
		return out
	})
	if err != nil {
		return RequestView{}, err
	}
	return res.(RequestView), nil
}

// Start marks the session live and broadcasts liveSessionStarted. Starting
// an already-active session is a no-op.
func (m *Manager) Start(ctx context.Context, eventID, actorID string) (*Snapshot, error) {
	return m.setActive(ctx, eventID, actorID, true)
}

// Stop marks the session inactive and broadcasts liveSessionEnded. The queue
// is left untouched. Stopping an inactive session is a no-op.
func (m *Manager) Stop(ctx context.Context, eventID, actorID string) (*Snapshot, error) {
	return m.setActive(ctx, eventID, actorID, false)
}

func (m *Manager) setActive(ctx context.Context, eventID, actorID string, active bool) (*Snapshot, error) {
	a, err := m.getActor(ctx, eventID)
	if err != nil {
		return nil, err
	}

	_, err = a.do(ctx, func(st *state) cmdOut {
		mutated, notes, err := st.setActive(active, actorID)
		if err != nil {
			return cmdOut{err: err}
		}
		out := cmdOut{mutated: mutated, notes: notes}
		if mutated {
			sessionID := st.sessionID
			out.persist = func(ctx context.Context) error {
				return m.store.SetSessionActive(ctx, sessionID, active)
			}
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	return a.snap.Load(), nil
}

// UpdateSettings merges the provided fields into the session settings.
// Clients pick the change up through the normal snapshot re-fetch path.
func (m *Manager) UpdateSettings(ctx context.Context, eventID, actorID string, patch SettingsPatch) (Settings, error) {
	a, err := m.getActor(ctx, eventID)
	if err != nil {
		return Settings{}, err
	}

	res, err := a.do(ctx, func(st *state) cmdOut {
		merged, err := st.mergeSettings(patch, actorID)
		if err != nil {
			return cmdOut{err: err}
		}
		sessionID := st.sessionID
		return cmdOut{
			result:  merged,
			mutated: true,
			persist: func(ctx context.Context) error {
				return m.store.UpdateSessionSettings(ctx, sessionID, merged)
			},
		}
	})
	if err != nil {
		return Settings{}, err
	}
	return res.(Settings), nil
}
