package session

import (
	"sort"
	"time"
)

// songRequest is the mutable engine-side representation of a request.
// The vote map is the single source of truth; score is recomputed from it
// after every vote mutation.
type songRequest struct {
	id            string
	track         TrackDescriptor
	requesterKey  string
	requesterName string
	requestedAt   time.Time
	status        Status
	processedAt   *time.Time
	votes         map[string]VoteType
	score         int
}

func (r *songRequest) recount() {
	score := 0
	for _, v := range r.votes {
		if v == VoteUp {
			score++
		} else {
			score--
		}
	}
	r.score = score
}

func (r *songRequest) view() RequestView {
	return RequestView{
		ID:          r.id,
		TrackID:     r.track.TrackID,
		TrackName:   r.track.Name,
		Artist:      r.track.Artist,
		Album:       r.track.Album,
		DurationMS:  r.track.DurationMS,
		PreviewURL:  r.track.PreviewURL,
		ImageURL:    r.track.ImageURL,
		ExternalURL: r.track.ExternalURL,
		RequestedBy: r.requesterName,
		RequestedAt: r.requestedAt,
		Status:      r.status,
		VoteScore:   r.score,
	}
}

// state is the aggregate owned by a single actor goroutine. Methods on it
// must only run from that goroutine; they return the notifications to fan
// out after the mutation commits.
type state struct {
	sessionID string
	eventID   string
	djID      string
	isActive  bool
	current   *CurrentTrack
	settings  Settings

	queue   []*songRequest // insertion order; vote ordering applied per snapshot
	history []*songRequest // archival order, append-only

	requesterKeys map[string]struct{}
	totalRequests int
	totalVotes    int
	version       uint64
}

func newState(sessionID, eventID, djID string) *state {
	return &state{
		sessionID:     sessionID,
		eventID:       eventID,
		djID:          djID,
		settings:      DefaultSettings(),
		requesterKeys: make(map[string]struct{}),
	}
}

// hydrate rebuilds a state from its persisted form. Derived fields (scores,
// stats) are recomputed from the stored vote relation rather than trusted.
func hydrate(s *StoredSession) *state {
	st := newState(s.SessionID, s.EventID, s.DJID)
	st.isActive = s.IsActive
	st.settings = s.Settings
	st.current = s.CurrentTrack

	reqs := make([]*songRequest, 0, len(s.Requests))
	for i := range s.Requests {
		sr := &s.Requests[i]
		votes := make(map[string]VoteType, len(sr.Votes))
		for voter, v := range sr.Votes {
			votes[voter] = v
		}
		r := &songRequest{
			id:            sr.ID,
			track:         sr.Track,
			requesterKey:  sr.RequesterKey,
			requesterName: sr.RequesterName,
			requestedAt:   sr.RequestedAt,
			status:        sr.Status,
			processedAt:   sr.ProcessedAt,
			votes:         votes,
		}
		r.recount()
		reqs = append(reqs, r)
		st.requesterKeys[r.requesterKey] = struct{}{}
		st.totalRequests++
		st.totalVotes += len(r.votes)
	}

	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].requestedAt.Before(reqs[j].requestedAt) })
	var archived []*songRequest
	for _, r := range reqs {
		switch r.status {
		case StatusPlayed, StatusRejected:
			archived = append(archived, r)
		default:
			st.queue = append(st.queue, r)
		}
	}
	sort.SliceStable(archived, func(i, j int) bool {
		ti, tj := archived[i].processedAt, archived[j].processedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.Before(*tj)
	})
	st.history = archived
	return st
}

func (st *state) findInQueue(songID string) (int, *songRequest) {
	for i, r := range st.queue {
		if r.id == songID {
			return i, r
		}
	}
	return -1, nil
}

func (st *state) outstandingFor(key string) int {
	n := 0
	for _, r := range st.queue {
		if r.requesterKey == key {
			n++
		}
	}
	return n
}

// submit appends a new pending request after quota and settings checks.
func (st *state) submit(id string, track TrackDescriptor, requester Requester, now time.Time) (*songRequest, []notification, error) {
	if track.TrackID == "" || track.Name == "" || track.Artist == "" {
		return nil, nil, ErrValidation
	}
	if requester.DisplayName == "" {
		return nil, nil, ErrValidation
	}
	if !st.settings.AllowRequests {
		return nil, nil, ErrRequestsDisabled
	}
	key := requester.Key()
	if st.settings.MaxRequestsPerUser > 0 && st.outstandingFor(key) >= st.settings.MaxRequestsPerUser {
		return nil, nil, ErrQuotaExceeded
	}

	r := &songRequest{
		id:            id,
		track:         track,
		requesterKey:  key,
		requesterName: requester.DisplayName,
		requestedAt:   now,
		status:        StatusPending,
		votes:         make(map[string]VoteType),
	}
	st.queue = append(st.queue, r)
	st.totalRequests++
	st.requesterKeys[key] = struct{}{}

	return r, []notification{{EventSongRequested, SongRequestedPayload{
		RequestID:   r.id,
		TrackName:   r.track.Name,
		Artist:      r.track.Artist,
		RequestedBy: r.requesterName,
	}}}, nil
}

// vote applies a single user's vote. A repeated identical vote is a success
// no-op (mutated=false) with no broadcast; a flip lands as one atomic score
// change, never two observable half-steps.
func (st *state) vote(songID, userID string, v VoteType) (r *songRequest, mutated bool, notes []notification, err error) {
	if userID == "" {
		return nil, false, nil, ErrValidation
	}
	if !st.settings.VotingEnabled {
		return nil, false, nil, ErrVotingDisabled
	}
	_, r = st.findInQueue(songID)
	if r == nil {
		return nil, false, nil, ErrNotFound
	}

	if existing, ok := r.votes[userID]; ok && existing == v {
		return r, false, nil, nil
	}
	r.votes[userID] = v
	r.recount()
	st.totalVotes++

	return r, true, []notification{{EventSongVoted, SongVotedPayload{
		RequestID: r.id,
		VoteScore: r.score,
	}}}, nil
}

// allowedTransitions is the request status machine: once approved a request
// can only be played, and played/rejected are terminal.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:  {StatusApproved: true, StatusRejected: true},
	StatusApproved: {StatusPlayed: true},
}

// transition applies a DJ status change. Played and rejected requests move
// atomically from queue to history; played also updates the current track
// in the same mutation. Re-sending a request's current status is a success
// no-op (mutated=false), matching the start/stop convention.
func (st *state) transition(songID string, newStatus Status, actorID string, now time.Time) (r *songRequest, mutated bool, notes []notification, err error) {
	if actorID != st.djID {
		return nil, false, nil, ErrForbidden
	}
	i, r := st.findInQueue(songID)
	if r == nil {
		return nil, false, nil, ErrNotFound
	}
	if r.status == newStatus {
		return r, false, nil, nil
	}
	if !allowedTransitions[r.status][newStatus] {
		return nil, false, nil, ErrInvalidTransition
	}

	r.status = newStatus
	notes = []notification{{EventSongStatusChanged, SongStatusChangedPayload{
		RequestID: r.id,
		TrackName: r.track.Name,
		Status:    r.status,
	}}}

	if newStatus == StatusPlayed || newStatus == StatusRejected {
		st.queue = append(st.queue[:i], st.queue[i+1:]...)
		processed := now
		r.processedAt = &processed
		st.history = append(st.history, r)
	}
	if newStatus == StatusPlayed {
		st.current = &CurrentTrack{
			TrackID:    r.track.TrackID,
			Name:       r.track.Name,
			Artist:     r.track.Artist,
			DurationMS: r.track.DurationMS,
			StartedAt:  now,
		}
		notes = append(notes, notification{EventCurrentTrackChanged, st.current})
	}
	return r, true, notes, nil
}

// setActive toggles the live flag. Repeating the current state is a no-op.
func (st *state) setActive(active bool, actorID string) (mutated bool, notes []notification, err error) {
	if actorID != st.djID {
		return false, nil, ErrForbidden
	}
	if st.isActive == active {
		return false, nil, nil
	}
	st.isActive = active
	eventType := EventLiveSessionStarted
	if !active {
		eventType = EventLiveSessionEnded
	}
	return true, []notification{{eventType, SessionLifecyclePayload{
		EventID:  st.eventID,
		IsActive: st.isActive,
	}}}, nil
}

// mergeSettings applies the non-nil fields of a patch.
func (st *state) mergeSettings(patch SettingsPatch, actorID string) (Settings, error) {
	if actorID != st.djID {
		return Settings{}, ErrForbidden
	}
	if patch.MaxRequestsPerUser != nil && *patch.MaxRequestsPerUser < 1 {
		return Settings{}, ErrValidation
	}
	if patch.AllowRequests != nil {
		st.settings.AllowRequests = *patch.AllowRequests
	}
	if patch.RequireApproval != nil {
		st.settings.RequireApproval = *patch.RequireApproval
	}
	if patch.VotingEnabled != nil {
		st.settings.VotingEnabled = *patch.VotingEnabled
	}
	if patch.AutoPlayNext != nil {
		st.settings.AutoPlayNext = *patch.AutoPlayNext
	}
	if patch.MaxRequestsPerUser != nil {
		st.settings.MaxRequestsPerUser = *patch.MaxRequestsPerUser
	}
	return st.settings, nil
}

// snapshot builds an immutable view. Queue ordering is recomputed here on
// every build: vote score descending, ties broken by earliest request.
func (st *state) snapshot() *Snapshot {
	queue := make([]RequestView, len(st.queue))
	order := make([]*songRequest, len(st.queue))
	copy(order, st.queue)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].requestedAt.Before(order[j].requestedAt)
	})
	for i, r := range order {
		queue[i] = r.view()
	}

	history := make([]RequestView, len(st.history))
	for i, r := range st.history {
		history[i] = r.view()
	}

	var current *CurrentTrack
	if st.current != nil {
		c := *st.current
		current = &c
	}

	return &Snapshot{
		SessionID:    st.sessionID,
		EventID:      st.eventID,
		DJID:         st.djID,
		IsActive:     st.isActive,
		CurrentTrack: current,
		Settings:     st.settings,
		Queue:        queue,
		History:      history,
		Stats: Stats{
			TotalRequests:    st.totalRequests,
			TotalVotes:       st.totalVotes,
			UniqueRequesters: len(st.requesterKeys),
		},
		Version: st.version,
	}
}
