package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/setlive/backend/internal/session"
)

// Queries wraps the database handle with typed access methods. It implements
// session.Store.
type Queries struct {
	db *sql.DB
}

// New creates a Queries over the given database handle.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// LoadSession loads the full session aggregate for an event: the session
// row, all of its requests, and their vote relations. Returns
// session.ErrNotFound if the event has no session.
func (q *Queries) LoadSession(ctx context.Context, eventID string) (*session.StoredSession, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, event_id, dj_id, is_active,
		       allow_requests, require_approval, voting_enabled, auto_play_next, max_requests_per_user,
		       current_track_id, current_track_name, current_track_artist,
		       current_track_duration_ms, current_track_started_at
		FROM playlist_sessions WHERE event_id = ?`, eventID)

	var s session.StoredSession
	var trackID, trackName, trackArtist sql.NullString
	var trackDuration sql.NullInt64
	var trackStarted sql.NullTime
	err := row.Scan(&s.SessionID, &s.EventID, &s.DJID, &s.IsActive,
		&s.Settings.AllowRequests, &s.Settings.RequireApproval, &s.Settings.VotingEnabled,
		&s.Settings.AutoPlayNext, &s.Settings.MaxRequestsPerUser,
		&trackID, &trackName, &trackArtist, &trackDuration, &trackStarted)
	if err == sql.ErrNoRows {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if trackID.Valid {
		s.CurrentTrack = &session.CurrentTrack{
			TrackID:    trackID.String,
			Name:       trackName.String,
			Artist:     trackArtist.String,
			DurationMS: trackDuration.Int64,
			StartedAt:  trackStarted.Time,
		}
	}

	requests, err := q.getSongRequestsBySessionID(ctx, s.SessionID)
	if err != nil {
		return nil, err
	}
	s.Requests = requests
	return &s, nil
}

func (q *Queries) getSongRequestsBySessionID(ctx context.Context, sessionID string) ([]session.StoredRequest, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, track_id, track_name, artist, album, duration_ms,
		       preview_url, image_url, external_url,
		       requester_key, requester_name, requested_at, status, processed_at
		FROM song_requests WHERE session_id = ? ORDER BY requested_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load song requests: %w", err)
	}
	defer rows.Close()

	var requests []session.StoredRequest
	index := make(map[string]int)
	for rows.Next() {
		var r session.StoredRequest
		var album, previewURL, imageURL, externalURL sql.NullString
		var status string
		var processedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Track.TrackID, &r.Track.Name, &r.Track.Artist,
			&album, &r.Track.DurationMS, &previewURL, &imageURL, &externalURL,
			&r.RequesterKey, &r.RequesterName, &r.RequestedAt, &status, &processedAt); err != nil {
			return nil, fmt.Errorf("failed to scan song request: %w", err)
		}
		r.Track.Album = album.String
		r.Track.PreviewURL = previewURL.String
		r.Track.ImageURL = imageURL.String
		r.Track.ExternalURL = externalURL.String
		r.Status = session.Status(status)
		if processedAt.Valid {
			t := processedAt.Time
			r.ProcessedAt = &t
		}
		r.Votes = make(map[string]session.VoteType)
		index[r.ID] = len(requests)
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate song requests: %w", err)
	}

	voteRows, err := q.db.QueryContext(ctx, `
		SELECT v.request_id, v.voter_id, v.vote
		FROM song_votes v
		JOIN song_requests r ON r.id = v.request_id
		WHERE r.session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	defer voteRows.Close()

	for voteRows.Next() {
		var requestID, voterID, vote string
		if err := voteRows.Scan(&requestID, &voterID, &vote); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		if i, ok := index[requestID]; ok {
			requests[i].Votes[voterID] = session.VoteType(vote)
		}
	}
	if err := voteRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return requests, nil
}

// CreateSession inserts a fresh session row.
func (q *Queries) CreateSession(ctx context.Context, s *session.StoredSession) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO playlist_sessions (
			id, event_id, dj_id, is_active,
			allow_requests, require_approval, voting_enabled, auto_play_next, max_requests_per_user
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.EventID, s.DJID, s.IsActive,
		s.Settings.AllowRequests, s.Settings.RequireApproval, s.Settings.VotingEnabled,
		s.Settings.AutoPlayNext, s.Settings.MaxRequestsPerUser)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// SetSessionActive flips the live flag.
func (q *Queries) SetSessionActive(ctx context.Context, sessionID string, active bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE playlist_sessions SET is_active = ? WHERE id = ?`, active, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set session active: %w", err)
	}
	return nil
}

// UpdateSessionSettings stores the merged settings.
func (q *Queries) UpdateSessionSettings(ctx context.Context, sessionID string, settings session.Settings) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE playlist_sessions
		SET allow_requests = ?, require_approval = ?, voting_enabled = ?,
		    auto_play_next = ?, max_requests_per_user = ?
		WHERE id = ?`,
		settings.AllowRequests, settings.RequireApproval, settings.VotingEnabled,
		settings.AutoPlayNext, settings.MaxRequestsPerUser, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

// SetCurrentTrack stores (or clears, for nil) the currently playing track.
func (q *Queries) SetCurrentTrack(ctx context.Context, sessionID string, track *session.CurrentTrack) error {
	var trackID, name, artist sql.NullString
	var duration sql.NullInt64
	var startedAt sql.NullTime
	if track != nil {
		trackID = sql.NullString{String: track.TrackID, Valid: true}
		name = sql.NullString{String: track.Name, Valid: true}
		artist = sql.NullString{String: track.Artist, Valid: true}
		duration = sql.NullInt64{Int64: track.DurationMS, Valid: true}
		startedAt = sql.NullTime{Time: track.StartedAt, Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE playlist_sessions
		SET current_track_id = ?, current_track_name = ?, current_track_artist = ?,
		    current_track_duration_ms = ?, current_track_started_at = ?
		WHERE id = ?`,
		trackID, name, artist, duration, startedAt, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set current track: %w", err)
	}
	return nil
}

// CreateSongRequest inserts a new pending request row.
func (q *Queries) CreateSongRequest(ctx context.Context, sessionID string, r *session.StoredRequest) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO song_requests (
			id, session_id, track_id, track_name, artist, album, duration_ms,
			preview_url, image_url, external_url,
			requester_key, requester_name, requested_at, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, sessionID, r.Track.TrackID, r.Track.Name, r.Track.Artist,
		nullString(r.Track.Album), r.Track.DurationMS,
		nullString(r.Track.PreviewURL), nullString(r.Track.ImageURL), nullString(r.Track.ExternalURL),
		r.RequesterKey, r.RequesterName, r.RequestedAt, string(r.Status))
	if err != nil {
		return fmt.Errorf("failed to create song request: %w", err)
	}
	return nil
}

// UpdateSongRequestStatus stores a status transition. processedAt is set
// when the request is archived (played or rejected).
func (q *Queries) UpdateSongRequestStatus(ctx context.Context, requestID string, status session.Status, processedAt *time.Time) error {
	var processed sql.NullTime
	if processedAt != nil {
		processed = sql.NullTime{Time: *processedAt, Valid: true}
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE song_requests SET status = ?, processed_at = ? WHERE id = ?`,
		string(status), processed, requestID)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	return nil
}

// UpsertVote stores one user's vote on a request, replacing any prior vote
// by the same user.
func (q *Queries) UpsertVote(ctx context.Context, requestID, voterID string, vote session.VoteType) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO song_votes (request_id, voter_id, vote) VALUES (?, ?, ?)
		ON CONFLICT (request_id, voter_id) DO UPDATE SET vote = excluded.vote`,
		requestID, voterID, string(vote))
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
