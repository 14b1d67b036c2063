// Package postgres implements the record store gateway on PostgreSQL through
// pgx. Schema management is handled by embedded goose migrations; call
// [Migrate] once before serving traffic.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitallic/vitallic-core/core/store"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Gateway = (*Store)(nil)

// New connects a pool to the given database URL.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) CreateCall(ctx context.Context, sessionID, profileID, flowID string) (string, error) {
	var callID string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO calls (session_id, voice_profile_id, conversation_flow_id, status, started_at)
		 VALUES ($1, NULLIF($2, '')::uuid, $3, $4, now())
		 RETURNING id`,
		sessionID, profileID, flowID, store.StatusActive,
	).Scan(&callID)
	if err != nil {
		return "", fmt.Errorf("failed to create call record: %w", err)
	}
	return callID, nil
}

func (s *Store) CloseCall(ctx context.Context, callID string, durationSeconds int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE calls
		 SET status = $2, duration_seconds = $3, ended_at = now()
		 WHERE id = $1`,
		callID, store.StatusCompleted, durationSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to close call record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("call %s not found", callID)
	}
	return nil
}

func (s *Store) AppendTranscript(ctx context.Context, callID string, speaker store.Speaker, message string, timestamp time.Time, confidence float64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcripts (call_id, speaker, message, timestamp, confidence)
		 VALUES ($1, $2, $3, $4, $5)`,
		callID, speaker, message, timestamp, confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return nil
}

func (s *Store) ListCalls(ctx context.Context, limit int) ([]store.Call, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, COALESCE(voice_profile_id::text, ''), conversation_flow_id,
		        status, duration_seconds, started_at, ended_at, created_at
		 FROM calls
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	calls := []store.Call{}
	for rows.Next() {
		var call store.Call
		if err := rows.Scan(
			&call.ID, &call.SessionID, &call.ProfileID, &call.FlowID,
			&call.Status, &call.DurationSeconds, &call.StartedAt, &call.EndedAt, &call.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan call row: %w", err)
		}
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read call rows: %w", err)
	}
	return calls, nil
}

func (s *Store) ListTranscripts(ctx context.Context, callID string) ([]store.Transcript, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, call_id, speaker, message, timestamp, confidence, created_at
		 FROM transcripts
		 WHERE call_id = $1
		 ORDER BY timestamp ASC`,
		callID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := []store.Transcript{}
	for rows.Next() {
		var transcript store.Transcript
		if err := rows.Scan(
			&transcript.ID, &transcript.CallID, &transcript.Speaker, &transcript.Message,
			&transcript.Timestamp, &transcript.Confidence, &transcript.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		transcripts = append(transcripts, transcript)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript rows: %w", err)
	}
	return transcripts, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]store.VoiceProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, COALESCE(description, ''), tone, language, pitch, rate, volume, is_active
		 FROM voice_profiles
		 WHERE is_active
		 ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list voice profiles: %w", err)
	}
	defer rows.Close()

	profiles := []store.VoiceProfile{}
	for rows.Next() {
		var profile store.VoiceProfile
		if err := rows.Scan(
			&profile.ID, &profile.Name, &profile.Description, &profile.Tone, &profile.Language,
			&profile.Pitch, &profile.Rate, &profile.Volume, &profile.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan voice profile row: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read voice profile rows: %w", err)
	}
	return profiles, nil
}
