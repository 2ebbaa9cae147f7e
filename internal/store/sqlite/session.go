// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/store"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// Compile-time interface check.
var _ store.SessionStore = (*SessionStore)(nil)

// SessionStore implements store.SessionStore backed by SQLite.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens (or creates) a SQLite database at dbPath.
func NewSessionStore(dbPath string) (*SessionStore, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &SessionStore{db: db}, nil
}

// NewSessionStoreWithDB wraps an already migrated handle.
func NewSessionStoreWithDB(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Close closes the underlying database connection.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func (s *SessionStore) CreateSession(ctx context.Context, session *store.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	state, err := json.Marshal(session.Career)
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeStoreInvalidInput, "encoding career state")
	}

	updated := session.UpdatedAt
	if updated.IsZero() {
		updated = session.CreatedAt
	}

	const q = `INSERT INTO sessions (id, career_state, created_at, updated_at) VALUES (?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		session.ID,
		string(state),
		formatTime(session.CreatedAt),
		formatTime(updated),
	)
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "creating session",
			xzerr.FieldSessionID(session.ID))
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*store.Session, error) {
	const q = `SELECT id, career_state, created_at, updated_at FROM sessions WHERE id = ?`
	return scanSession(s.db.QueryRowContext(ctx, q, id))
}

func (s *SessionStore) SaveCareer(ctx context.Context, id string, state career.State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeStoreInvalidInput, "encoding career state")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET career_state = ?, updated_at = ? WHERE id = ?`,
		string(raw), formatTime(time.Now()), id)
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "saving career state",
			xzerr.FieldSessionID(id))
	}
	return requireRow(result, id)
}

func (s *SessionStore) ListSessions(ctx context.Context, opts store.ListOpts) ([]*store.Session, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	const q = `SELECT id, career_state, created_at, updated_at
FROM sessions ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, q, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "listing sessions")
	}
	defer func() { _ = rows.Close() }()

	var sessions []*store.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "iterating sessions")
	}
	return sessions, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "deleting session",
			xzerr.FieldSessionID(id))
	}
	return requireRow(result, id)
}

func (s *SessionStore) AppendMessage(ctx context.Context, sessionID string, msg *store.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	const q = `INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		msg.ID,
		sessionID,
		string(msg.Role),
		msg.Content,
		formatTime(msg.CreatedAt),
	)
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "appending message",
			xzerr.FieldSessionID(sessionID))
	}
	return nil
}

func (s *SessionStore) GetActiveWindow(ctx context.Context, sessionID string, limit int) ([]*store.Message, error) {
	if limit <= 0 {
		limit = -1
	}

	// Sub-select the N most recent, then re-order chronologically.
	const q = `SELECT id, session_id, role, content, created_at
FROM (
	SELECT seq, id, session_id, role, content, created_at
	FROM messages WHERE session_id = ?
	ORDER BY seq DESC LIMIT ?
) ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "getting active window",
			xzerr.FieldSessionID(sessionID))
	}
	defer func() { _ = rows.Close() }()

	var msgs []*store.Message
	for rows.Next() {
		var msg store.Message
		var createdAt string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "scanning message row")
		}
		msg.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "iterating messages")
	}
	return msgs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*store.Session, error) {
	var (
		sess                 store.Session
		state                string
		createdAt, updatedAt string
	)
	err := row.Scan(&sess.ID, &state, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, xzerr.New(xzerr.CodeStoreSessionGetNotFound, "session not found")
	}
	if err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "scanning session row")
	}

	sess.Career, err = career.DecodeState([]byte(state))
	if err != nil {
		return nil, xzerr.With(err, xzerr.FieldSessionID(sess.ID))
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return &sess, nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeStoreDatabaseFailure, "checking rows affected",
			xzerr.FieldSessionID(id))
	}
	if rows == 0 {
		return xzerr.New(xzerr.CodeStoreSessionGetNotFound, "session not found", xzerr.FieldSessionID(id))
	}
	return nil
}
