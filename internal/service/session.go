package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopfloor/internal/model"
)

// SessionService keeps the durable record of portal logins.
type SessionService struct {
	db *sql.DB
}

func NewSessionService(db *sql.DB) *SessionService {
	return &SessionService{db: db}
}

func (s *SessionService) Create(ctx context.Context, sess model.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, login_at) VALUES ($1, $2, $3)`,
		sess.ID, sess.UserID, sess.LoginAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionService) Close(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET logged_out_at = $2 WHERE id = $1 AND logged_out_at IS NULL`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// ExpireBefore closes every open session that started before cutoff and
// returns their IDs.
func (s *SessionService) ExpireBefore(ctx context.Context, cutoff, at time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE sessions SET logged_out_at = $2
		WHERE logged_out_at IS NULL AND login_at < $1
		RETURNING id
	`, cutoff, at)
	if err != nil {
		return nil, fmt.Errorf("expire sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return ids, nil
}

// CloseAll closes sessions left open by a previous process. Live SAP
// sessions are held in memory only, so none of them survive a restart.
func (s *SessionService) CloseAll(ctx context.Context, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET logged_out_at = $1 WHERE logged_out_at IS NULL`, at)
	if err != nil {
		return 0, fmt.Errorf("close open sessions: %w", err)
	}
	return res.RowsAffected()
}

func (s *SessionService) ListByUser(ctx context.Context, userID string, limit int) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, login_at, logged_out_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY login_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var loggedOut sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.LoginAt, &loggedOut); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if loggedOut.Valid {
			t := loggedOut.Time
			sess.LoggedOutAt = &t
		}
		sessions = append(sessions, sess)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return sessions, nil
}
