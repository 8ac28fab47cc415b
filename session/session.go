// Package session stores the logged in user on the device: the bearer
// token used for mutations and the name sent along with submissions.
package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

var ErrNoSession = errors.New("not logged in")

type Session struct {
	Username     string
	DisplayName  string
	AccessToken  string
	RefreshToken string
	Expiration   time.Time
}

// Sender is the name attached to submissions.
func (s Session) Sender() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Username
}

func (s Session) Expired(now time.Time) bool {
	return !s.Expiration.IsZero() && now.After(s.Expiration)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db}
}

// Save replaces the current session.
func (st *Store) Save(ctx context.Context, s Session) error {
	var exp any
	if !s.Expiration.IsZero() {
		exp = s.Expiration.UTC()
	}
	_, err := st.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO session (id, username, display_name, access_token, refresh_token, expiration)
		VALUES (1, ?, ?, ?, ?, ?)`,
		s.Username,
		s.DisplayName,
		s.AccessToken,
		s.RefreshToken,
		exp,
	)
	return errors.Wrap(err, "session.save")
}

// Load returns ErrNoSession when nobody is logged in.
func (st *Store) Load(ctx context.Context) (Session, error) {
	var s Session
	var exp sql.NullTime
	err := st.db.QueryRowContext(ctx, `
		SELECT username, display_name, access_token, refresh_token, expiration
		FROM session
		WHERE id = 1`,
	).Scan(&s.Username, &s.DisplayName, &s.AccessToken, &s.RefreshToken, &exp)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s, ErrNoSession
	case err != nil:
		return s, errors.Wrap(err, "session.load")
	}
	if exp.Valid {
		s.Expiration = exp.Time
	}
	return s, nil
}

func (st *Store) Clear(ctx context.Context) error {
	_, err := st.db.ExecContext(ctx, `DELETE FROM session`)
	return errors.Wrap(err, "session.clear")
}

// Token returns the stored access token, or "" when logged out.
func (st *Store) Token(ctx context.Context) (string, error) {
	s, err := st.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}
