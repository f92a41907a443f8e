package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// CreateUser inserts a new identity with an already-hashed credential.
// It returns ErrDuplicateIdentity when the login is taken.
func (s *Store) CreateUser(ctx context.Context, login, passHash string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (login, passhash) VALUES (?, ?)",
		login, passHash,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("insert user %q: %w", login, err)
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, login string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, login, passhash FROM users WHERE login = ?", login,
	).Scan(&u.ID, &u.Login, &u.PassHash)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user %q: %w", login, err)
	}
	return u, nil
}
