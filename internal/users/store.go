package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ageniuscoder/mmsocial/backend/internal/apperr"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	conn storage.Conn
	Now  func() time.Time
}

func NewStore(conn storage.Conn) *Store {
	return &Store{conn: conn, Now: time.Now}
}

func (s *Store) Create(ctx context.Context, username, passwordHash string) (User, error) {
	u := User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: s.Now().UTC(),
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, passwordHash, storage.FormatTime(u.CreatedAt))
	if storage.IsConstraintViolation(err) {
		return User{}, ErrUsernameTaken
	}
	if err != nil {
		return User{}, apperr.Storage("inserting user", err)
	}
	return u, nil
}

// Credentials returns the user and stored password hash for username.
func (s *Store) Credentials(ctx context.Context, username string) (User, string, error) {
	var (
		u       User
		hash    string
		created string
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &hash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	if err != nil {
		return User{}, "", apperr.Storage("querying user", err)
	}
	if u.CreatedAt, err = storage.ParseTime(created); err != nil {
		return User{}, "", apperr.Storage("decoding user", err)
	}
	return u, hash, nil
}

func (s *Store) ByID(ctx context.Context, id string) (User, error) {
	var (
		u       User
		created string
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, username, created_at FROM users WHERE id = ?`,
		id).Scan(&u.ID, &u.Username, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, apperr.Storage("querying user", err)
	}
	if u.CreatedAt, err = storage.ParseTime(created); err != nil {
		return User{}, apperr.Storage("decoding user", err)
	}
	return u, nil
}

// Search matches usernames containing q, case-insensitively.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]User, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, username, created_at FROM users
		WHERE LOWER(username) LIKE LOWER(CAST(? AS TEXT))
		ORDER BY username
		LIMIT ?`, "%"+q+"%", limit)
	if err != nil {
		return nil, apperr.Storage("searching users", err)
	}
	defer rows.Close()

	list := make([]User, 0)
	for rows.Next() {
		var (
			u       User
			created string
		)
		if err := rows.Scan(&u.ID, &u.Username, &created); err != nil {
			return nil, apperr.Storage("scanning user", err)
		}
		if u.CreatedAt, err = storage.ParseTime(created); err != nil {
			return nil, apperr.Storage("decoding user", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterating users", err)
	}
	return list, nil
}
