package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var directoryTracer = otel.Tracer("psycare.internal.directory")

// SQLStore reads the users table through database/sql.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	if db == nil {
		panic("directory: sql db required")
	}
	return &SQLStore{db: db}
}

func (s *SQLStore) FindByRole(ctx context.Context, role string) ([]User, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.find_by_role")
	defer span.End()
	span.SetAttributes(attribute.String("user.role", role))

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, COALESCE(mobile, ''), role
		FROM users WHERE role = $1 ORDER BY name ASC`, role)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("directory: find by role: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Mobile, &u.Role); err != nil {
			return nil, fmt.Errorf("directory: scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate users: %w", err)
	}
	return out, nil
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (User, error) {
	ctx, span := directoryTracer.Start(ctx, "directory.get_by_id")
	defer span.End()

	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, COALESCE(mobile, ''), role
		FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Mobile, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		span.RecordError(err)
		return User{}, fmt.Errorf("directory: get by id: %w", err)
	}
	return u, nil
}

// MemoryStore is an in-process directory for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users []User
}

func NewMemoryStore(users ...User) *MemoryStore {
	return &MemoryStore{users: append([]User(nil), users...)}
}

// Put adds or replaces a user.
func (m *MemoryStore) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = u
			return
		}
	}
	m.users = append(m.users, u)
}

func (m *MemoryStore) FindByRole(ctx context.Context, role string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}
