package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_FindByRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE role = \\$1").
		WithArgs(RolePsychologist).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "mobile", "role"}).
			AddRow("t1", "Dr. Rao", "rao@example.com", "", RolePsychologist).
			AddRow("t2", "Dr. Iyer", "iyer@example.com", "99999", RolePsychologist))

	therapists, err := Therapists(context.Background(), NewSQLStore(db))
	require.NoError(t, err)
	assert.Equal(t, []Therapist{
		{ID: "t1", Name: "Dr. Rao", Email: "rao@example.com"},
		{ID: "t2", Name: "Dr. Iyer", Email: "iyer@example.com"},
	}, therapists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "mobile", "role"}).
			AddRow("s1", "Asha", "asha@example.com", "98765", "student"))
	u, err := store.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "mobile", "role"}))
	_, err = store.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrUserNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileFor_FillsPlaceholders(t *testing.T) {
	p := ProfileFor("s1", User{Name: "Asha", Email: "  "})
	assert.Equal(t, Profile{ID: "s1", Name: "Asha", Email: Unknown, Mobile: Unknown}, p)

	assert.Equal(t, Profile{ID: Unknown, Name: Unknown, Email: Unknown, Mobile: Unknown}, UnknownProfile(""))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(User{ID: "t1", Name: "Dr. Rao", Role: RolePsychologist})
	store.Put(User{ID: "s1", Name: "Asha", Role: "student"})

	therapists, err := Therapists(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, therapists, 1)
	assert.Equal(t, "t1", therapists[0].ID)

	_, err = store.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
