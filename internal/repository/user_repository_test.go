package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/syllabus-workflow-api/internal/models"
)

func TestUserRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, full_name, role, active, created_at, updated_at FROM users WHERE id = $1")).
		WithArgs("hod-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "active", "created_at", "updated_at"}).
			AddRow("hod-1", "hod@campus.edu", "Dr. Head", "HOD", true, now, now))

	user, err := repo.FindByID(context.Background(), "hod-1")
	require.NoError(t, err)
	assert.Equal(t, "HOD", user.Role)
	assert.True(t, user.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListActiveIDsByRole(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE role = $1 AND active = TRUE")).
		WithArgs(models.RoleAcademicAffairs).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("aa-1").AddRow("aa-2"))

	ids, err := repo.ListActiveIDsByRole(context.Background(), models.RoleAcademicAffairs)
	require.NoError(t, err)
	assert.Equal(t, []string{"aa-1", "aa-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
