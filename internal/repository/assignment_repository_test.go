package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palava-labs/school-portal-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryListByTeacherAndClass(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	teacherID := "tch-1"
	rows := sqlmock.NewRows([]string{"id", "class_id", "subject_id", "teacher_id", "created_at", "subject_name", "subject_code"}).
		AddRow("asg-1", "class-8", "sub-math", teacherID, time.Now(), "Mathematics", "MATH")
	mock.ExpectQuery(`WHERE cs\.teacher_id = \$1 AND cs\.class_id = \$2`).
		WithArgs("tch-1", "class-8").
		WillReturnRows(rows)

	assignments, err := repo.ListByTeacherAndClass(context.Background(), "tch-1", "class-8")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "sub-math", assignments[0].SubjectID)
	assert.Equal(t, "Mathematics", assignments[0].SubjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReplaceDeletesThenInserts(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM class_subjects WHERE class_id = \$1`).
		WithArgs("class-8").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO class_subjects`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO class_subjects`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assignments := []models.ClassSubjectAssignment{
		{SubjectID: "sub-math"},
		{SubjectID: "sub-eng"},
	}
	err := repo.Replace(context.Background(), "class-8", assignments)
	require.NoError(t, err)
	assert.Equal(t, "class-8", assignments[0].ClassID)
	assert.NotEmpty(t, assignments[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM class_subjects WHERE class_id = \$1`).
		WithArgs("class-8").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO class_subjects`).WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), "class-8", []models.ClassSubjectAssignment{{SubjectID: "sub-missing"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReplaceEmptySetClearsClass(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM class_subjects WHERE class_id = \$1`).
		WithArgs("class-8").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), "class-8", nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
