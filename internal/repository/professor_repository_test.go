package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfessorRepositoryListActive(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewProfessorRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "department_id", "max_exams_per_day",
		"supervision_count", "is_active", "created_at",
	}).
		AddRow("p1", "Aicha", "Benali", "dept-cs", 3, 2, true, time.Now()).
		AddRow("p2", "Karim", "Cherif", "dept-math", 0, 0, true, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM professors").WillReturnRows(rows)

	professors, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, professors, 2)
	assert.Equal(t, "Aicha Benali", professors[0].FullName())
	assert.Equal(t, 0, professors[1].MaxExamsPerDay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfessorRepositoryAdjustSupervisionCounts(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewProfessorRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE professors SET supervision_count = GREATEST").
		WithArgs("p1", -2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	// Zero deltas are skipped, so only p1 reaches the database.
	require.NoError(t, repo.AdjustSupervisionCounts(context.Background(), tx, map[string]int{"p1": -2, "p2": 0}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupervisorRepositoryCountPerProfessorBySession(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSupervisorRepository(db)

	rows := sqlmock.NewRows([]string{"professor_id", "assignments"}).
		AddRow("p1", 3).
		AddRow("p2", 1)
	mock.ExpectQuery("SELECT sa.professor_id, COUNT\\(\\*\\) AS assignments").
		WithArgs("sess-1").
		WillReturnRows(rows)

	counts, err := repo.CountPerProfessorBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 3, "p2": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupervisorRepositoryDeleteBySession(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSupervisorRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM supervisor_assignments").
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	removed, err := repo.DeleteBySession(context.Background(), tx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(5), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
