package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestEventDAOUpdateStatus(t *testing.T) {
	db, mock := newTestDB(t)
	d := NewEventDAO(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "events" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.UpdateStatus(context.Background(), 1, "draft", "published")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDAOUpdateStatusConflict(t *testing.T) {
	db, mock := newTestDB(t)
	d := NewEventDAO(db)

	// Someone else moved the row first; the guarded update matches nothing.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "events" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := d.UpdateStatus(context.Background(), 1, "draft", "published")
	require.ErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDAOUpdateFieldsNotFound(t *testing.T) {
	db, mock := newTestDB(t)
	d := NewEventDAO(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "events" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := d.UpdateFields(context.Background(), 42, map[string]interface{}{"description": "x"})
	require.ErrorIs(t, err, ErrEventNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDAOFindByIDNotFound(t *testing.T) {
	db, mock := newTestDB(t)
	d := NewEventDAO(db)

	mock.ExpectQuery(`SELECT \* FROM "events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := d.FindByID(context.Background(), 42)
	require.ErrorIs(t, err, ErrEventNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
