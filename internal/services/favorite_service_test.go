package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFavoriteService(t *testing.T) (*FavoriteService, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })

	db := sqlx.NewDb(rawDB, "sqlmock")
	svc := NewFavoriteService(database.NewFavoriteRepository(db), database.NewUnitRepository(db), quietLogger())
	return svc, mock
}

func TestFavoriteToggle_RoundTrip(t *testing.T) {
	svc, mock := newFavoriteService(t)
	userID, unitID := uuid.New(), uuid.New()
	ctx := context.Background()

	mock.ExpectQuery(getUnitSQL).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 2, 0, true))
	mock.ExpectExec(`DELETE FROM favorites`).WithArgs(userID, unitID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO favorites`).
		WithArgs(sqlmock.AnyArg(), userID, unitID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.Toggle(ctx, userID, unitID)
	require.NoError(t, err)
	assert.Equal(t, models.FavoriteAdded, result)

	mock.ExpectQuery(getUnitSQL).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 2, 0, true))
	mock.ExpectExec(`DELETE FROM favorites`).WithArgs(userID, unitID).WillReturnResult(sqlmock.NewResult(0, 1))

	result, err = svc.Toggle(ctx, userID, unitID)
	require.NoError(t, err)
	assert.Equal(t, models.FavoriteRemoved, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteToggle_ConcurrentInsertRetries(t *testing.T) {
	svc, mock := newFavoriteService(t)
	userID, unitID := uuid.New(), uuid.New()

	mock.ExpectQuery(getUnitSQL).WithArgs(unitID).WillReturnRows(unitRow(unitID, 50000, 2, 0, true))
	mock.ExpectExec(`DELETE FROM favorites`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO favorites`).WillReturnError(&pq.Error{Code: "23505"})
	// the other request's row is now visible
	mock.ExpectExec(`DELETE FROM favorites`).WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.Toggle(context.Background(), userID, unitID)
	require.NoError(t, err)
	assert.Equal(t, models.FavoriteRemoved, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteToggle_UnknownUnit(t *testing.T) {
	svc, mock := newFavoriteService(t)
	unitID := uuid.New()

	mock.ExpectQuery(getUnitSQL).WithArgs(unitID).WillReturnRows(sqlmock.NewRows(unitCols))

	_, err := svc.Toggle(context.Background(), uuid.New(), unitID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
