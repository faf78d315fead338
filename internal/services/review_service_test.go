package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusstay/reservation-backend/internal/database"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReviewService(t *testing.T) (*ReviewService, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })

	db := sqlx.NewDb(rawDB, "sqlmock")
	return NewReviewService(database.NewReviewRepository(db), quietLogger()), mock
}

func eligibilityRow(hasPaid, hasReview bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"has_paid", "has_review"}).AddRow(hasPaid, hasReview)
}

func TestCanReview(t *testing.T) {
	tests := []struct {
		name      string
		hasPaid   bool
		hasReview bool
		want      bool
	}{
		{"Paid and not reviewed", true, false, true},
		{"No paid booking", false, false, false},
		{"Already reviewed", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newReviewService(t)
			userID, unitID := uuid.New(), uuid.New()

			mock.ExpectQuery(reviewEligibleSQL).
				WithArgs(userID, unitID).
				WillReturnRows(eligibilityRow(tt.hasPaid, tt.hasReview))

			ok, err := svc.CanReview(context.Background(), userID, unitID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubmitReview(t *testing.T) {
	ctx := context.Background()

	t.Run("Stored when eligible", func(t *testing.T) {
		svc, mock := newReviewService(t)
		userID, unitID := uuid.New(), uuid.New()

		mock.ExpectQuery(reviewEligibleSQL).WithArgs(userID, unitID).WillReturnRows(eligibilityRow(true, false))
		mock.ExpectExec(`INSERT INTO reviews`).
			WithArgs(sqlmock.AnyArg(), userID, unitID, 5, "Great place", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		review, err := svc.SubmitReview(ctx, userID, unitID, 5, "  Great place ")
		require.NoError(t, err)
		assert.Equal(t, 5, review.Rating)
		assert.Equal(t, "Great place", review.Comment)
		assert.NotEqual(t, uuid.Nil, review.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejected without a paid booking", func(t *testing.T) {
		svc, mock := newReviewService(t)
		userID, unitID := uuid.New(), uuid.New()

		mock.ExpectQuery(reviewEligibleSQL).WithArgs(userID, unitID).WillReturnRows(eligibilityRow(false, false))

		_, err := svc.SubmitReview(ctx, userID, unitID, 4, "")
		assert.ErrorIs(t, err, ErrNotEligible)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejected when already reviewed", func(t *testing.T) {
		svc, mock := newReviewService(t)
		userID, unitID := uuid.New(), uuid.New()

		mock.ExpectQuery(reviewEligibleSQL).WithArgs(userID, unitID).WillReturnRows(eligibilityRow(true, true))

		_, err := svc.SubmitReview(ctx, userID, unitID, 4, "again")
		assert.ErrorIs(t, err, ErrNotEligible)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Concurrent duplicate loses on the unique index", func(t *testing.T) {
		svc, mock := newReviewService(t)
		userID, unitID := uuid.New(), uuid.New()

		mock.ExpectQuery(reviewEligibleSQL).WithArgs(userID, unitID).WillReturnRows(eligibilityRow(true, false))
		mock.ExpectExec(`INSERT INTO reviews`).WillReturnError(&pq.Error{Code: "23505"})

		_, err := svc.SubmitReview(ctx, userID, unitID, 3, "")
		assert.ErrorIs(t, err, ErrDuplicateReview)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Paid booking vanished before the insert", func(t *testing.T) {
		svc, mock := newReviewService(t)
		userID, unitID := uuid.New(), uuid.New()

		mock.ExpectQuery(reviewEligibleSQL).WithArgs(userID, unitID).WillReturnRows(eligibilityRow(true, false))
		mock.ExpectExec(`INSERT INTO reviews`).WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := svc.SubmitReview(ctx, userID, unitID, 3, "")
		assert.ErrorIs(t, err, ErrNotEligible)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid input never reaches the database", func(t *testing.T) {
		svc, mock := newReviewService(t)

		for _, rating := range []int{0, 6, -1} {
			_, err := svc.SubmitReview(ctx, uuid.New(), uuid.New(), rating, "")
			assert.ErrorIs(t, err, ErrInvalidReview)
		}
		_, err := svc.SubmitReview(ctx, uuid.New(), uuid.New(), 3, strings.Repeat("a", maxReviewCommentLength+1))
		assert.ErrorIs(t, err, ErrInvalidReview)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListForUnit_Average(t *testing.T) {
	svc, mock := newReviewService(t)
	unitID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "user_id", "unit_id", "rating", "comment", "created_at"}).
		AddRow(uuid.New(), uuid.New(), unitID, 5, "", now).
		AddRow(uuid.New(), uuid.New(), unitID, 4, "", now).
		AddRow(uuid.New(), uuid.New(), unitID, 4, "", now)
	mock.ExpectQuery(`SELECT (.+) FROM reviews`).WithArgs(unitID).WillReturnRows(rows)

	summary, err := svc.ListForUnit(context.Background(), unitID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.InDelta(t, 4.3, summary.AverageRating, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
