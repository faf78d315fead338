package database

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPaymentEventLog(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentEventRepository(db, quietLogger())
	ctx := context.Background()
	bookingID := uuid.New()

	event := models.NewPaymentEvent(models.PaymentEventSettled, models.PaymentSourceProvider).
		SetBooking(bookingID).
		SetReference("cs_1").
		SetAmount(250000).
		SetMetadata(models.RequestMeta{IPAddress: "41.13.1.2", DeviceType: "mobile"})

	mock.ExpectExec(`INSERT INTO payment_events`).
		WithArgs(event.ID, &bookingID, sqlmock.AnyArg(), "settled", "provider",
			nil, sqlmock.AnyArg(), nil, sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Log(ctx, event))

	mock.ExpectExec(`INSERT INTO payment_events`).
		WillReturnError(fmt.Errorf("connection reset"))
	err := repo.Log(ctx, models.NewPaymentEvent(models.PaymentEventStatusLookup, models.PaymentSourceSystem))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to log payment event")

	assert.Error(t, repo.Log(ctx, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentEventHasEvent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentEventRepository(db, quietLogger())
	bookingID := uuid.New()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(bookingID, "refund_required").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.HasEvent(context.Background(), bookingID, models.PaymentEventRefundRequired)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
