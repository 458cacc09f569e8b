package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozpaylabs/mozpay-backend/internal/catalog"
	"github.com/mozpaylabs/mozpay-backend/internal/checkout"
	"github.com/mozpaylabs/mozpay-backend/pkg/config"
	"github.com/mozpaylabs/mozpay-backend/pkg/db"
	"github.com/mozpaylabs/mozpay-backend/pkg/db/models"
	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
)

var dbSeq int

func newTestService(t *testing.T) Service {
	t.Helper()
	dbSeq++
	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared", dbSeq),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&models.PaymentTransaction{}))

	svc, err := NewService(ServiceParams{Repository: NewRepository(client.DB())})
	require.NoError(t, err)
	return svc
}

func sampleRecord(userID string) checkout.RecordedResult {
	return checkout.RecordedResult{
		FlowID: uuid.New(),
		Request: checkout.Request{
			Amount:      1000,
			Currency:    catalog.Currency,
			MethodID:    "card",
			UserID:      userID,
			Description: "Licença anual",
		},
		Method: catalog.Method{
			ID:     "card",
			Type:   enums.MethodTypeCard,
			Config: catalog.MethodConfig{MinAmount: 100, MaxAmount: 1_000_000, ProcessingFee: 3.5},
		},
		Result: checkout.Result{
			Status:        enums.PaymentStatusCompleted,
			TransactionID: "TX-" + uuid.NewString()[:12],
			Amount:        1000,
			Total:         1035,
			Timestamp:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestRecordResultAndLookup(t *testing.T) {
	svc := newTestService(t)
	rec := sampleRecord("user-1")

	require.NoError(t, svc.RecordResult(context.Background(), rec))

	got, err := svc.GetByReference(context.Background(), rec.Result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, rec.FlowID, got.FlowID)
	assert.Equal(t, "card", got.MethodID)
	assert.Equal(t, enums.MethodTypeCard, got.MethodType)
	assert.Equal(t, catalog.Currency, got.Currency)
	assert.Equal(t, 1000.0, got.Amount)
	assert.Equal(t, 3.5, got.FeePercent)
	assert.Equal(t, 1035.0, got.Total)
	assert.Equal(t, enums.PaymentStatusCompleted, got.Status)
	assert.Nil(t, got.ErrorMessage)
	assert.NotEqual(t, uuid.Nil, got.ID)
}

func TestRecordResultKeepsFailureMessage(t *testing.T) {
	svc := newTestService(t)
	rec := sampleRecord("user-1")
	rec.Result.Status = enums.PaymentStatusFailed
	rec.Result.ErrorMessage = "Saldo insuficiente"

	require.NoError(t, svc.RecordResult(context.Background(), rec))

	got, err := svc.GetByReference(context.Background(), rec.Result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "Saldo insuficiente", *got.ErrorMessage)
}

func TestGetByReferenceNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetByReference(context.Background(), "TX-MISSING")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.GetByReference(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDuplicateReferenceRejected(t *testing.T) {
	svc := newTestService(t)
	rec := sampleRecord("user-1")

	require.NoError(t, svc.RecordResult(context.Background(), rec))

	dup := sampleRecord("user-2")
	dup.Result.TransactionID = rec.Result.TransactionID
	err := svc.RecordResult(context.Background(), dup)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestListByUserNewestFirst(t *testing.T) {
	svc := newTestService(t)

	for i := 0; i < 3; i++ {
		rec := sampleRecord("user-7")
		rec.Result.Timestamp = rec.Result.Timestamp.Add(time.Duration(i) * time.Hour)
		require.NoError(t, svc.RecordResult(context.Background(), rec))
	}
	require.NoError(t, svc.RecordResult(context.Background(), sampleRecord("someone-else")))

	txs, err := svc.ListByUser(context.Background(), "user-7", 10)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.True(t, txs[0].CreatedAt.After(txs[1].CreatedAt))
	assert.True(t, txs[1].CreatedAt.After(txs[2].CreatedAt))

	_, err = svc.ListByUser(context.Background(), "", 10)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
