package ledger

import (
	"context"

	"github.com/mozpaylabs/mozpay-backend/internal/checkout"
	"github.com/mozpaylabs/mozpay-backend/pkg/db/models"
	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
)

// Service records terminal checkout results and serves ledger lookups. It is
// the checkout service's ResultRecorder.
type Service interface {
	checkout.ResultRecorder
	GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error)
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repository Repository
	Logger     *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService constructs the ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "repository required")
	}
	return &service{repo: params.Repository, logg: params.Logger}, nil
}

// RecordResult writes the audit row for a terminal flow result.
func (s *service) RecordResult(ctx context.Context, rec checkout.RecordedResult) error {
	row := &models.PaymentTransaction{
		Reference:   rec.Result.TransactionID,
		FlowID:      rec.FlowID,
		UserID:      rec.Request.UserID,
		MethodID:    rec.Method.ID,
		MethodType:  rec.Method.Type,
		Currency:    rec.Request.Currency,
		Amount:      rec.Result.Amount,
		FeePercent:  rec.Method.Config.ProcessingFee,
		Total:       rec.Result.Total,
		Status:      rec.Result.Status,
		Description: rec.Request.Description,
		CreatedAt:   rec.Result.Timestamp,
	}
	if rec.Result.Status == enums.PaymentStatusFailed && rec.Result.ErrorMessage != "" {
		msg := rec.Result.ErrorMessage
		row.ErrorMessage = &msg
	}

	if err := s.repo.Create(ctx, row); err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFlowID(ctx, rec.FlowID.String())
		logCtx = s.logg.WithField(logCtx, "reference", row.Reference)
		s.logg.Info(logCtx, "ledger.recorded")
	}
	return nil
}

// GetByReference looks up a transaction by its public reference.
func (s *service) GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}
	return s.repo.GetByReference(ctx, reference)
}

// ListByUser returns the user's most recent transactions.
func (s *service) ListByUser(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
