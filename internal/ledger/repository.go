package ledger

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mozpaylabs/mozpay-backend/pkg/db/models"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
)

// Repository is the persistence surface of the payments ledger.
type Repository interface {
	Create(ctx context.Context, tx *models.PaymentTransaction) error
	GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed ledger repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, tx *models.PaymentTransaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inserting payment transaction")
	}
	return nil
}

func (r *gormRepository) GetByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment transaction")
	}
	return &tx, nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var txs []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing payment transactions")
	}
	return txs, nil
}
