package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
)

// PaymentTransaction is the immutable audit record of a terminal checkout
// result. Rows are written once when a flow reaches its result state and are
// never updated.
type PaymentTransaction struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Reference    string              `gorm:"uniqueIndex;not null"`
	FlowID       uuid.UUID           `gorm:"type:uuid;index;not null"`
	UserID       string              `gorm:"index"`
	MethodID     string              `gorm:"not null"`
	MethodType   enums.MethodType    `gorm:"not null"`
	Currency     string              `gorm:"size:3;not null"`
	Amount       float64             `gorm:"not null"`
	FeePercent   float64             `gorm:"not null;default:0"`
	Total        float64             `gorm:"not null"`
	Status       enums.PaymentStatus `gorm:"index;not null"`
	Description  string
	ErrorMessage *string
	CreatedAt    time.Time
}

// BeforeCreate assigns the transaction ID when the caller did not.
func (p *PaymentTransaction) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
