package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mozpaylabs/mozpay-backend/pkg/config"
	"github.com/mozpaylabs/mozpay-backend/pkg/db/models"
)

func TestNewSQLiteClientPingsAndMigrates(t *testing.T) {
	cfg := config.DBConfig{Driver: "sqlite", DSN: "file::memory:?cache=shared"}
	client, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if err := client.DB().AutoMigrate(&models.PaymentTransaction{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected error for missing DSN")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.PaymentTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	client := &Client{conn: conn}

	sentinel := errors.New("abort")
	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&models.PaymentTransaction{
			MethodID:   "mpesa",
			MethodType: "mpesa",
			Currency:   "MZN",
			Amount:     100,
			Total:      100,
			Status:     "completed",
		}).Error; err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	var count int64
	if err := conn.Model(&models.PaymentTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d rows", count)
	}
}
