package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mozpaylabs/mozpay-backend/api/responses"
	"github.com/mozpaylabs/mozpay-backend/internal/ledger"
	"github.com/mozpaylabs/mozpay-backend/pkg/db/models"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
)

type transactionResponse struct {
	Reference    string    `json:"reference"`
	MethodID     string    `json:"method_id"`
	Currency     string    `json:"currency"`
	Amount       float64   `json:"amount"`
	FeePercent   float64   `json:"fee_percent"`
	Total        float64   `json:"total"`
	Status       string    `json:"status"`
	Description  string    `json:"description,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func newTransactionResponse(tx models.PaymentTransaction) transactionResponse {
	out := transactionResponse{
		Reference:   tx.Reference,
		MethodID:    tx.MethodID,
		Currency:    tx.Currency,
		Amount:      tx.Amount,
		FeePercent:  tx.FeePercent,
		Total:       tx.Total,
		Status:      string(tx.Status),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
	if tx.ErrorMessage != nil {
		out.ErrorMessage = *tx.ErrorMessage
	}
	return out
}

// GetTransaction looks up a ledger row by its public reference.
func GetTransaction(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tx, err := svc.GetByReference(r.Context(), chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransactionResponse(*tx))
	}
}

// ListUserTransactions returns the newest transactions for a user.
func ListUserTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user_id query parameter is required"))
			return
		}

		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = parsed
		}

		txs, err := svc.ListByUser(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]transactionResponse, 0, len(txs))
		for _, tx := range txs {
			out = append(out, newTransactionResponse(tx))
		}
		responses.WriteSuccess(w, out)
	}
}
