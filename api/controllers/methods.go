package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mozpaylabs/mozpay-backend/api/responses"
	"github.com/mozpaylabs/mozpay-backend/api/validators"
	"github.com/mozpaylabs/mozpay-backend/internal/catalog"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
)

type methodResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Currency    string  `json:"currency"`
	MinAmount   float64 `json:"min_amount"`
	MaxAmount   float64 `json:"max_amount"`
	FeePercent  float64 `json:"fee_percent"`
}

func newMethodResponse(m catalog.Method) methodResponse {
	return methodResponse{
		ID:          m.ID,
		Type:        string(m.Type),
		Name:        m.Name,
		Description: m.Description,
		Currency:    catalog.Currency,
		MinAmount:   m.Config.MinAmount,
		MaxAmount:   m.Config.MaxAmount,
		FeePercent:  m.Config.ProcessingFee,
	}
}

// ListPaymentMethods returns the static catalog in declaration order.
func ListPaymentMethods(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		methods := cat.Methods()
		out := make([]methodResponse, 0, len(methods))
		for _, m := range methods {
			out = append(out, newMethodResponse(m))
		}
		responses.WriteSuccess(w, out)
	}
}

type quoteRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type quoteResponse struct {
	MethodID   string  `json:"method_id"`
	Currency   string  `json:"currency"`
	Amount     float64 `json:"amount"`
	FeePercent float64 `json:"fee_percent"`
	Total      float64 `json:"total"`
}

// QuotePaymentMethod validates an amount against the method bounds and
// returns the final total with the processing fee applied.
func QuotePaymentMethod(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method, ok := cat.Get(chi.URLParam(r, "methodId"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "Método de pagamento inválido"))
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := catalog.ValidateAmount(payload.Amount, method); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quoteResponse{
			MethodID:   method.ID,
			Currency:   catalog.Currency,
			Amount:     payload.Amount,
			FeePercent: method.Config.ProcessingFee,
			Total:      catalog.FinalTotal(payload.Amount, method),
		})
	}
}
