package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mozpaylabs/mozpay-backend/api/responses"
	"github.com/mozpaylabs/mozpay-backend/api/validators"
	checkoutsvc "github.com/mozpaylabs/mozpay-backend/internal/checkout"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
)

type startCheckoutRequest struct {
	MethodID    string  `json:"method_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"required"`
	UserID      string  `json:"user_id,omitempty"`
	Description string  `json:"description,omitempty" validate:"omitempty,max=500"`
}

type submitDetailsRequest struct {
	Details map[string]string `json:"details" validate:"required"`
}

type flowResponse struct {
	FlowID    uuid.UUID       `json:"flow_id"`
	State     string          `json:"state"`
	MethodID  string          `json:"method_id,omitempty"`
	Amount    float64         `json:"amount"`
	Total     float64         `json:"total"`
	Progress  int             `json:"progress"`
	Error     string          `json:"error,omitempty"`
	Result    *resultResponse `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type resultResponse struct {
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	Total         float64   `json:"total"`
	Timestamp     time.Time `json:"timestamp"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

func newFlowResponse(snap checkoutsvc.Snapshot) flowResponse {
	out := flowResponse{
		FlowID:    snap.ID,
		State:     string(snap.State),
		MethodID:  snap.MethodID,
		Amount:    snap.Amount,
		Total:     snap.Total,
		Progress:  snap.Progress,
		Error:     snap.LastError,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Result != nil {
		out.Result = &resultResponse{
			Status:        string(snap.Result.Status),
			TransactionID: snap.Result.TransactionID,
			Amount:        snap.Result.Amount,
			Total:         snap.Result.Total,
			Timestamp:     snap.Result.Timestamp,
			ErrorMessage:  snap.Result.ErrorMessage,
		}
	}
	return out
}

// StartCheckout validates the method selection and opens a flow in the
// details state.
func StartCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload startCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.Start(r.Context(), checkoutsvc.StartInput{
			MethodID:    payload.MethodID,
			Amount:      payload.Amount,
			UserID:      payload.UserID,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newFlowResponse(snap))
	}
}

// SubmitCheckoutDetails submits the method-specific fields and starts
// processing.
func SubmitCheckoutDetails(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flowID, err := flowIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitDetailsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.SubmitDetails(r.Context(), flowID, payload.Details)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, newFlowResponse(snap))
	}
}

// GetCheckoutFlow returns the flow's current state, progress, and result.
func GetCheckoutFlow(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flowID, err := flowIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.Get(r.Context(), flowID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newFlowResponse(snap))
	}
}

// CancelCheckout aborts an in-flight processing step.
func CancelCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flowID, err := flowIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.Cancel(r.Context(), flowID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newFlowResponse(snap))
	}
}

// ResetCheckout returns the flow to method selection.
func ResetCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flowID, err := flowIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.Reset(r.Context(), flowID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newFlowResponse(snap))
	}
}

func flowIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "flowId")
	flowID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "flow id must be a uuid")
	}
	return flowID, nil
}
