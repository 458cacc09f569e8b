package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mozpaylabs/mozpay-backend/api/responses"
	"github.com/mozpaylabs/mozpay-backend/api/validators"
	"github.com/mozpaylabs/mozpay-backend/internal/verification"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
)

type createVerificationRequest struct {
	ProjectID string `json:"project_id" validate:"required,max=120"`
	Phone     string `json:"phone" validate:"required"`
}

type verifyRequest struct {
	ProjectID string `json:"project_id" validate:"required,max=120"`
	Code      string `json:"code" validate:"required"`
}

// CreateVerification opens an OTP session and dispatches the code. The code
// itself never appears in the response.
func CreateVerification(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createVerificationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Create(r.Context(), verification.CreateInput{
			ProjectID: payload.ProjectID,
			Phone:     payload.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// VerifyCode checks the submitted code against the session.
func VerifyCode(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload verifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Verify(r.Context(), chi.URLParam(r, "sessionId"), payload.ProjectID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

// ResendVerification restarts the session with a fresh code.
func ResendVerification(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Resend(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// GetVerification returns the client-safe view of a session.
func GetVerification(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Get(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
