package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozpaylabs/mozpay-backend/internal/catalog"
	checkoutsvc "github.com/mozpaylabs/mozpay-backend/internal/checkout"
	"github.com/mozpaylabs/mozpay-backend/internal/verification"
	"github.com/mozpaylabs/mozpay-backend/pkg/config"
	"github.com/mozpaylabs/mozpay-backend/pkg/db/models"
	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
)

type stubCheckout struct {
	snap checkoutsvc.Snapshot
	err  error
}

func (s *stubCheckout) Start(context.Context, checkoutsvc.StartInput) (checkoutsvc.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubCheckout) SubmitDetails(context.Context, uuid.UUID, map[string]string) (checkoutsvc.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubCheckout) Get(context.Context, uuid.UUID) (checkoutsvc.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubCheckout) Cancel(context.Context, uuid.UUID) (checkoutsvc.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubCheckout) Reset(context.Context, uuid.UUID) (checkoutsvc.Snapshot, error) {
	return s.snap, s.err
}

type stubVerification struct {
	view    verification.View
	outcome verification.Outcome
	err     error
}

func (s *stubVerification) Create(context.Context, verification.CreateInput) (verification.View, error) {
	return s.view, s.err
}

func (s *stubVerification) Verify(context.Context, string, string, string) (verification.Outcome, error) {
	return s.outcome, s.err
}

func (s *stubVerification) Resend(context.Context, string) (verification.View, error) {
	return s.view, s.err
}

func (s *stubVerification) Get(context.Context, string) (verification.View, error) {
	return s.view, s.err
}

type stubLedger struct {
	tx  *models.PaymentTransaction
	err error
}

func (s *stubLedger) RecordResult(context.Context, checkoutsvc.RecordedResult) error {
	return s.err
}

func (s *stubLedger) GetByReference(context.Context, string) (*models.PaymentTransaction, error) {
	return s.tx, s.err
}

func (s *stubLedger) ListByUser(context.Context, string, int) ([]models.PaymentTransaction, error) {
	if s.tx == nil {
		return nil, s.err
	}
	return []models.PaymentTransaction{*s.tx}, s.err
}

type testEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(co *stubCheckout, ve *stubVerification, le *stubLedger) http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "dev"
	return NewRouter(Params{
		Config:       cfg,
		Catalog:      catalog.New(),
		Checkout:     co,
		Verification: ve,
		Ledger:       le,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var envelope testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), "body: %s", rec.Body.String())
	return rec, envelope
}

func TestHealthLive(t *testing.T) {
	h := newTestRouter(&stubCheckout{}, &stubVerification{}, &stubLedger{})
	rec, envelope := doJSON(t, h, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(envelope.Data), `"live"`)
	assert.Equal(t, "dev", rec.Header().Get("X-MozPay-Env"))
}

func TestListPaymentMethods(t *testing.T) {
	h := newTestRouter(&stubCheckout{}, &stubVerification{}, &stubLedger{})
	rec, envelope := doJSON(t, h, http.MethodGet, "/api/v1/payment-methods", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var methods []map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &methods))
	require.Len(t, methods, 5)
	assert.Equal(t, "mpesa", methods[0]["id"])
	assert.Equal(t, "MZN", methods[0]["currency"])
}

func TestQuoteAppliesFee(t *testing.T) {
	h := newTestRouter(&stubCheckout{}, &stubVerification{}, &stubLedger{})

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/payment-methods/card/quote", `{"amount":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var quote map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &quote))
	assert.Equal(t, 1035.0, quote["total"])
	assert.Equal(t, 3.5, quote["fee_percent"])
}

func TestQuoteRejectsOutOfBoundsAmount(t *testing.T) {
	h := newTestRouter(&stubCheckout{}, &stubVerification{}, &stubLedger{})

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/payment-methods/card/quote", `{"amount":5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	assert.Equal(t, "Valor mínimo: 100 MZN", envelope.Error.Message)
}

func TestQuoteUnknownMethod(t *testing.T) {
	h := newTestRouter(&stubCheckout{}, &stubVerification{}, &stubLedger{})

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/payment-methods/cheque/quote", `{"amount":100}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestStartCheckoutReturnsCreated(t *testing.T) {
	flowID := uuid.New()
	co := &stubCheckout{snap: checkoutsvc.Snapshot{
		ID:       flowID,
		State:    enums.CheckoutStateDetails,
		MethodID: "mpesa",
		Amount:   100,
		Total:    100,
	}}
	h := newTestRouter(co, &stubVerification{}, &stubLedger{})

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/checkout", `{"method_id":"mpesa","amount":100}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var flow map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &flow))
	assert.Equal(t, flowID.String(), flow["flow_id"])
	assert.Equal(t, "details", flow["state"])
}

func TestSubmitDetailsBadFlowID(t *testing.T) {
	h := newTestRouter(&stubCheckout{}, &stubVerification{}, &stubLedger{})

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/checkout/not-a-uuid/details", `{"details":{}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestCheckoutStateConflictMapsTo422(t *testing.T) {
	co := &stubCheckout{err: pkgerrors.New(pkgerrors.CodeStateConflict, "pagamento em processamento")}
	h := newTestRouter(co, &stubVerification{}, &stubLedger{})

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/checkout/"+uuid.NewString()+"/reset", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "STATE_CONFLICT", envelope.Error.Code)
	assert.Equal(t, "pagamento em processamento", envelope.Error.Message)
}

func TestCreateVerification(t *testing.T) {
	ve := &stubVerification{view: verification.View{
		ID:                uuid.New(),
		Phone:             "+258*******67",
		Channel:           "whatsapp",
		ExpiresAt:         time.Now().Add(5 * time.Minute),
		AttemptsRemaining: 5,
	}}
	h := newTestRouter(&stubCheckout{}, ve, &stubLedger{})

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/verification", `{"project_id":"proj-1","phone":"+258841234567"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &view))
	assert.Equal(t, "whatsapp", view["channel"])
	assert.NotContains(t, string(envelope.Data), `"code"`)
}

func TestVerifyExpiredMapsTo410(t *testing.T) {
	ve := &stubVerification{err: pkgerrors.New(pkgerrors.CodeExpired, "Código expirado. Solicite um novo código.")}
	h := newTestRouter(&stubCheckout{}, ve, &stubLedger{})

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/verification/"+uuid.NewString()+"/verify", `{"project_id":"proj-1","code":"123456"}`)
	require.Equal(t, http.StatusGone, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "EXPIRED", envelope.Error.Code)
}

func TestVerifyLockedMapsTo423(t *testing.T) {
	ve := &stubVerification{err: pkgerrors.New(pkgerrors.CodeAttempts, "Número de tentativas excedido. Tente novamente em 10 minutos.")}
	h := newTestRouter(&stubCheckout{}, ve, &stubLedger{})

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/verification/"+uuid.NewString()+"/verify", `{"project_id":"proj-1","code":"123456"}`)
	require.Equal(t, http.StatusLocked, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ATTEMPTS_EXHAUSTED", envelope.Error.Code)
}

func TestGetTransaction(t *testing.T) {
	le := &stubLedger{tx: &models.PaymentTransaction{
		Reference: "TX-ABC123",
		MethodID:  "card",
		Currency:  "MZN",
		Amount:    1000,
		Total:     1035,
		Status:    enums.PaymentStatusCompleted,
	}}
	h := newTestRouter(&stubCheckout{}, &stubVerification{}, le)

	rec, envelope := doJSON(t, h, http.MethodGet, "/api/v1/transactions/TX-ABC123", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var tx map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &tx))
	assert.Equal(t, "TX-ABC123", tx["reference"])
	assert.Equal(t, "completed", tx["status"])
}

func TestUnexpectedErrorIsMasked(t *testing.T) {
	le := &stubLedger{err: pkgerrors.New(pkgerrors.CodeInternal, "connection pool exhausted")}
	h := newTestRouter(&stubCheckout{}, &stubVerification{}, le)

	rec, envelope := doJSON(t, h, http.MethodGet, "/api/v1/transactions/TX-1", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "internal server error", envelope.Error.Message, "internal detail must not leak")
}
