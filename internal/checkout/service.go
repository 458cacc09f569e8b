package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mozpaylabs/mozpay-backend/internal/catalog"
	"github.com/mozpaylabs/mozpay-backend/pkg/config"
	"github.com/mozpaylabs/mozpay-backend/pkg/enums"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
	"github.com/mozpaylabs/mozpay-backend/pkg/metrics"
)

// Processor is the payment processing capability. The shipped implementation
// simulates the gateway; a real backend can be substituted without touching
// the state machine.
type Processor interface {
	Process(ctx context.Context, req Request) (Result, error)
}

// RecordedResult is handed to the recorder when a flow reaches its terminal
// state.
type RecordedResult struct {
	FlowID  uuid.UUID
	Request Request
	Method  catalog.Method
	Result  Result
}

// ResultRecorder persists terminal results. Recording failures are logged,
// never surfaced to the buyer.
type ResultRecorder interface {
	RecordResult(ctx context.Context, rec RecordedResult) error
}

// Service drives checkout flows through methods → details → processing →
// result.
type Service interface {
	Start(ctx context.Context, input StartInput) (Snapshot, error)
	SubmitDetails(ctx context.Context, flowID uuid.UUID, metadata map[string]string) (Snapshot, error)
	Get(ctx context.Context, flowID uuid.UUID) (Snapshot, error)
	Cancel(ctx context.Context, flowID uuid.UUID) (Snapshot, error)
	Reset(ctx context.Context, flowID uuid.UUID) (Snapshot, error)
}

// StartInput is the buyer's method selection plus amount.
type StartInput struct {
	MethodID    string
	Amount      float64
	UserID      string
	Description string
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Catalog   *catalog.Catalog
	Flows     *Manager
	Processor Processor
	Recorder  ResultRecorder
	OnSuccess func(Snapshot)
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Clock     Clock
	Config    config.CheckoutConfig
}

type service struct {
	catalog   *catalog.Catalog
	flows     *Manager
	processor Processor
	recorder  ResultRecorder
	onSuccess func(Snapshot)
	logg      *logger.Logger
	metrics   *metrics.Metrics
	clock     Clock
	cfg       config.CheckoutConfig
}

// NewService constructs the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog required")
	}
	if params.Flows == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "flow manager required")
	}
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "processor required")
	}
	if params.Clock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "clock required")
	}
	cfg := params.Config
	if cfg.ProgressTick <= 0 {
		cfg.ProgressTick = 500 * time.Millisecond
	}
	return &service{
		catalog:   params.Catalog,
		flows:     params.Flows,
		processor: params.Processor,
		recorder:  params.Recorder,
		onSuccess: params.OnSuccess,
		logg:      params.Logger,
		metrics:   params.Metrics,
		clock:     params.Clock,
		cfg:       cfg,
	}, nil
}

// Start validates the method selection and amount. A flow is only created
// once validation passes; a rejected amount never leaves the methods step.
func (s *service) Start(ctx context.Context, input StartInput) (Snapshot, error) {
	method, ok := s.catalog.Get(input.MethodID)
	if !ok {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "Método de pagamento inválido")
	}
	if err := catalog.ValidateAmount(input.Amount, method); err != nil {
		return Snapshot{}, err
	}

	now := s.clock.Now()
	flow := &Flow{
		ID:     uuid.New(),
		State:  enums.CheckoutStateDetails,
		Method: method,
		Request: Request{
			Amount:      input.Amount,
			Currency:    catalog.Currency,
			MethodID:    method.ID,
			UserID:      strings.TrimSpace(input.UserID),
			Description: strings.TrimSpace(input.Description),
			Metadata:    map[string]string{},
		},
		Total:     catalog.FinalTotal(input.Amount, method),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.flows.Put(flow)
	s.metrics.IncCheckoutStarted(method.ID)

	if s.logg != nil {
		logCtx := s.logg.WithFlowID(ctx, flow.ID.String())
		s.logg.Info(logCtx, "checkout.started")
	}
	return flow.Snapshot(), nil
}

// SubmitDetails validates the method-specific fields and moves the flow into
// processing. Processing runs on a flow-scoped context so cancelling the flow
// aborts it instead of leaking a timer.
func (s *service) SubmitDetails(ctx context.Context, flowID uuid.UUID, metadata map[string]string) (Snapshot, error) {
	flow, err := s.lookup(flowID)
	if err != nil {
		return Snapshot{}, err
	}

	flow.mu.Lock()
	switch flow.State {
	case enums.CheckoutStateDetails:
	case enums.CheckoutStateProcessing:
		flow.mu.Unlock()
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeStateConflict, "pagamento em processamento")
	default:
		flow.mu.Unlock()
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout flow is not collecting details")
	}

	if err := catalog.ValidateDetails(flow.Method.Type, metadata); err != nil {
		flow.LastError = pkgerrors.As(err).Message()
		flow.UpdatedAt = s.clock.Now()
		flow.mu.Unlock()
		return Snapshot{}, err
	}

	for key, value := range metadata {
		flow.Request.Metadata[key] = strings.TrimSpace(value)
	}
	flow.State = enums.CheckoutStateProcessing
	flow.Progress = 0
	flow.LastError = ""
	flow.UpdatedAt = s.clock.Now()

	procCtx, cancel := context.WithCancel(context.Background())
	flow.cancel = cancel
	req := flow.Request
	snap := flow.snapshotLocked()
	flow.mu.Unlock()

	go s.runProcessing(procCtx, flow, req)

	if s.logg != nil {
		logCtx := s.logg.WithFlowID(ctx, flow.ID.String())
		s.logg.Info(logCtx, "checkout.processing")
	}
	return snap, nil
}

// Get returns the current view of a flow.
func (s *service) Get(_ context.Context, flowID uuid.UUID) (Snapshot, error) {
	flow, err := s.lookup(flowID)
	if err != nil {
		return Snapshot{}, err
	}
	return flow.Snapshot(), nil
}

// Cancel aborts an in-flight processing step and returns the flow to the
// details state.
func (s *service) Cancel(ctx context.Context, flowID uuid.UUID) (Snapshot, error) {
	flow, err := s.lookup(flowID)
	if err != nil {
		return Snapshot{}, err
	}

	flow.mu.Lock()
	if flow.State != enums.CheckoutStateProcessing {
		flow.mu.Unlock()
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeStateConflict, "no processing in flight")
	}
	if flow.cancel != nil {
		flow.cancel()
		flow.cancel = nil
	}
	flow.State = enums.CheckoutStateDetails
	flow.Progress = 0
	flow.LastError = "Pagamento cancelado"
	flow.UpdatedAt = s.clock.Now()
	snap := flow.snapshotLocked()
	flow.mu.Unlock()

	if s.logg != nil {
		logCtx := s.logg.WithFlowID(ctx, flow.ID.String())
		s.logg.Info(logCtx, "checkout.cancelled")
	}
	return snap, nil
}

// Reset is the "tentar novamente" affordance: back to method selection with
// the request, result, and error cleared.
func (s *service) Reset(_ context.Context, flowID uuid.UUID) (Snapshot, error) {
	flow, err := s.lookup(flowID)
	if err != nil {
		return Snapshot{}, err
	}

	flow.mu.Lock()
	if flow.State == enums.CheckoutStateProcessing {
		flow.mu.Unlock()
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeStateConflict, "pagamento em processamento")
	}
	flow.State = enums.CheckoutStateMethods
	flow.Request = Request{Currency: catalog.Currency, Metadata: map[string]string{}}
	flow.Method = catalog.Method{}
	flow.Total = 0
	flow.Progress = 0
	flow.Result = nil
	flow.LastError = ""
	flow.UpdatedAt = s.clock.Now()
	snap := flow.snapshotLocked()
	flow.mu.Unlock()
	return snap, nil
}

func (s *service) lookup(flowID uuid.UUID) (*Flow, error) {
	if flowID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "flow id is required")
	}
	flow, ok := s.flows.Get(flowID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout flow not found")
	}
	return flow, nil
}

// runProcessing owns the flow while it is in the processing state. Progress
// advances 10 points per tick, capped at 90 until the processor finishes;
// the value is purely cosmetic.
func (s *service) runProcessing(ctx context.Context, flow *Flow, req Request) {
	started := s.clock.Now()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.processor.Process(ctx, req)
		done <- outcome{res: res, err: err}
	}()

	for {
		select {
		case <-s.clock.After(s.cfg.ProgressTick):
			flow.mu.Lock()
			if flow.State == enums.CheckoutStateProcessing && flow.Progress < 90 {
				flow.Progress += 10
				flow.UpdatedAt = s.clock.Now()
			}
			flow.mu.Unlock()
		case <-ctx.Done():
			// Cancel already transitioned the flow; nothing left to own here.
			return
		case out := <-done:
			if out.err != nil {
				s.handleProcessingError(flow, out.err)
				return
			}
			s.completeFlow(flow, req, out.res, started)
			return
		}
	}
}

// handleProcessingError routes a processor failure back to the details state;
// the buyer can correct inputs and resubmit.
func (s *service) handleProcessingError(flow *Flow, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	message := "Erro ao processar pagamento. Tente novamente."
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		message = typed.Message()
	}

	flow.mu.Lock()
	if flow.State != enums.CheckoutStateProcessing {
		flow.mu.Unlock()
		return
	}
	flow.State = enums.CheckoutStateDetails
	flow.Progress = 0
	flow.LastError = message
	flow.cancel = nil
	flow.UpdatedAt = s.clock.Now()
	flow.mu.Unlock()

	if s.logg != nil {
		logCtx := s.logg.WithFlowID(context.Background(), flow.ID.String())
		s.logg.Error(logCtx, "checkout.processing_failed", err)
	}
}

// completeFlow finalizes the terminal result, persists it, and fires the
// success hook exactly once.
func (s *service) completeFlow(flow *Flow, req Request, res Result, started time.Time) {
	now := s.clock.Now()

	if res.TransactionID == "" {
		res.TransactionID = "TX-" + uuid.NewString()
	}
	if res.Timestamp.IsZero() {
		res.Timestamp = now
	}
	if !res.Status.IsValid() {
		res.Status = enums.PaymentStatusCompleted
	}
	res.Amount = req.Amount

	flow.mu.Lock()
	if flow.State != enums.CheckoutStateProcessing {
		flow.mu.Unlock()
		return
	}
	res.Total = flow.Total
	flow.State = enums.CheckoutStateResult
	flow.Progress = 100
	flow.Result = &res
	flow.cancel = nil
	flow.UpdatedAt = now
	method := flow.Method
	snap := flow.snapshotLocked()
	flow.mu.Unlock()

	s.metrics.IncCheckoutResult(method.ID, string(res.Status))
	s.metrics.ObserveProcessing(method.ID, now.Sub(started))

	recordCtx := context.Background()
	if s.recorder != nil {
		if err := s.recorder.RecordResult(recordCtx, RecordedResult{
			FlowID:  flow.ID,
			Request: req,
			Method:  method,
			Result:  res,
		}); err != nil && s.logg != nil {
			logCtx := s.logg.WithFlowID(recordCtx, flow.ID.String())
			s.logg.Error(logCtx, "checkout.record_failed", err)
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(recordCtx, map[string]any{
			"flow_id":        flow.ID.String(),
			"transaction_id": res.TransactionID,
			"status":         string(res.Status),
		})
		s.logg.Info(logCtx, "checkout.result")
	}

	if res.Status == enums.PaymentStatusCompleted && s.onSuccess != nil {
		s.onSuccess(snap)
	}
}
