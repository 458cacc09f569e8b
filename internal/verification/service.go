package verification

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mozpaylabs/mozpay-backend/pkg/config"
	pkgerrors "github.com/mozpaylabs/mozpay-backend/pkg/errors"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
	"github.com/mozpaylabs/mozpay-backend/pkg/metrics"
)

// Clock is the time surface the verification package depends on.
type Clock interface {
	Now() time.Time
}

// Dispatcher delivers a verification code to a phone number. Delivery is
// at-most-once per call; no retry happens here.
type Dispatcher interface {
	SendCode(ctx context.Context, phone, code string) error
}

// View is the session as the client may see it. The code is deliberately
// absent.
type View struct {
	ID                uuid.UUID `json:"id"`
	Phone             string    `json:"phone"`
	Channel           string    `json:"channel"`
	ExpiresAt         time.Time `json:"expires_at"`
	AttemptsRemaining int       `json:"attempts_remaining"`
}

// Outcome is the result of a successful verification.
type Outcome struct {
	Verified bool   `json:"verified"`
	Phone    string `json:"phone"`
}

// CreateInput starts a verification session.
type CreateInput struct {
	ProjectID string
	Phone     string
}

// Service drives OTP sessions: create, verify, resend. Every transition is
// user initiated.
type Service interface {
	Create(ctx context.Context, input CreateInput) (View, error)
	Verify(ctx context.Context, sessionID, projectID, code string) (Outcome, error)
	Resend(ctx context.Context, sessionID string) (View, error)
	Get(ctx context.Context, sessionID string) (View, error)
}

// ServiceParams groups dependencies for the verification service.
type ServiceParams struct {
	Store      Store
	Dispatcher Dispatcher
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
	Clock      Clock
	Config     config.VerificationConfig
}

type service struct {
	store      Store
	dispatcher Dispatcher
	logg       *logger.Logger
	metrics    *metrics.Metrics
	clock      Clock
	cfg        config.VerificationConfig
}

// sessionGrace keeps expired sessions readable for a while so a late verify
// gets the expiry error instead of a generic not-found.
const sessionGrace = 10 * time.Minute

// NewService constructs the verification service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dispatcher required")
	}
	if params.Clock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "clock required")
	}
	cfg := params.Config
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LockWindow <= 0 {
		cfg.LockWindow = 10 * time.Minute
	}
	return &service{
		store:      params.Store,
		dispatcher: params.Dispatcher,
		logg:       params.Logger,
		metrics:    params.Metrics,
		clock:      params.Clock,
		cfg:        cfg,
	}, nil
}

// Create generates a fresh code, stores the session, and dispatches the code.
// A dispatch failure destroys the session; the caller retries explicitly.
func (s *service) Create(ctx context.Context, input CreateInput) (View, error) {
	phone := NormalizePhone(input.Phone)
	if phone == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "Número de telefone é obrigatório")
	}
	if len(SanitizeCode(phone)) < 9 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "Número de telefone inválido")
	}

	if err := s.ensureNotLocked(ctx, phone); err != nil {
		return View{}, err
	}

	code, err := GenerateCode()
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "gerando código de verificação")
	}

	now := s.clock.Now()
	session := Session{
		ID:                uuid.New(),
		ProjectID:         input.ProjectID,
		Phone:             phone,
		Code:              code,
		AttemptsRemaining: s.cfg.MaxAttempts,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.cfg.CodeTTL),
	}
	if err := s.store.SaveSession(ctx, session, s.cfg.CodeTTL+sessionGrace); err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gravando sessão de verificação")
	}

	if err := s.dispatch(ctx, session); err != nil {
		return View{}, err
	}
	return s.view(session), nil
}

// Verify checks the submitted code against the session. Success consumes the
// session; the fifth mismatch locks the phone for the cooldown window.
func (s *service) Verify(ctx context.Context, sessionID, projectID, code string) (Outcome, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if session.ProjectID != projectID {
		return Outcome{}, s.notFound()
	}

	sanitized := SanitizeCode(code)
	if len(sanitized) != 6 {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "Código deve ter 6 dígitos")
	}

	// Expiry wins over everything, including a correct code.
	if session.Expired(s.clock.Now()) {
		_ = s.store.DeleteSession(ctx, sessionID)
		s.metrics.IncVerification("expired")
		return Outcome{}, pkgerrors.New(pkgerrors.CodeExpired, "Código expirado. Solicite um novo código.")
	}

	if subtle.ConstantTimeCompare([]byte(sanitized), []byte(session.Code)) != 1 {
		return Outcome{}, s.handleMismatch(ctx, session)
	}

	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consumindo sessão de verificação")
	}
	s.metrics.IncVerification("success")
	if s.logg != nil {
		logCtx := s.logg.WithSessionID(ctx, sessionID)
		logCtx = s.logg.WithPhone(logCtx, session.Phone)
		s.logg.Info(logCtx, "verification.success")
	}
	return Outcome{Verified: true, Phone: session.Phone}, nil
}

// Resend restarts the session in place: new code, fresh expiry, attempts
// reset. Refused while the phone cooldown lock is active.
func (s *service) Resend(ctx context.Context, sessionID string) (View, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if err := s.ensureNotLocked(ctx, session.Phone); err != nil {
		return View{}, err
	}

	code, err := GenerateCode()
	if err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "gerando código de verificação")
	}

	now := s.clock.Now()
	session.Code = code
	session.AttemptsRemaining = s.cfg.MaxAttempts
	session.CreatedAt = now
	session.ExpiresAt = now.Add(s.cfg.CodeTTL)
	if err := s.store.SaveSession(ctx, session, s.cfg.CodeTTL+sessionGrace); err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gravando sessão de verificação")
	}

	if err := s.dispatch(ctx, session); err != nil {
		return View{}, err
	}
	return s.view(session), nil
}

// Get returns the client-safe view of a session.
func (s *service) Get(ctx context.Context, sessionID string) (View, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return s.view(session), nil
}

func (s *service) load(ctx context.Context, sessionID string) (Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return Session{}, pkgerrors.New(pkgerrors.CodeValidation, "identificador de sessão inválido")
	}
	session, ok, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lendo sessão de verificação")
	}
	if !ok {
		return Session{}, s.notFound()
	}
	return session, nil
}

func (s *service) notFound() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Sessão de verificação não encontrada")
}

func (s *service) ensureNotLocked(ctx context.Context, phone string) error {
	locked, err := s.store.PhoneLocked(ctx, PhoneHash(phone))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consultando bloqueio de número")
	}
	if locked {
		s.metrics.IncVerification("locked")
		return pkgerrors.New(pkgerrors.CodeAttempts, s.lockMessage())
	}
	return nil
}

func (s *service) handleMismatch(ctx context.Context, session Session) error {
	session.AttemptsRemaining--
	sessionID := session.ID.String()

	if session.AttemptsRemaining <= 0 {
		_ = s.store.DeleteSession(ctx, sessionID)
		if err := s.store.LockPhone(ctx, PhoneHash(session.Phone), s.cfg.LockWindow); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bloqueando número")
		}
		s.metrics.IncVerification("exhausted")
		if s.logg != nil {
			logCtx := s.logg.WithSessionID(ctx, sessionID)
			logCtx = s.logg.WithPhone(logCtx, session.Phone)
			s.logg.Warn(logCtx, "verification.locked")
		}
		return pkgerrors.New(pkgerrors.CodeAttempts, s.lockMessage())
	}

	ttl := session.ExpiresAt.Sub(s.clock.Now()) + sessionGrace
	if err := s.store.SaveSession(ctx, session, ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gravando sessão de verificação")
	}
	s.metrics.IncVerification("mismatch")
	return pkgerrors.New(
		pkgerrors.CodeValidation,
		fmt.Sprintf("Código incorreto. %d tentativa(s) restante(s)", session.AttemptsRemaining),
	).WithDetails(map[string]int{"attempts_remaining": session.AttemptsRemaining})
}

func (s *service) dispatch(ctx context.Context, session Session) error {
	sessionID := session.ID.String()
	if err := s.dispatcher.SendCode(ctx, session.Phone, session.Code); err != nil {
		_ = s.store.DeleteSession(ctx, sessionID)
		s.metrics.IncCodeSent(Channel, "error")
		if s.logg != nil {
			logCtx := s.logg.WithSessionID(ctx, sessionID)
			logCtx = s.logg.WithPhone(logCtx, session.Phone)
			s.logg.Error(logCtx, "verification.dispatch_failed", err)
		}
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Erro ao enviar código. Tente novamente.")
	}

	s.metrics.IncCodeSent(Channel, "sent")
	if s.logg != nil {
		logCtx := s.logg.WithSessionID(ctx, sessionID)
		logCtx = s.logg.WithPhone(logCtx, session.Phone)
		s.logg.Info(logCtx, "verification.code_sent")
	}
	return nil
}

func (s *service) view(session Session) View {
	return View{
		ID:                session.ID,
		Phone:             logger.MaskPhone(session.Phone),
		Channel:           Channel,
		ExpiresAt:         session.ExpiresAt,
		AttemptsRemaining: session.AttemptsRemaining,
	}
}

func (s *service) lockMessage() string {
	minutes := int(s.cfg.LockWindow.Minutes())
	if minutes <= 0 {
		minutes = 10
	}
	return fmt.Sprintf("Número de tentativas excedido. Tente novamente em %d minutos.", minutes)
}
