package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mozpaylabs/mozpay-backend/api/controllers"
	"github.com/mozpaylabs/mozpay-backend/api/middleware"
	"github.com/mozpaylabs/mozpay-backend/internal/catalog"
	checkoutsvc "github.com/mozpaylabs/mozpay-backend/internal/checkout"
	"github.com/mozpaylabs/mozpay-backend/internal/ledger"
	"github.com/mozpaylabs/mozpay-backend/internal/verification"
	"github.com/mozpaylabs/mozpay-backend/pkg/config"
	"github.com/mozpaylabs/mozpay-backend/pkg/db"
	"github.com/mozpaylabs/mozpay-backend/pkg/logger"
	"github.com/mozpaylabs/mozpay-backend/pkg/redis"
)

// Params carries everything the router mounts.
type Params struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	Catalog      *catalog.Catalog
	Checkout     checkoutsvc.Service
	Verification verification.Service
	Ledger       ledger.Service
	Metrics      prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	sendPolicy := middleware.NewSendRateLimitPolicy(
		"otp_send",
		cfg.RateLimit.SendWindow,
		cfg.RateLimit.SendIPLimit,
		cfg.RateLimit.SendPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, cachePinger(p.Redis)))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, logg))
		}

		r.Get("/payment-methods", controllers.ListPaymentMethods(p.Catalog))
		r.Post("/payment-methods/{methodId}/quote", controllers.QuotePaymentMethod(p.Catalog, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.StartCheckout(p.Checkout, logg))
			r.Get("/{flowId}", controllers.GetCheckoutFlow(p.Checkout, logg))
			r.Post("/{flowId}/details", controllers.SubmitCheckoutDetails(p.Checkout, logg))
			r.Post("/{flowId}/cancel", controllers.CancelCheckout(p.Checkout, logg))
			r.Post("/{flowId}/reset", controllers.ResetCheckout(p.Checkout, logg))
		})

		r.Route("/verification", func(r chi.Router) {
			if p.Redis != nil {
				r.With(middleware.SendRateLimit(sendPolicy, p.Redis, logg)).Post("/", controllers.CreateVerification(p.Verification, logg))
				r.With(middleware.SendRateLimit(sendPolicy, p.Redis, logg)).Post("/{sessionId}/resend", controllers.ResendVerification(p.Verification, logg))
			} else {
				r.Post("/", controllers.CreateVerification(p.Verification, logg))
				r.Post("/{sessionId}/resend", controllers.ResendVerification(p.Verification, logg))
			}
			r.Get("/{sessionId}", controllers.GetVerification(p.Verification, logg))
			r.Post("/{sessionId}/verify", controllers.VerifyCode(p.Verification, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListUserTransactions(p.Ledger, logg))
			r.Get("/{transactionId}", controllers.GetTransaction(p.Ledger, logg))
		})
	})

	return r
}

// cachePinger avoids handing a typed-nil Redis client to the health check.
func cachePinger(client *redis.Client) db.Pinger {
	if client == nil {
		return nil
	}
	return client
}
