package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/ghostcart-backend/api/controllers"
	"github.com/angelmondragon/ghostcart-backend/api/middleware"
	"github.com/angelmondragon/ghostcart-backend/internal/credentials"
	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/merchant"
	"github.com/angelmondragon/ghostcart-backend/internal/monitoring"
	"github.com/angelmondragon/ghostcart-backend/internal/purchase"
	"github.com/angelmondragon/ghostcart-backend/internal/transactions"
	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

// RouterParams gathers everything the HTTP surface needs.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        controllers.Pinger
	Mandates     *mandate.Service
	Monitoring   *monitoring.Service
	Merchant     *merchant.Service
	Orchestrator *purchase.Orchestrator
	Transactions *transactions.Repo
	Signer       mandate.Signer
	Credentials  credentials.Provider
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": params.DB,
			"redis":    params.Redis,
		}))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/token", controllers.DemoToken(cfg.JWT, params.Credentials, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(params.Merchant, logg))
		r.Get("/{productID}", controllers.GetProduct(params.Merchant, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/mandates", func(r chi.Router) {
			r.Post("/intent", controllers.CreateIntent(params.Mandates, logg))
			r.Post("/{mandateID}/sign", controllers.SignIntent(params.Mandates, logg))
			r.Get("/", controllers.ListMandates(params.Mandates, logg))
			r.Get("/{mandateID}", controllers.GetMandate(params.Mandates, logg))
		})

		r.Route("/monitoring/jobs", func(r chi.Router) {
			r.Post("/", controllers.CreateMonitoringJob(params.Monitoring, logg))
			r.Get("/", controllers.ListMonitoringJobs(params.Monitoring, logg))
			r.Get("/{jobID}", controllers.GetMonitoringJob(params.Monitoring, logg))
			r.Post("/{jobID}/cancel", controllers.CancelMonitoringJob(params.Monitoring, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", controllers.CreatePurchase(params.Merchant, params.Signer, params.Orchestrator, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListTransactions(params.Transactions, logg))
			r.Get("/{transactionID}", controllers.GetTransaction(params.Transactions, logg))
		})
	})

	return r
}
