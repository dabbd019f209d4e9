package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/parlohq/parlo-api/internal/api"
	apiMiddleware "github.com/parlohq/parlo-api/internal/api/middleware"
	"github.com/parlohq/parlo-api/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the application router with all routes and
// middleware, creating handlers from the application's services.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(metrics.Middleware())

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		&app.config.Auth,
		app.logger,
	)
	topicHandler := api.NewTopicHandler(app.topicService, app.cardService, app.logger)
	cardHandler := api.NewCardHandler(app.cardService, app.logger)
	studyHandler := api.NewStudyHandler(app.studyService, app.logger)
	subscriptionHandler := api.NewSubscriptionHandler(app.subscriptionService, app.logger)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Public authentication endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Everything else requires a valid access token
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Topics and their cards
			r.Post("/topics", topicHandler.CreateTopic)
			r.Get("/topics", topicHandler.ListTopics)
			r.Get("/topics/{id}", topicHandler.GetTopic)
			r.Delete("/topics/{id}", topicHandler.DeleteTopic)
			r.Get("/topics/{id}/cards", topicHandler.ListTopicCards)
			r.Post("/topics/{id}/generate", topicHandler.GenerateCards)

			// Cards
			r.Get("/cards/{id}", cardHandler.GetCard)
			r.Delete("/cards/{id}", cardHandler.DeleteCard)

			// Study sessions
			r.Post("/study/sessions", studyHandler.StartSession)
			r.Post("/study/sessions/{id}/reviews", studyHandler.SubmitReview)
			r.Post("/study/sessions/{id}/complete", studyHandler.CompleteSession)

			// Subscription and the quota gate
			r.Get("/subscription", subscriptionHandler.GetSubscription)
			r.Put("/subscription/plan", subscriptionHandler.ChangePlan)
			r.Get("/quota", subscriptionHandler.GetQuota)
			r.Post("/quota/dismiss", subscriptionHandler.DismissQuota)
			r.Post("/quota/plan-change", subscriptionHandler.OpenPlanChange)
		})
	})

	r.Get("/healthz", app.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// healthCheck reports readiness, pinging the database so load balancers stop
// routing to an instance that lost its connection.
func (app *application) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := app.db.PingContext(ctx); err != nil {
		app.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		app.logger.Error("failed to write health check response", "error", err)
	}
}
