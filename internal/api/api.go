package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"rebalance/pkg/rebalance"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *rebalance.Core, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, logger: logger}

	r.Get("/api/health", h.health)

	// Accounts
	r.Get("/api/accounts", h.getAccounts)
	r.Post("/api/accounts", h.addAccount)
	r.Delete("/api/accounts/{id}", h.deleteAccount)

	// Holdings
	r.Get("/api/holdings", h.getHoldings)
	r.Post("/api/holdings", h.upsertHolding)
	r.Get("/api/holdings/{id}", h.getHolding)
	r.Delete("/api/holdings/{id}", h.deleteHolding)
	r.Get("/api/holdings/{id}/tags", h.getHoldingTags)
	r.Post("/api/holdings/{id}/tags", h.linkHoldingTag)
	r.Delete("/api/holdings/{id}/tags/{tagID}", h.unlinkHoldingTag)

	// Tags
	r.Get("/api/tags", h.getTags)
	r.Post("/api/tags", h.addTag)
	r.Get("/api/tags/{id}", h.getTag)
	r.Put("/api/tags/{id}", h.updateTag)
	r.Delete("/api/tags/{id}", h.deleteTag)

	// Rebalancing groups
	r.Get("/api/groups", h.getGroups)
	r.Post("/api/groups", h.createGroup)
	r.Get("/api/groups/{id}", h.getGroup)
	r.Put("/api/groups/{id}", h.updateGroup)
	r.Delete("/api/groups/{id}", h.deleteGroup)
	r.Get("/api/groups/{id}/targets", h.getGroupTargets)
	r.Put("/api/groups/{id}/targets", h.setGroupTargets)
	r.Post("/api/targets/validate", h.validateTargets)

	// Analysis and recommendations
	r.Get("/api/groups/{id}/analysis", h.getAnalysis)
	r.Post("/api/groups/{id}/recommendation", h.getRecommendation)
	r.Post("/api/groups/{id}/ai-advice", h.getAIAdvice)

	// Operation logs
	r.Get("/api/operation-logs", h.getOperationLogs)

	return r
}

type handler struct {
	core   *rebalance.Core
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if setter, ok := w.(interface{ SetErrorMessage(string) }); ok {
		setter.SetErrorMessage(message)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
