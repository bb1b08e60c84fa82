package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tenantlink/internal/common"
	"tenantlink/internal/logger"
	"tenantlink/internal/wire"
)

// setupRouter wraps the mux in CORS so preflight requests are answered even
// when no route matches the OPTIONS method.
func setupRouter(app *wire.Application) http.Handler {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(app.Log))

	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)
	router.Handle("/metrics", app.Metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(common.AuthMiddleware([]byte(app.Config.Auth.JWTSecret)))

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(common.RequireRole(common.RoleAdmin))

	app.Users.RegisterRoutes(api)
	app.Chat.RegisterRoutes(api)
	app.Maintenance.RegisterRoutes(api)
	app.Notifications.RegisterRoutes(api, admin)

	return corsMiddleware(router)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "tenantlink"})
}
