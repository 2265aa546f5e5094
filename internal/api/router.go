package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rwaltman/basisengine/internal/api/handlers"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// NewRouter configures all HTTP routes. historyHandler may be nil for
// store-less runs; the history routes are simply absent then.
func NewRouter(engineHandler *handlers.EngineHandler, historyHandler *handlers.HistoryHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/snapshot", engineHandler.GetSnapshot).Methods("GET")
	api.HandleFunc("/curve", engineHandler.GetCurve).Methods("GET")
	api.HandleFunc("/ctd", engineHandler.GetCTDs).Methods("GET")
	api.HandleFunc("/ctd/{tenor}", engineHandler.GetCTD).Methods("GET")
	api.HandleFunc("/opportunities", engineHandler.GetOpportunities).Methods("GET")
	api.HandleFunc("/orders", engineHandler.GetOrders).Methods("GET")
	api.HandleFunc("/refresh", engineHandler.Refresh).Methods("POST")

	if historyHandler != nil {
		history := api.PathPrefix("/history").Subrouter()
		history.HandleFunc("/curves", historyHandler.GetCurves).Methods("GET")
		history.HandleFunc("/opportunities", historyHandler.GetOpportunities).Methods("GET")
		history.HandleFunc("/orders", historyHandler.GetOrders).Methods("GET")
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "basisengine-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from handler panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
