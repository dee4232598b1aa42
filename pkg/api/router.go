package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"dev/bravebird/signup-automation-go/pkg/metrics"
)

// NewRouter registers every route on a gorilla router
func NewRouter(h *Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestID, Metrics, Logging(h.log))

	router.HandleFunc("/health", h.Health).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()

	// Catalogue
	apiRouter.HandleFunc("/frameworks", h.ListFrameworks).Methods("GET")
	apiRouter.HandleFunc("/llm/providers", h.ListLLMProviders).Methods("GET")

	// Scripts
	apiRouter.HandleFunc("/scripts", h.GenerateScript).Methods("POST")
	apiRouter.HandleFunc("/scripts", h.ListScripts).Methods("GET")
	apiRouter.HandleFunc("/scripts/generations/{id}", h.GetGeneration).Methods("GET")
	apiRouter.HandleFunc("/scripts/{id}", h.GetScript).Methods("GET")
	apiRouter.HandleFunc("/scripts/{id}", h.DeleteScript).Methods("DELETE")
	apiRouter.HandleFunc("/scripts/{id}/download", h.DownloadScript).Methods("GET")

	// Sign-up runs
	apiRouter.HandleFunc("/signup/runs", h.StartRun).Methods("POST")
	apiRouter.HandleFunc("/signup/runs", h.ListRuns).Methods("GET")
	apiRouter.HandleFunc("/signup/runs/{id}", h.GetRun).Methods("GET")
	apiRouter.HandleFunc("/signup/runs/{id}/cancel", h.CancelRun).Methods("POST")
	apiRouter.HandleFunc("/signup/runs/{id}/stream", h.StreamRunUpdates).Methods("GET")

	// Screenshots
	apiRouter.HandleFunc("/screenshots/{filename}", h.ServeScreenshot).Methods("GET")

	return router
}

// NewHandler wraps the router with CORS
func NewHandler(h *Handlers, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{HeaderXRequestID},
		AllowCredentials: true,
	})
	return c.Handler(NewRouter(h))
}
