package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dyluth/anchor/pkg/bridge"
)

// HealthResponse is the JSON body returned by GET /healthz.
type HealthResponse struct {
	Status               string `json:"status"`
	Redis                string `json:"redis,omitempty"`
	InterceptorInstalled bool   `json:"interceptor_installed"`
	HasSample            bool   `json:"has_sample"`
	SampleAgeMs          int64  `json:"sample_age_ms,omitempty"`
	Error                string `json:"error,omitempty"`
}

// HealthServer provides HTTP health check endpoints for the guard.
type HealthServer struct {
	client *bridge.Client
	engine *Engine
	addr   string
	server *http.Server
}

// NewHealthServer creates a new health check server listening on addr
// (default ":8080").
func NewHealthServer(client *bridge.Client, engine *Engine, addr string) *HealthServer {
	if addr == "" {
		addr = ":8080"
	}
	return &HealthServer{
		client: client,
		engine: engine,
		addr:   addr,
	}
}

// Start starts the HTTP health check server.
func (h *HealthServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	// Start server in background
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Health server error: %v\n", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health check server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if Redis is accessible, 503 Service Unavailable otherwise.
// A missing interceptor or empty store is reported but is not unhealthy:
// the guard degrades, it does not fail.
func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:               "healthy",
		InterceptorInstalled: h.engine.InterceptorInstalled(),
	}

	if sample, ok := h.engine.Store().Latest(); ok {
		response.HasSample = true
		response.SampleAgeMs = time.Now().UnixMilli() - sample.TimestampMs
	}

	if err := h.client.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(response)
		return
	}

	response.Redis = "connected"

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
