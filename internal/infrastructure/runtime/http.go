package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
)

// httpRuntime serves ingestion runs over HTTP. POST /runs takes the run
// request payload directly; the runtime wraps it in the request envelope.
type httpRuntime struct {
	handler ports.Handler
	logger  observability.Logger
	metrics observability.Metrics
	config  *config.HTTPConfig
	server  *http.Server
}

func NewHTTPRuntime(cfg *config.HTTPConfig, handler ports.Handler, obs observability.Observability) (ports.Runtime, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.http")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	if handler == nil {
		return nil, errors.New("handler is required")
	}

	return &httpRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}, nil
}

func (rt *httpRuntime) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/runs", rt.handleRun)
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	rt.server = &http.Server{
		Addr:         rt.config.Addr,
		Handler:      mux,
		ReadTimeout:  rt.config.ReadTimeout,
		WriteTimeout: rt.config.WriteTimeout,
	}

	rt.logger.Info("Starting HTTP runtime", "address", rt.config.Addr)
	rt.metrics.IncrementCounter("http.starts", nil)

	if err := rt.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (rt *httpRuntime) Stop(ctx context.Context) error {
	if rt.server == nil {
		return nil
	}

	rt.logger.Info("Shutting down HTTP server")
	return rt.server.Shutdown(ctx)
}

func (rt *httpRuntime) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rt.handleMethodNotAllowed(w, r)
		return
	}

	start := time.Now()
	rt.logger.Info("HTTP request received",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)
	rt.metrics.IncrementCounter("http.requests", nil)
	defer func() {
		rt.metrics.RecordHistogram("http.request_duration",
			float64(time.Since(start).Milliseconds()), nil)
	}()

	body, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		rt.handleBadRequest(w, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	if !json.Valid(body) {
		rt.handleBadRequest(w, errors.New("request body is not valid JSON"))
		return
	}

	request := ports.RuntimeRequest{
		ID:        uuid.New().String(),
		Source:    "http",
		Type:      "ingest.run",
		Payload:   body,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]string{
			"http_method":      r.Method,
			"http_path":        r.URL.Path,
			"http_remote_addr": r.RemoteAddr,
		},
	}

	resp, err := rt.handler.Handle(r.Context(), request)
	rt.sendResponse(w, resp, err)
	rt.logRequestComplete(request, resp, err)
}

func (rt *httpRuntime) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"status":"ok"}`)
}

func (rt *httpRuntime) sendResponse(w http.ResponseWriter, resp ports.RuntimeResponse, err error) {
	w.Header().Set("Content-Type", "application/json")

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		errResp := ports.RuntimeResponse{
			Success: false,
			Error:   err.Error(),
		}
		if encErr := json.NewEncoder(w).Encode(errResp); encErr != nil {
			rt.logger.Error("Failed to encode error response", "error", encErr)
		}
		return
	}

	statusCode := http.StatusOK
	if !resp.Success {
		statusCode = http.StatusUnprocessableEntity
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		rt.logger.Error("Failed to encode response", "error", err)
	}
}

func (rt *httpRuntime) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rt.logger.Info("Method not allowed",
		"method", r.Method,
		"path", r.URL.Path)
	rt.metrics.IncrementCounter("http.method_not_allowed", nil)

	w.Header().Set("Allow", "POST")
	http.Error(w, "Method not allowed. Only POST is supported.", http.StatusMethodNotAllowed)
}

func (rt *httpRuntime) handleBadRequest(w http.ResponseWriter, err error) {
	rt.logger.Error("Bad request", "error", err)
	rt.metrics.IncrementCounter("http.bad_request", nil)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	resp := ports.RuntimeResponse{
		Success: false,
		Error:   err.Error(),
	}
	json.NewEncoder(w).Encode(resp)
}

func (rt *httpRuntime) logRequestComplete(req ports.RuntimeRequest, resp ports.RuntimeResponse, err error) {
	switch {
	case err != nil:
		rt.logger.Error("Request processing failed",
			"request_id", req.ID,
			"error", err)
	case !resp.Success:
		rt.logger.Info("Request processing unsuccessful",
			"request_id", req.ID,
			"error", resp.Error)
	default:
		rt.logger.Info("Request processed successfully",
			"request_id", req.ID)
	}
}
