package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/prediction"
	logpkg "github.com/kailas-cloud/housepipe/internal/logger"
	healthuc "github.com/kailas-cloud/housepipe/internal/usecase/health"
	onlineuc "github.com/kailas-cloud/housepipe/internal/usecase/online"
)

// DefaultMaxRecords caps the rows of one predict request.
const DefaultMaxRecords = 1000

// ErrorCode is a machine-readable error kind in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnknownCategory  ErrorCode = "unknown_category"
	CodeMissingColumn    ErrorCode = "missing_column"
	CodeModelNotLoaded   ErrorCode = "model_not_loaded"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// PredictRequest is the body of POST /v1/predict.
type PredictRequest struct {
	Records []map[string]any `json:"records"`
}

// PredictResponse is the answer to POST /v1/predict.
type PredictResponse struct {
	Predictions []prediction.Record `json:"predictions"`
}

// HealthResponse is the answer to GET /healthz.
type HealthResponse struct {
	Status healthuc.Status                  `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves online predictions.
type Server struct {
	predictor     *onlineuc.Service
	health        *healthuc.Service
	gatherer      prometheus.Gatherer
	maxRecords    int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	predictor *onlineuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		predictor:  predictor,
		health:     health,
		gatherer:   prometheus.DefaultGatherer,
		maxRecords: DefaultMaxRecords,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		unknownCategoryHandler,
		missingColumnHandler,
		sentinelHandler(domain.ErrNotFitted, http.StatusServiceUnavailable, CodeModelNotLoaded),
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
	}
	return s
}

// WithMaxRecords overrides the per-request row limit.
func (s *Server) WithMaxRecords(n int) *Server {
	if n > 0 {
		s.maxRecords = n
	}
	return s
}

// WithGatherer serves metrics from g instead of the default registry.
func (s *Server) WithGatherer(g prometheus.Gatherer) *Server {
	s.gatherer = g
	return s
}

// Predict handles POST /v1/predict.
func (s *Server) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Records) == 0 || len(req.Records) > s.maxRecords {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("records count must be between 1 and %d", s.maxRecords))
		return
	}

	out, err := s.predictor.Predict(r.Context(), req.Records)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, PredictResponse{Predictions: out}); err != nil {
		s.requestLogger(r).Error("internal error", zap.Error(err))
	}
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	if err := writeJSON(w, httpStatus, HealthResponse{Status: report.Status, Checks: report.Checks}); err != nil {
		s.requestLogger(r).Error("internal error", zap.Error(err))
	}
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// internalErrorBody is sent when a response cannot be encoded.
const internalErrorBody = `{"code":"internal_error","message":"internal error"}` + "\n"

// writeJSON encodes v before touching the response, so an unencodable value
// becomes a 500 instead of a success status with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(internalErrorBody))
		return fmt.Errorf("encode response: %w", err)
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
	return nil
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	_ = writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFitted,
		domain.ErrEmptyInput,
		domain.ErrInvalidInput,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// unknownCategoryHandler reports the offending column and value; both come
// from the request.
func unknownCategoryHandler(w http.ResponseWriter, err error, _ string) bool {
	var uce *domain.UnknownCategoryError
	if !errors.As(err, &uce) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, CodeUnknownCategory, uce.Error())
	return true
}

func missingColumnHandler(w http.ResponseWriter, err error, _ string) bool {
	var mce *domain.MissingColumnError
	if !errors.As(err, &mce) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, CodeMissingColumn, mce.Error())
	return true
}

// requestLogger returns the request-scoped logger set by the router, or the
// server logger when the handler runs without it.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
