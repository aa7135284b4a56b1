package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hearthlabs/hearth/internal/metrics"
	"go.uber.org/zap"
)

// Instrument wraps a handler with request-ID assignment, an access log, a
// response-time header and request metrics.
func Instrument(logger *zap.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK, start: time.Now()}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		duration := time.Since(rec.start)
		m.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), duration)

		logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", duration))
	})
}

// statusRecorder captures the response status and stamps the timing header
// just before headers are flushed.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	start   time.Time
	written bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.written {
		return
	}
	r.written = true
	r.status = status
	r.Header().Set("X-Response-Time", fmt.Sprintf("%dms", time.Since(r.start).Milliseconds()))
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}
