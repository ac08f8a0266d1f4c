package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"groundops/internal/platform/logging"
	"groundops/internal/platform/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Logger attaches a request-scoped logger to the context and writes one line
// per request. Every request is also recorded on collector when it is set.
func Logger(logger *zap.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With(zap.String("request_id", GetRequestID(r.Context())))
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r.WithContext(logging.WithContext(r.Context(), reqLogger)))

			elapsed := time.Since(start)
			if collector != nil {
				collector.Record(recorder.status, elapsed)
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.status),
				zap.Int("bytes", recorder.bytes),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
			}
			switch {
			case recorder.status >= 500:
				reqLogger.Error("request", fields...)
			case recorder.status >= 400:
				reqLogger.Warn("request", fields...)
			default:
				reqLogger.Info("request", fields...)
			}
		})
	}
}
