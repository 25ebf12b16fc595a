package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKeyType string

const requestIDKey requestIDKeyType = "request_id"

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe writes the access log line and records request metrics under the
// matched route template.
func observe(logger Logger, metrics Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if v := recover(); v != nil {
					logger.Errorf("Panic serving %s %s: %v", r.Method, r.URL.Path, v)
					writeMessage(rec, http.StatusInternalServerError, "Internal server error")
				}

				route := r.URL.Path
				if current := mux.CurrentRoute(r); current != nil {
					if tpl, err := current.GetPathTemplate(); err == nil {
						route = tpl
					}
				}
				duration := time.Since(start)
				metrics.RecordHTTPRequest(r.Method, route, rec.status, duration)
				logger.Infof("%s %s %d %s request_id=%s",
					r.Method, r.URL.Path, rec.status, duration.Round(time.Millisecond), RequestIDFromContext(r.Context()))
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
