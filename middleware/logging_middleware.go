package middleware

import (
	"net/http"
	"time"

	"localeditor/ctxkeys"
	"localeditor/utils"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// HTTPHeadersLoggingMiddleware логирует все входящие HTTP заголовки (для отладки)
func HTTPHeadersLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := make(map[string][]string)
		for key, values := range r.Header {
			headers[key] = values
		}

		utils.Logger.Debug("Incoming HTTP request headers",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Any("headers", headers),
		)

		next.ServeHTTP(w, r)
	})
}

// RequestLoggingMiddleware assigns a request ID and logs one line per request.
func RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := ctxkeys.SetRequestID(r.Context(), requestID)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			utils.Logger.Error("HTTP request", fields...)
			return
		}
		utils.Logger.Info("HTTP request", fields...)
	})
}
