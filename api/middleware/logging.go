package middleware

import (
	"net/http"
	"time"

	"github.com/copperspur/rodeo-backend/pkg/logger"
)

// wrapWriter captures the status code written by the handler chain.
type wrapWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrapWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *wrapWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Logging emits a start and completion line per request with method, path,
// status and duration.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			logg.Info(ctx, "request.start")

			ww := &wrapWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			if ww.status == 0 {
				ww.status = http.StatusOK
			}
			ctx = logg.WithFields(ctx, map[string]any{
				"status":      ww.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			logg.Info(ctx, "request.complete")
		})
	}
}
