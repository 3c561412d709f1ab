package httpserver

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type timedWriter struct {
	http.ResponseWriter
	start  time.Time
	status int
	bytes  int
}

// WriteHeader stamps X-Process-Time (seconds) just before headers go out.
func (w *timedWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	w.Header().Set("X-Process-Time", strconv.FormatFloat(time.Since(w.start).Seconds(), 'f', 6, 64))
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func requestLogger(lg *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := &timedWriter{ResponseWriter: w, start: time.Now()}
			next.ServeHTTP(tw, r)
			if tw.status == 0 {
				tw.WriteHeader(http.StatusOK)
			}
			lg.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
				"status", tw.status,
				"bytes", tw.bytes,
				"duration", time.Since(tw.start).String(),
			)
		})
	}
}

// recoverer turns a panic into a 500 {"detail": ...}. The panic value is only
// exposed when showDetail is set.
func recoverer(lg *zap.SugaredLogger, showDetail bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				lg.Errorw("panic recovered", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
				detail := "internal server error"
				if showDetail {
					detail = fmt.Sprint(rec)
				}
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, map[string]string{"detail": detail})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
