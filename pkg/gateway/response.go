package gateway

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/jsonutil"
	"github.com/reportforge/reportforge/pkg/reporterr"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(status)
	_ = jsonutil.Encode(w, v)
}

// writeError maps err through the taxonomy. Server-side failures are
// logged with their cause; the response carries only the public message.
func (s *Server) writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := reporterr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("kind", string(reporterr.KindOf(err))),
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody{
		Error:   string(reporterr.KindOf(err)),
		Message: reporterr.PublicMessage(err),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// recovery turns handler panics into a 500 instead of a dropped connection.
func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				s.logger.Error("panic in HTTP handler",
					slog.Any("panic", err),
					slog.String("stack", string(debug.Stack())))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: string(reporterr.KindUnknown), Message: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}
