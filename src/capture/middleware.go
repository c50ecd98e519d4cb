package capture

import (
	"net/http"
	"runtime/debug"

	"errortrail/src/registry"

	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"
)

// Middleware recovers panics raised further down the chain and answers them
// through the dispatcher. http.ErrAbortHandler is passed through untouched.
// A failure after the response has started is captured but not answered.
func Middleware(d *Dispatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			w := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				d.Respond(w, r, FromPanic(rec, debug.Stack(), r))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerFunc is a request handler that reports failure by returning an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts fn so that any returned error is captured.
func Handle(d *Dispatcher, fn HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		w := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
		if err := fn(w, r); err != nil {
			d.Respond(w, r, FromError(err, r))
		}
	}
}

// Respond captures f and writes whatever response resolution produced. A
// handler failing with another kind turns into the generic failure.
func (d *Dispatcher) Respond(w http.ResponseWriter, r *http.Request, f *registry.Failure) {
	resp, err := d.Capture(r.Context(), f)
	if err != nil {
		logger.WithError(err).WithField("path", f.Path).Error("[capture] error handler failed, answering with generic failure")
		resp = registry.GenericFailure()
	}
	if ww, ok := w.(middleware.WrapResponseWriter); ok && ww.Status() != 0 {
		logger.WithFields(map[string]interface{}{
			"path":   f.Path,
			"status": ww.Status(),
		}).Warn("[capture] response already started, error response not written")
		return
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp registry.Response) {
	status := resp.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(resp.Body); err != nil {
		logger.WithError(err).Debug("[capture] failed to write error response")
	}
}
