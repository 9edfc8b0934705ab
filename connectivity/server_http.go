package connectivity

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/windriver/idgen"
	"github.com/hazyhaar/windriver/kit"
)

// RequestIDHeader carries the request id across HTTP hops.
const RequestIDHeader = "X-Request-ID"

// maxHTTPRequestBody caps channel payloads accepted by NewHTTPHandler.
const maxHTTPRequestBody int64 = 10 << 20

type httpServer struct {
	router *Router
	logger *slog.Logger
	newID  idgen.Generator
}

// HTTPOption configures NewHTTPHandler.
type HTTPOption func(*httpServer)

// WithHTTPLogger sets the request logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(s *httpServer) { s.logger = l }
}

// WithHTTPIDGenerator sets the generator used when a request has no
// X-Request-ID header.
func WithHTTPIDGenerator(gen idgen.Generator) HTTPOption {
	return func(s *httpServer) { s.newID = gen }
}

// NewHTTPHandler exposes a Router over HTTP:
//
//	POST /v1/{service}   body is the payload, response body is the result
//	GET  /v1/services    JSON list of ServiceInfo
//	GET  /healthz
//
// Coded errors are answered with 422 and a CallError body, unknown services
// with 404, any other failure with 502.
func NewHTTPHandler(router *Router, opts ...HTTPOption) http.Handler {
	s := &httpServer{router: router, logger: slog.Default(), newID: idgen.Prefixed("req_", idgen.Default)}
	for _, o := range opts {
		o(s)
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/services", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, slices.Collect(s.router.ListServices()))
	})
	r.Post("/v1/{service}", s.call)
	return r
}

// requestID resolves the request id and stores it in the context.
func (s *httpServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = s.newID()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := kit.WithRequestID(r.Context(), id)
		ctx = kit.WithTransport(ctx, "http")
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *httpServer) call(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxHTTPRequestBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	resp, err := s.router.Call(r.Context(), service, payload)
	if err != nil {
		var nf *ErrServiceNotFound
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if ce := AsCallError(err); ce != nil {
			writeJSON(w, http.StatusUnprocessableEntity, ce)
			return
		}
		s.logger.ErrorContext(r.Context(), "connectivity/http: call failed",
			"service", service, "request_id", kit.GetRequestID(r.Context()), "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
