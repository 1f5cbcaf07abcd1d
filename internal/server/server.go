package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/formrelay/internal/api"
	"github.com/shaharia-lab/formrelay/internal/build"
	"github.com/shaharia-lab/formrelay/internal/metrics"
)

// corsOptions allows any website to post forms, with credentials.
var corsOptions = cors.Options{
	AllowOriginFunc:  func(_ *http.Request, _ string) bool { return true },
	AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
	AllowedHeaders:   []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization", "Cache-Control", "Pragma"},
	ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	AllowCredentials: true,
	MaxAge:           86400,

	OptionsSuccessStatus: http.StatusNoContent,
}

// shutdownMargin is added on top of the ready timeout when draining requests.
const shutdownMargin = 5 * time.Second

// ShutdownTimeout is how long shutdown waits for in-flight requests. A request
// may sit in the readiness wait for the whole ready timeout before it sends.
func ShutdownTimeout(readyTimeout time.Duration) time.Duration {
	if readyTimeout < 0 {
		readyTimeout = 0
	}
	return readyTimeout + shutdownMargin
}

// Server is the HTTP server for the form relay.
type Server struct {
	port       int
	shutdown   time.Duration
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New creates a new Server serving apiSrv's routes plus /metrics. Shutdown
// drains requests for ShutdownTimeout(readyTimeout).
func New(apiSrv *api.Server, port int, readyTimeout time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:     port,
		shutdown: ShutdownTimeout(readyTimeout),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(corsOptions))
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	apiSrv.Mount(r)

	s.handler = otelhttp.NewHandler(r, build.Name)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		s.logger.Info("shutting down server", "grace", s.shutdown)
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requestLogger is a chi middleware that logs each incoming request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		attrs := []any{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_ip", r.RemoteAddr),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		}
		if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
			attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
		}
		s.logger.Info("http request", attrs...)
	})
}
