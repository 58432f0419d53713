package rest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type Server struct {
	logger *slog.Logger
	srv    *http.Server
}

func New(logger *slog.Logger, port string, games gameManager, hub subscriber) *Server {
	logger = logger.With("component", "rest")

	return &Server{
		logger: logger,
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           NewRouter(logger, games, hub),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       30 * time.Second,
		},
	}
}

// NewRouter wires the game routes. The top-level routes all act on DefaultGameID.
func NewRouter(logger *slog.Logger, games gameManager, hub subscriber) http.Handler {
	h := newHandlers(logger, games, hub)

	r := mux.NewRouter()
	r.Use(logRequests(logger))

	r.Handle("/ping", &pingHandler{}).Methods(http.MethodGet)

	r.HandleFunc("/", h.getDefault).Methods(http.MethodGet)
	r.HandleFunc("/move", h.moveDefault).Methods(http.MethodPost)
	r.HandleFunc("/play/{column}", h.playDefault).Methods(http.MethodPost)
	r.HandleFunc("/reset", h.resetDefault).Methods(http.MethodPost)
	r.HandleFunc("/ws", h.watchDefault).Methods(http.MethodGet)

	r.HandleFunc("/games", h.createGame).Methods(http.MethodPost)

	game := r.PathPrefix("/games/{id}").Subrouter()
	game.HandleFunc("", h.getGame).Methods(http.MethodGet)
	game.HandleFunc("", h.deleteGame).Methods(http.MethodDelete)
	game.HandleFunc("/move", h.moveGame).Methods(http.MethodPost)
	game.HandleFunc("/play/{column}", h.playGame).Methods(http.MethodPost)
	game.HandleFunc("/reset", h.resetGame).Methods(http.MethodPost)
	game.HandleFunc("/ws", h.watchGame).Methods(http.MethodGet)

	return r
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (that *Server) Start() error {
	that.logger.Info("starting http server", "addr", that.srv.Addr)

	if err := that.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	if err := that.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (that *statusRecorder) WriteHeader(status int) {
	that.status = status
	that.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (that *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := that.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}

	return hijacker.Hijack()
}

func logRequests(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}
