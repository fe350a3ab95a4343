package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	app "photo-counter/internal/application"
	"photo-counter/internal/logger"
)

// SetupRoutes регистрирует websocket и JSON API только для чтения.
func SetupRoutes(hub *Hub, sessions *app.SessionService, export *app.ExportService, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", ViewWebsocketHandler(hub, log))
	mux.HandleFunc("GET /api/sessions", ListSessionsHandler(sessions, log))
	mux.HandleFunc("GET /api/sessions/{id}", GetSessionHandler(sessions, log))
	mux.HandleFunc("GET /api/sessions/{id}/export.csv", ExportCSVHandler(export, log))
	mux.HandleFunc("GET /api/stats", StatsHandler(sessions, log))

	return mux
}

// Serve запускает HTTP-сервер и хаб до отмены ctx.
func Serve(ctx context.Context, addr string, hub *Hub, sessions *app.SessionService, export *app.ExportService, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           SetupRoutes(hub, sessions, export, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Live view listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
