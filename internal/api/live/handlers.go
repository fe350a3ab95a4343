package live

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	app "photo-counter/internal/application"
	"photo-counter/internal/domain/entity"
	"photo-counter/internal/logger"
)

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// ViewWebsocketHandler подключает зрителя к рассылке изменений
func ViewWebsocketHandler(hub *Hub, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(hub.pongWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(hub.pongWait))
			return nil
		})

		hub.Register(connection)
		defer hub.Unregister(connection)

		stop := make(chan struct{})
		defer close(stop)
		go keepAlive(connection, hub.pingPeriod, stop, log)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				log.Info("Viewer left: %v", err)
				break
			}
		}
	}
}

// keepAlive шлёт ping, пока зритель не отключится.
// WriteControl можно вызывать параллельно с рассылкой хаба.
func keepAlive(connection *websocket.Conn, period time.Duration, stop <-chan struct{}, log *logger.Logger) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := connection.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warning("Ping failed: %v", err)
				return
			}
		}
	}
}

// ListSessionsHandler отдаёт все сессии, новые первыми
func ListSessionsHandler(sessions *app.SessionService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, sessions.ListSessions(r.Context()), log)
	}
}

// GetSessionHandler отдаёт одну сессию по ID
func GetSessionHandler(sessions *app.SessionService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessions.GetSession(r.Context(), r.PathValue("id"))
		if !ok {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, session, log)
	}
}

// ExportCSVHandler отдаёт CSV сессии файлом
func ExportCSVHandler(export *app.ExportService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		csv, err := export.ExportCSV(r.Context(), id)
		if entity.IsNotFound(err) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Unable to export session", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="session-`+id+`.csv"`)
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Error("Error writing CSV response: %v", err)
		}
	}
}

// StatsHandler отдаёт сводку по всем сессиям
func StatsHandler(sessions *app.SessionService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, sessions.Stats(r.Context()), log)
	}
}

func writeJSON(w http.ResponseWriter, v any, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error encoding JSON response: %v", err)
	}
}
