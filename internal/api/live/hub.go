package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
	"photo-counter/internal/logger"
)

const (
	EventSessionChanged = "session_changed"
	EventSessionDeleted = "session_deleted"

	broadcastBuffer = 64

	// зритель отключается, если pong не пришёл за pongWait
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Event сообщение, которое получают подключённые зрители
type Event struct {
	Type      string          `json:"type"`
	Session   *entity.Session `json:"session,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Hub рассылает изменения сессий всем подключённым websocket-клиентам.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	pongWait   time.Duration
	pingPeriod time.Duration
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
		logger:     log,
	}
}

// Run обслуживает подключения до отмены ctx, затем закрывает всех клиентов.
// Вызывается один раз.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register добавляет клиента; после остановки хаба соединение просто закрывается.
func (h *Hub) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount возвращает число подключённых зрителей
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// SessionChanged рассылает сессию после записи
func (h *Hub) SessionChanged(session entity.Session) {
	h.publish(Event{Type: EventSessionChanged, Session: &session})
}

// SessionDeleted рассылает ID удалённой сессии
func (h *Hub) SessionDeleted(sessionID string) {
	h.publish(Event{Type: EventSessionDeleted, SessionID: sessionID})
}

// publish не блокирует вызывающего: при переполненной очереди событие теряется.
func (h *Hub) publish(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Error encoding event: %v", err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Broadcast queue is full, dropped %s event", event.Type)
	}
}

var _ port.SessionNotifier = (*Hub)(nil)
