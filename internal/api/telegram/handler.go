package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	app "photo-counter/internal/application"
	"photo-counter/internal/container"
	"photo-counter/internal/domain/entity"
)

// Reply ответ бота: текст или файл с подписью
type Reply struct {
	Text     string
	FileName string
	File     []byte
}

// Responder доставляет ответ в чат
type Responder func(chatID int64, reply Reply)

// Handler разбирает команды чата и вызывает сервисы подсчёта.
// Каждому чату соответствует не больше одной открытой проверки фото.
type Handler struct {
	c       *container.Container
	respond Responder

	mu      sync.Mutex
	reviews map[int64]*app.CountingWorkflow
	pending map[int64]bool
	wg      sync.WaitGroup
}

func NewHandler(c *container.Container, respond Responder) *Handler {
	return &Handler{
		c:       c,
		respond: respond,
		reviews: make(map[int64]*app.CountingWorkflow),
		pending: make(map[int64]bool),
	}
}

// Wait дожидается фоновых запросов к детектору
func (h *Handler) Wait() {
	h.wg.Wait()
}

// HandleCommand обрабатывает команды бота
func (h *Handler) HandleCommand(ctx context.Context, chatID, userID int64, command, args string) {
	chat, err := h.c.Chats.Get(ctx, chatID, userID)
	if err != nil {
		h.c.Logger.Error("Error getting chat %d: %v", chatID, err)
		return
	}
	args = strings.TrimSpace(args)

	switch command {
	case "start":
		h.reply(chatID, msgStart)
	case "help":
		h.reply(chatID, msgHelp)

	case "new":
		h.newSession(ctx, chat, args)
	case "sessions":
		h.listSessions(ctx, chat)
	case "use":
		h.useSession(ctx, chat, args)
	case "delete":
		h.deleteSession(ctx, chat, args)
	case "export":
		h.exportSession(ctx, chat)
	case "apikey":
		h.setAPIKey(ctx, chat, args)

	case "auto":
		h.detect(ctx, chat, false)
	case "recount":
		h.detect(ctx, chat, true)
	case "manual":
		h.withReview(chat, func(wf *app.CountingWorkflow) error {
			if err := wf.SwitchToManual(); err != nil {
				return err
			}
			h.setState(ctx, chat, entity.StateReviewing)
			h.reply(chat.ID, msgManual)
			return nil
		})
	case "tap":
		h.tap(chat, args)
	case "remove":
		h.removeDetection(chat, args)
	case "count":
		h.setCount(chat, args)
	case "clear":
		h.withReview(chat, func(wf *app.CountingWorkflow) error {
			if err := wf.ClearAll(); err != nil {
				return err
			}
			h.reply(chat.ID, "🧹 Отметки сброшены. Счёт: "+wf.CountText())
			return nil
		})
	case "status":
		h.withReview(chat, func(wf *app.CountingWorkflow) error {
			h.reply(chat.ID, h.status(ctx, wf))
			return nil
		})
	case "done":
		h.commit(ctx, chat)
	case "cancel":
		h.cancel(ctx, chat)

	default:
		h.reply(chatID, msgUnknownCommand)
	}
}

// HandlePhoto сохраняет фото и открывает по нему проверку в ручном режиме.
func (h *Handler) HandlePhoto(ctx context.Context, chatID, userID int64, data []byte, ext string) {
	chat, err := h.c.Chats.Get(ctx, chatID, userID)
	if err != nil {
		h.c.Logger.Error("Error getting chat %d: %v", chatID, err)
		return
	}

	if h.review(chatID) != nil {
		h.reply(chatID, msgReviewInProgress)
		return
	}
	session, ok := h.activeSession(ctx, chat)
	if !ok {
		h.reply(chatID, msgNoSession)
		return
	}

	path, err := h.c.Photos.Save(ctx, data, ext)
	if err != nil {
		h.c.Logger.Error("Error saving photo for chat %d: %v", chatID, err)
		h.reply(chatID, msgPhotoError)
		return
	}

	wf, err := h.c.CountingService.Start(ctx, path, session.ID)
	if err != nil {
		h.reply(chatID, describeError(err))
		return
	}

	h.mu.Lock()
	h.reviews[chatID] = wf
	h.mu.Unlock()
	h.setState(ctx, chat, entity.StateReviewing)

	h.c.Logger.Info("Chat %d started review of %s in session %s", chatID, path, session.ID)
	h.reply(chatID, "📸 Фото сохранено.\n"+msgManual+"\nДля автоматического подсчёта: /auto")
}

// HandleText принимает число как ручной ввод счёта во время проверки
func (h *Handler) HandleText(ctx context.Context, chatID, userID int64, text string) {
	chat, err := h.c.Chats.Get(ctx, chatID, userID)
	if err != nil {
		h.c.Logger.Error("Error getting chat %d: %v", chatID, err)
		return
	}

	text = strings.TrimSpace(text)
	if _, err := strconv.Atoi(text); err == nil && h.review(chatID) != nil {
		h.setCount(chat, text)
		return
	}
	h.reply(chatID, msgSendPhoto)
}

func (h *Handler) newSession(ctx context.Context, chat *entity.Chat, args string) {
	name, objectType, _ := strings.Cut(args, ";")
	if strings.TrimSpace(name) == "" {
		h.reply(chat.ID, usageNew)
		return
	}

	session, err := h.c.SessionService.CreateSession(ctx, name, objectType)
	if err != nil {
		h.reply(chat.ID, describeError(err))
		return
	}

	chat.SelectSession(session.ID)
	h.saveChat(ctx, chat)
	h.reply(chat.ID, fmt.Sprintf("✅ Сессия «%s» создана и выбрана. Считаем: %s.\n%s", session.Name, session.ObjectLabel(), msgSendPhoto))
}

func (h *Handler) listSessions(ctx context.Context, chat *entity.Chat) {
	sessions := h.c.SessionService.ListSessions(ctx)
	if len(sessions) == 0 {
		h.reply(chat.ID, msgNoSessions)
		return
	}
	h.reply(chat.ID, renderSessions(sessions, chat.ActiveSessionID))
}

func (h *Handler) useSession(ctx context.Context, chat *entity.Chat, args string) {
	session, ok := h.sessionByIndex(ctx, chat, "use", args)
	if !ok {
		return
	}
	if wf := h.review(chat.ID); wf != nil && wf.SessionID() != session.ID {
		h.reply(chat.ID, msgReviewInProgress)
		return
	}

	chat.SelectSession(session.ID)
	h.saveChat(ctx, chat)
	h.reply(chat.ID, fmt.Sprintf("▶️ Активная сессия: %s. Итого: %d", session.Name, session.TotalCount))
}

func (h *Handler) deleteSession(ctx context.Context, chat *entity.Chat, args string) {
	session, ok := h.sessionByIndex(ctx, chat, "delete", args)
	if !ok {
		return
	}
	if err := h.c.SessionService.DeleteSession(ctx, session.ID); err != nil {
		h.reply(chat.ID, describeError(err))
		return
	}

	h.mu.Lock()
	if wf, ok := h.reviews[chat.ID]; ok && wf.SessionID() == session.ID {
		_ = wf.SwitchToManual()
		delete(h.reviews, chat.ID)
		chat.SetState(entity.StateMainMenu)
	}
	h.mu.Unlock()

	if chat.ActiveSessionID == session.ID {
		chat.SelectSession("")
	}
	h.saveChat(ctx, chat)
	h.reply(chat.ID, fmt.Sprintf("🗑 Сессия «%s» удалена.", session.Name))
}

func (h *Handler) exportSession(ctx context.Context, chat *entity.Chat) {
	session, ok := h.activeSession(ctx, chat)
	if !ok {
		h.reply(chat.ID, msgNoSession)
		return
	}

	csv, err := h.c.ExportService.ExportCSV(ctx, session.ID)
	if err != nil {
		h.reply(chat.ID, describeError(err))
		return
	}
	h.respond(chat.ID, Reply{
		Text:     fmt.Sprintf("📄 %s: итого %d", session.Name, session.TotalCount),
		FileName: "session-" + session.ID + ".csv",
		File:     []byte(csv),
	})
}

func (h *Handler) setAPIKey(ctx context.Context, chat *entity.Chat, args string) {
	if args == "" {
		h.reply(chat.ID, usageAPIKey)
		return
	}
	if err := h.c.SettingsService.SetDetectorAPIKey(ctx, args); err != nil {
		h.reply(chat.ID, describeError(err))
		return
	}
	h.reply(chat.ID, msgAPIKeySaved)
}

// acquire занимает чат под один запрос к детектору
func (h *Handler) acquire(chatID int64, wf *app.CountingWorkflow) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending[chatID] || wf.Processing() {
		return false
	}
	h.pending[chatID] = true
	return true
}

func (h *Handler) release(chatID int64) {
	h.mu.Lock()
	delete(h.pending, chatID)
	h.mu.Unlock()
}

// detect запускает автоматический подсчёт в фоне; ответ приходит отдельным сообщением.
func (h *Handler) detect(ctx context.Context, chat *entity.Chat, recount bool) {
	wf := h.review(chat.ID)
	if wf == nil {
		h.reply(chat.ID, msgNoReview)
		return
	}
	if recount && wf.Mode() != app.ModeAutomatic {
		h.reply(chat.ID, msgWrongMode)
		return
	}
	if !h.acquire(chat.ID, wf) {
		h.reply(chat.ID, msgBusy)
		return
	}

	h.setState(ctx, chat, entity.StateProcessing)
	h.reply(chat.ID, msgCounting)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		var out app.DetectionOutcome
		var err error
		if recount {
			out, err = wf.Recount(ctx)
		} else {
			out, err = wf.SwitchToAutomatic(ctx)
		}
		h.release(chat.ID)

		if h.review(chat.ID) == wf {
			h.setState(ctx, chat, entity.StateReviewing)
		}

		switch {
		case err != nil:
			h.c.Logger.Warning("Detection for chat %d failed: %v", chat.ID, err)
			h.reply(chat.ID, describeError(err))
		case out.Discarded:
		case out.NoObjects:
			h.reply(chat.ID, msgNoObjects)
		default:
			h.reply(chat.ID, fmt.Sprintf("🤖 Найдено объектов: %d\n\n%s", out.Count, h.status(ctx, wf)))
		}
	}()
}

func (h *Handler) tap(chat *entity.Chat, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		h.reply(chat.ID, usageTap)
		return
	}
	x, errX := strconv.ParseFloat(fields[0], 64)
	y, errY := strconv.ParseFloat(fields[1], 64)
	if errX != nil || errY != nil {
		h.reply(chat.ID, usageTap)
		return
	}

	h.withReview(chat, func(wf *app.CountingWorkflow) error {
		if _, err := wf.AddPoint(x, y); err != nil {
			return err
		}
		h.reply(chat.ID, fmt.Sprintf("📍 Отметка %d добавлена. Счёт: %s", len(wf.Detections()), countOf(wf)))
		return nil
	})
}

func (h *Handler) removeDetection(chat *entity.Chat, args string) {
	n, err := strconv.Atoi(args)
	if err != nil || n < 1 {
		h.reply(chat.ID, fmt.Sprintf(usageIndex, "remove"))
		return
	}

	h.withReview(chat, func(wf *app.CountingWorkflow) error {
		detections := wf.Detections()
		if n > len(detections) {
			return entity.NewNotFoundError("detection", strconv.Itoa(n))
		}
		if err := wf.RemoveDetection(detections[n-1].ID); err != nil {
			return err
		}
		h.reply(chat.ID, fmt.Sprintf("➖ Отметка %d убрана. Счёт: %s", n, countOf(wf)))
		return nil
	})
}

func (h *Handler) setCount(chat *entity.Chat, args string) {
	if args == "" {
		h.reply(chat.ID, usageCount)
		return
	}

	h.withReview(chat, func(wf *app.CountingWorkflow) error {
		if err := wf.SetCountText(args); err != nil {
			return err
		}
		h.reply(chat.ID, "✏️ Счёт: "+wf.CountText())
		return nil
	})
}

func (h *Handler) commit(ctx context.Context, chat *entity.Chat) {
	h.withReview(chat, func(wf *app.CountingWorkflow) error {
		img, err := wf.Commit(ctx)
		if err != nil {
			return err
		}

		h.mu.Lock()
		delete(h.reviews, chat.ID)
		h.mu.Unlock()
		h.setState(ctx, chat, entity.StateMainMenu)

		session, _ := h.c.SessionService.GetSession(ctx, wf.SessionID())
		h.reply(chat.ID, fmt.Sprintf("✅ Сохранено: %d (правок: %d). Итого в сессии «%s»: %d", img.Count, img.Corrections, session.Name, session.TotalCount))
		return nil
	})
}

func (h *Handler) cancel(ctx context.Context, chat *entity.Chat) {
	h.mu.Lock()
	wf, ok := h.reviews[chat.ID]
	delete(h.reviews, chat.ID)
	h.mu.Unlock()

	if ok {
		_ = wf.SwitchToManual()
	}
	h.setState(ctx, chat, entity.StateMainMenu)
	h.reply(chat.ID, msgCancelled)
}

func (h *Handler) withReview(chat *entity.Chat, fn func(wf *app.CountingWorkflow) error) {
	wf := h.review(chat.ID)
	if wf == nil {
		h.reply(chat.ID, msgNoReview)
		return
	}
	if err := fn(wf); err != nil {
		h.reply(chat.ID, describeError(err))
	}
}

func (h *Handler) review(chatID int64) *app.CountingWorkflow {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reviews[chatID]
}

func (h *Handler) status(ctx context.Context, wf *app.CountingWorkflow) string {
	session, _ := h.c.SessionService.GetSession(ctx, wf.SessionID())
	return renderStatus(session, wf.State())
}

func (h *Handler) activeSession(ctx context.Context, chat *entity.Chat) (entity.Session, bool) {
	if chat.ActiveSessionID == "" {
		return entity.Session{}, false
	}
	return h.c.SessionService.GetSession(ctx, chat.ActiveSessionID)
}

func (h *Handler) sessionByIndex(ctx context.Context, chat *entity.Chat, command, args string) (entity.Session, bool) {
	n, err := strconv.Atoi(args)
	if err != nil || n < 1 {
		h.reply(chat.ID, fmt.Sprintf(usageIndex, command))
		return entity.Session{}, false
	}
	sessions := h.c.SessionService.ListSessions(ctx)
	if n > len(sessions) {
		h.reply(chat.ID, describeError(entity.NewNotFoundError("session", strconv.Itoa(n))))
		return entity.Session{}, false
	}
	return sessions[n-1], true
}

func (h *Handler) setState(ctx context.Context, chat *entity.Chat, state entity.ChatState) {
	chat.SetState(state)
	if err := h.c.Chats.UpdateState(ctx, chat.ID, state); err != nil {
		h.c.Logger.Error("Error updating chat %d state: %v", chat.ID, err)
	}
}

func (h *Handler) saveChat(ctx context.Context, chat *entity.Chat) {
	if err := h.c.Chats.Save(ctx, chat); err != nil {
		h.c.Logger.Error("Error saving chat %d: %v", chat.ID, err)
	}
}

func (h *Handler) reply(chatID int64, text string) {
	h.respond(chatID, Reply{Text: text})
}

func countOf(wf *app.CountingWorkflow) string {
	if wf.Mode() == app.ModeAutomatic {
		return strconv.Itoa(len(wf.Detections()))
	}
	return wf.CountText()
}
