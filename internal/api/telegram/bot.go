package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"photo-counter/internal/container"
	"photo-counter/internal/logger"
)

// Bot представляет Telegram-бота
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	log     *logger.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	c.Logger.Info("Authorized on account %s", api.Self.UserName)

	b := &Bot{api: api, log: c.Logger}
	b.handler = NewHandler(c, b.send)
	return b, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.handler.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	chatID := msg.Chat.ID

	// Обработка команд
	if msg.IsCommand() {
		b.handler.HandleCommand(ctx, chatID, userID, msg.Command(), msg.CommandArguments())
		return
	}

	// Фото или картинка, отправленная файлом
	fileID := ""
	switch {
	case len(msg.Photo) > 0:
		// Берём файл с максимальным разрешением
		fileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		fileID = msg.Document.FileID
	}
	if fileID != "" {
		data, ext, err := b.downloadFile(ctx, fileID)
		if err != nil {
			b.log.Error("Error downloading photo: %v", err)
			b.send(chatID, Reply{Text: msgPhotoError})
			return
		}
		b.handler.HandlePhoto(ctx, chatID, userID, data, ext)
		return
	}

	b.handler.HandleText(ctx, chatID, userID, msg.Text)
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("download file: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}

	ext := filepath.Ext(file.FilePath)
	if ext == "" {
		ext = ".jpg"
	}
	return data, ext, nil
}

// send отправляет текст или документ
func (b *Bot) send(chatID int64, reply Reply) {
	var c tgbotapi.Chattable
	if reply.File != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: reply.FileName, Bytes: reply.File})
		doc.Caption = reply.Text
		c = doc
	} else {
		c = tgbotapi.NewMessage(chatID, reply.Text)
	}

	if _, err := b.api.Send(c); err != nil {
		b.log.Error("Error sending message: %v", err)
	}
}
