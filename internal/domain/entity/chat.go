package entity

// ChatState состояние чата в диалоге с ботом
type ChatState string

const (
	StateMainMenu   ChatState = "main_menu"  // В главном меню
	StateReviewing  ChatState = "reviewing"  // Идёт проверка фото
	StateProcessing ChatState = "processing" // Ждём ответа детектора
)

// Chat представляет собеседника бота
type Chat struct {
	ID              int64     // Telegram Chat ID
	UserID          int64     // Telegram User ID
	State           ChatState // Текущее состояние диалога
	ActiveSessionID string    // Выбранная сессия подсчёта
}

// NewChat создаёт чат с начальным состоянием
func NewChat(chatID, userID int64) *Chat {
	return &Chat{
		ID:     chatID,
		UserID: userID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние диалога
func (c *Chat) SetState(state ChatState) {
	c.State = state
}

// SelectSession делает сессию активной
func (c *Chat) SelectSession(sessionID string) {
	c.ActiveSessionID = sessionID
}
