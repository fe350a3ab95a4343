package telegram

import (
	"errors"
	"fmt"
	"strings"

	app "photo-counter/internal/application"
	"photo-counter/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я помогаю считать объекты на фотографиях.

1️⃣ Создайте сессию: /new Склад;коробки
2️⃣ Отправьте фото
3️⃣ Отметьте объекты (/tap x y), введите число (/count n) или попросите детектор (/auto)
4️⃣ Сохраните результат: /done

/help — все команды`

	msgHelp = `ℹ️ Команды:

Сессии
/new <название>[;<что считаем>] — новая сессия
/sessions — список сессий
/use <n> — выбрать сессию
/delete <n> — удалить сессию
/export — CSV активной сессии

Проверка фото
/auto — автоматический подсчёт
/recount — пересчитать автоматически
/manual — ручной режим
/tap <x> <y> — отметить объект
/remove <n> — убрать отметку
/count <n> — ввести число вручную
/clear — сбросить отметки
/status — текущее состояние
/done — сохранить счёт
/cancel — отменить проверку

/apikey <ключ> — ключ детектора`

	msgSendPhoto        = "📸 Отправьте фото, чтобы начать подсчёт."
	msgUnknownCommand   = "❓ Неизвестная команда. Используйте /help для справки."
	msgNoSession        = "📂 Сначала создайте сессию (/new) или выберите её (/use)."
	msgNoSessions       = "📂 Сессий пока нет. Создайте: /new <название>"
	msgNoReview         = "📸 Нет открытой проверки. Отправьте фото."
	msgReviewInProgress = "⚠️ Сначала завершите текущую проверку: /done или /cancel."
	msgCancelled        = "❌ Проверка отменена."
	msgCounting         = "⏳ Считаю объекты..."
	msgBusy             = "⏳ Детектор ещё считает, подождите."
	msgWrongMode        = "⚠️ В этом режиме команда недоступна."
	msgNeedAPIKey       = "🔑 Для автоматического подсчёта нужен ключ: /apikey <ключ>"
	msgAPIKeySaved      = "🔑 Ключ сохранён. Повторите /auto."
	msgNoObjects        = "🔍 Объекты не найдены. Переключитесь в ручной режим: /manual"
	msgDetectionFailed  = "⚠️ Не удалось получить подсчёт. Попробуйте /recount или /manual."
	msgSaveFailed       = "⚠️ Не удалось сохранить данные. Попробуйте ещё раз."
	msgInternalError    = "⚠️ Что-то пошло не так. Попробуйте ещё раз."
	msgPhotoError       = "⚠️ Не удалось обработать изображение. Попробуйте другое фото."
	msgManual           = "✋ Ручной режим. Отмечайте объекты /tap x y или введите число /count n."

	usageNew    = "Использование: /new <название>[;<что считаем>]"
	usageIndex  = "Использование: /%s <номер>"
	usageTap    = "Использование: /tap <x> <y>"
	usageCount  = "Использование: /count <число>"
	usageAPIKey = "Использование: /apikey <ключ>"

	// список отметок в статусе обрезается
	maxListedDetections = 20
)

func describeError(err error) string {
	var ve *entity.ValidationError
	switch {
	case errors.Is(err, app.ErrBusy):
		return msgBusy
	case errors.Is(err, app.ErrWrongMode):
		return msgWrongMode
	case errors.Is(err, app.ErrClosed):
		return msgNoReview
	case entity.IsMissingCredential(err):
		return msgNeedAPIKey
	case errors.As(err, &ve):
		return "⚠️ " + ve.Message
	case entity.IsNotFound(err):
		return "⚠️ Не найдено: " + err.Error()
	case entity.IsDetection(err):
		return msgDetectionFailed
	case entity.IsPersistence(err):
		return msgSaveFailed
	default:
		return msgInternalError
	}
}

func renderSessions(sessions []entity.Session, activeID string) string {
	var b strings.Builder
	b.WriteString("📂 Сессии:\n")
	for i, s := range sessions {
		marker := "  "
		if s.ID == activeID {
			marker = "▶️"
		}
		fmt.Fprintf(&b, "%s %d. %s (%s): %d, фото: %d\n", marker, i+1, s.Name, s.ObjectLabel(), s.TotalCount, len(s.Images))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStatus(session entity.Session, st app.ReviewState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Сессия: %s (%s)\n", session.Name, session.ObjectLabel())

	mode := "ручной"
	if st.Mode == app.ModeAutomatic {
		mode = "автоматический"
	}
	fmt.Fprintf(&b, "Режим: %s\n", mode)
	if st.Processing {
		b.WriteString("⏳ Идёт подсчёт...\n")
	}
	if st.HasAutoCount {
		fmt.Fprintf(&b, "Детектор насчитал: %d\n", st.AutoCount)
	}

	count := st.CountText
	if st.Mode == app.ModeAutomatic {
		count = fmt.Sprint(len(st.Detections))
	}
	fmt.Fprintf(&b, "Счёт: %s\n", count)
	fmt.Fprintf(&b, "Отметок: %d, правок: %d", len(st.Detections), st.Corrections)

	for i, d := range st.Detections {
		if i == maxListedDetections {
			fmt.Fprintf(&b, "\n… ещё %d", len(st.Detections)-maxListedDetections)
			break
		}
		x, y := d.BBox.Center()
		kind := "авто"
		if d.Manual {
			kind = "ручная"
		}
		fmt.Fprintf(&b, "\n%d. (%.0f, %.0f) %s", i+1, x, y, kind)
	}
	return b.String()
}
