package vision

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoCount ответ детектора не содержит числа
var ErrNoCount = errors.New("detector response has no count")

var digitRun = regexp.MustCompile(`\d+`)

// ParseCount извлекает число объектов из текстового ответа модели.
// Сначала ответ разбирается целиком, затем берётся первая группа цифр.
// Без цифр или при отрицательном числе возвращается 0, а в строгом режиме ErrNoCount.
func ParseCount(text string, strict bool) (int, error) {
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(text); err == nil {
		if n < 0 {
			return noCount(strict)
		}
		return n, nil
	}

	if run := digitRun.FindString(text); run != "" {
		n, err := strconv.Atoi(run)
		if err != nil {
			return 0, err
		}
		return n, nil
	}

	return noCount(strict)
}

func noCount(strict bool) (int, error) {
	if strict {
		return 0, ErrNoCount
	}
	return 0, nil
}
