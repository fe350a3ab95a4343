package entity

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Settings общие настройки приложения, не привязаны к сессии
type Settings struct {
	Sensitivity    float64 `json:"sensitivity"`
	MinObjectSize  int     `json:"minObjectSize"`
	EnableHaptics  bool    `json:"enableHaptics"`
	EnableSound    bool    `json:"enableSound"`
	AutoSave       bool    `json:"autoSave"`
	Theme          string  `json:"theme"`
	DetectorAPIKey string  `json:"detectorApiKey,omitempty"`
}

// DefaultSettings возвращает настройки по умолчанию
func DefaultSettings() Settings {
	return Settings{
		Sensitivity:   0.7,
		MinObjectSize: 20,
		EnableHaptics: true,
		EnableSound:   false,
		AutoSave:      true,
		Theme:         ThemeDark,
	}
}

// HasDetectorKey сообщает, задан ли ключ удалённого детектора
func (s Settings) HasDetectorKey() bool {
	return s.DetectorAPIKey != ""
}

// Validate проверяет допустимые значения настроек.
func (s Settings) Validate() error {
	if s.Sensitivity < 0 || s.Sensitivity > 1 {
		return NewValidationError("sensitivity must be between 0 and 1")
	}
	if s.MinObjectSize < 0 {
		return NewValidationError("minObjectSize must not be negative")
	}
	if s.Theme != ThemeDark && s.Theme != ThemeLight {
		return NewValidationError("theme must be dark or light")
	}
	return nil
}
