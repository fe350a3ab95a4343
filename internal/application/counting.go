package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
	"photo-counter/internal/logger"
)

// DefaultDetectionTimeout ограничение на ожидание ответа детектора
const DefaultDetectionTimeout = 30 * time.Second

// Mode режим проверки фото
type Mode string

const (
	ModeManual    Mode = "manual"    // счёт вводит пользователь: касаниями или числом
	ModeAutomatic Mode = "automatic" // счёт запрашивается у детектора
)

var (
	// ErrBusy детектор ещё не ответил, правки не принимаются
	ErrBusy = errors.New("automatic detection is in progress")
	// ErrClosed проверка уже сохранена
	ErrClosed = errors.New("review is already committed")
	// ErrWrongMode операция недоступна в текущем режиме
	ErrWrongMode = errors.New("operation is not available in this mode")
)

// DetectionOutcome итог автоматического подсчёта
type DetectionOutcome struct {
	Count     int  // сколько объектов вернул детектор
	NoObjects bool // детектор ничего не нашёл; это не ошибка
	Discarded bool // режим сменился, пока ждали ответа, результат отброшен
}

// ReviewState снимок состояния проверки для отображения
type ReviewState struct {
	Mode         Mode
	Processing   bool
	Detections   []entity.Detection
	Corrections  int
	AutoCount    int
	HasAutoCount bool
	CountText    string
	CanCommit    bool
}

// CountingService запускает проверки фото с общими зависимостями.
type CountingService struct {
	sessions *SessionService
	settings *SettingsService
	photos   port.PhotoStore
	counter  port.ObjectCounter
	timeout  time.Duration
	log      *logger.Logger
	newID    func() string
}

// NewCountingService создаёт сервис; timeout <= 0 заменяется значением по умолчанию.
func NewCountingService(sessions *SessionService, settings *SettingsService, photos port.PhotoStore, counter port.ObjectCounter, timeout time.Duration, log *logger.Logger) *CountingService {
	if timeout <= 0 {
		timeout = DefaultDetectionTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CountingService{
		sessions: sessions,
		settings: settings,
		photos:   photos,
		counter:  counter,
		timeout:  timeout,
		log:      log,
		newID:    uuid.NewString,
	}
}

// Start открывает проверку фото для существующей сессии в ручном режиме.
func (s *CountingService) Start(ctx context.Context, photoPath, sessionID string) (*CountingWorkflow, error) {
	if _, ok := s.sessions.GetSession(ctx, sessionID); !ok {
		return nil, entity.NewNotFoundError("session", sessionID)
	}
	return &CountingWorkflow{
		svc:        s,
		photoPath:  photoPath,
		sessionID:  sessionID,
		mode:       ModeManual,
		detections: []entity.Detection{},
	}, nil
}

// manualEntry единственный источник ручного счёта: либо число, введённое
// пользователем, либо длина списка отметок.
type manualEntry struct {
	typed bool
	text  string
}

// CountingWorkflow состояние проверки одного фото.
//
// Все методы безопасны для вызова из разных горутин. Пока детектор не
// ответил, правки отклоняются с ErrBusy; SwitchToManual принимается и
// отменяет запрос, а его поздний результат отбрасывается.
type CountingWorkflow struct {
	svc       *CountingService
	photoPath string
	sessionID string

	mu          sync.Mutex
	mode        Mode
	detections  []entity.Detection
	corrections int
	entry       manualEntry
	autoCount   int
	hasAuto     bool
	processing  bool
	generation  uint64
	cancel      context.CancelFunc
	closed      bool
}

func (w *CountingWorkflow) PhotoPath() string { return w.photoPath }
func (w *CountingWorkflow) SessionID() string { return w.sessionID }

// Mode возвращает текущий режим
func (w *CountingWorkflow) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Processing сообщает, ждём ли ответа детектора
func (w *CountingWorkflow) Processing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.processing
}

// Detections возвращает копию текущих отметок
func (w *CountingWorkflow) Detections() []entity.Detection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return entity.CloneDetections(w.detections)
}

// Corrections возвращает число правок с начала проверки или последнего подсчёта
func (w *CountingWorkflow) Corrections() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.corrections
}

// AutoCount возвращает последнее число от детектора
func (w *CountingWorkflow) AutoCount() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.autoCount, w.hasAuto
}

// CountText возвращает значение поля ручного счёта
func (w *CountingWorkflow) CountText() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.countTextLocked()
}

// CanCommit сообщает, можно ли сейчас сохранить результат
func (w *CountingWorkflow) CanCommit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canCommitLocked()
}

// State возвращает снимок состояния проверки
func (w *CountingWorkflow) State() ReviewState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ReviewState{
		Mode:         w.mode,
		Processing:   w.processing,
		Detections:   entity.CloneDetections(w.detections),
		Corrections:  w.corrections,
		AutoCount:    w.autoCount,
		HasAutoCount: w.hasAuto,
		CountText:    w.countTextLocked(),
		CanCommit:    w.canCommitLocked(),
	}
}

// SwitchToManual переводит проверку в ручной режим и сбрасывает отметки.
// Незавершённый запрос к детектору отменяется.
func (w *CountingWorkflow) SwitchToManual() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.abortPendingLocked()
	w.mode = ModeManual
	w.resetLocked()
	return nil
}

// SwitchToAutomatic переводит проверку в автоматический режим и сразу
// запрашивает подсчёт у детектора.
func (w *CountingWorkflow) SwitchToAutomatic(ctx context.Context) (DetectionOutcome, error) {
	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		w.mu.Unlock()
		return DetectionOutcome{}, err
	}
	w.mode = ModeAutomatic
	w.resetLocked()
	return w.requestUnlocking(ctx)
}

// Recount повторяет запрос к детектору в автоматическом режиме.
func (w *CountingWorkflow) Recount(ctx context.Context) (DetectionOutcome, error) {
	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		w.mu.Unlock()
		return DetectionOutcome{}, err
	}
	if w.mode != ModeAutomatic {
		w.mu.Unlock()
		return DetectionOutcome{}, ErrWrongMode
	}
	return w.requestUnlocking(ctx)
}

// AddPoint добавляет ручную отметку в точке касания.
func (w *CountingWorkflow) AddPoint(x, y float64) (entity.Detection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutableLocked(); err != nil {
		return entity.Detection{}, err
	}

	d := entity.NewManualDetection(w.svc.newID(), x, y)
	w.detections = append(w.detections, d)
	w.corrections++
	w.entry = manualEntry{}
	return d, nil
}

// RemoveDetection удаляет отметку по ID.
func (w *CountingWorkflow) RemoveDetection(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutableLocked(); err != nil {
		return err
	}

	for i, d := range w.detections {
		if d.ID == id {
			w.detections = append(w.detections[:i], w.detections[i+1:]...)
			w.corrections++
			w.entry = manualEntry{}
			return nil
		}
	}
	return entity.NewNotFoundError("detection", id)
}

// SetCountText принимает число, введённое пользователем вручную.
//
// Ненулевое число, отличное от числа отметок, становится единственным
// источником счёта: отметки и правки сбрасываются. Число, равное числу
// отметок, ничего не меняет.
func (w *CountingWorkflow) SetCountText(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutableLocked(); err != nil {
		return err
	}
	if w.mode != ModeManual {
		return ErrWrongMode
	}

	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	switch {
	case err == nil && n == len(w.detections):
		w.entry = manualEntry{}
	case err == nil && n > 0:
		w.detections = []entity.Detection{}
		w.corrections = 0
		w.entry = manualEntry{typed: true, text: text}
	default:
		// пустое, нулевое или неразборчивое значение: отметки не трогаем,
		// при сохранении оно даст ошибку валидации
		w.entry = manualEntry{typed: true, text: text}
	}
	return nil
}

// ClearAll сбрасывает отметки, правки и число от детектора, режим не меняется.
func (w *CountingWorkflow) ClearAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutableLocked(); err != nil {
		return err
	}
	w.resetLocked()
	w.autoCount = 0
	w.hasAuto = false
	return nil
}

// Commit сохраняет итоговый счёт в сессию и закрывает проверку.
func (w *CountingWorkflow) Commit(ctx context.Context) (entity.ImageCount, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutableLocked(); err != nil {
		return entity.ImageCount{}, err
	}

	var count int
	switch w.mode {
	case ModeManual:
		count = w.manualCountLocked()
		if count == 0 {
			return entity.ImageCount{}, entity.NewValidationError("please enter a count")
		}
	case ModeAutomatic:
		count = len(w.detections)
		if count == 0 {
			return entity.ImageCount{}, entity.NewValidationError("no objects to commit")
		}
	}

	img, err := w.svc.sessions.AddImage(ctx, w.sessionID, entity.NewImage{
		Path:        w.photoPath,
		Count:       count,
		Corrections: w.corrections,
		Detections:  entity.CloneDetections(w.detections),
	})
	if err != nil {
		return entity.ImageCount{}, err
	}

	w.closed = true
	return img, nil
}

func (w *CountingWorkflow) mutableLocked() error {
	if w.closed {
		return ErrClosed
	}
	if w.processing {
		return ErrBusy
	}
	return nil
}

func (w *CountingWorkflow) resetLocked() {
	w.detections = []entity.Detection{}
	w.corrections = 0
	w.entry = manualEntry{}
}

func (w *CountingWorkflow) abortPendingLocked() {
	if !w.processing {
		return
	}
	w.generation++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.processing = false
}

func (w *CountingWorkflow) manualCountLocked() int {
	if !w.entry.typed {
		return len(w.detections)
	}
	n, err := strconv.Atoi(w.entry.text)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (w *CountingWorkflow) countTextLocked() string {
	if w.entry.typed {
		return w.entry.text
	}
	return strconv.Itoa(len(w.detections))
}

func (w *CountingWorkflow) canCommitLocked() bool {
	if w.closed || w.processing {
		return false
	}
	if w.mode == ModeAutomatic {
		return len(w.detections) > 0
	}
	return w.manualCountLocked() > 0
}

// requestUnlocking вызывается с захваченным мьютексом и отпускает его на
// время запроса к детектору.
func (w *CountingWorkflow) requestUnlocking(ctx context.Context) (DetectionOutcome, error) {
	w.generation++
	gen := w.generation
	reqCtx, cancel := context.WithTimeout(ctx, w.svc.timeout)
	w.cancel = cancel
	w.processing = true
	w.mu.Unlock()

	count, err := w.detect(reqCtx)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation || w.closed || w.mode != ModeAutomatic {
		w.svc.log.Info("Dropped detection result for %s: review moved on", w.photoPath)
		return DetectionOutcome{Discarded: true}, nil
	}
	w.processing = false
	w.cancel = nil

	if err != nil {
		w.svc.log.Warning("Detection failed for %s: %v", w.photoPath, err)
		return DetectionOutcome{}, err
	}

	w.detections = entity.PlaceholderDetections(count)
	w.corrections = 0
	w.entry = manualEntry{}
	w.autoCount = count
	w.hasAuto = true
	return DetectionOutcome{Count: count, NoObjects: count == 0}, nil
}

func (w *CountingWorkflow) detect(ctx context.Context) (int, error) {
	s := w.svc
	if s.counter == nil {
		return 0, &entity.DetectionError{Kind: entity.RequestFailed, Err: errors.New("detector is not configured")}
	}

	settings := entity.DefaultSettings()
	if s.settings != nil {
		settings = s.settings.Get(ctx)
	}
	if s.counter.RequiresCredential() && !settings.HasDetectorKey() {
		return 0, &entity.DetectionError{Kind: entity.MissingCredential}
	}

	label := entity.DefaultObjectLabel
	if session, ok := s.sessions.GetSession(ctx, w.sessionID); ok {
		label = session.ObjectLabel()
	}

	if s.photos == nil {
		return 0, &entity.DetectionError{Kind: entity.RequestFailed, Err: errors.New("photo store is not configured")}
	}
	image, err := s.photos.Load(ctx, w.photoPath)
	if err != nil {
		return 0, &entity.DetectionError{Kind: entity.RequestFailed, Err: fmt.Errorf("load photo: %w", err)}
	}

	count, err := s.counter.CountObjects(ctx, port.CountRequest{
		Image:         image,
		ObjectType:    label,
		APIKey:        settings.DetectorAPIKey,
		Sensitivity:   settings.Sensitivity,
		MinObjectSize: settings.MinObjectSize,
	})
	if err != nil {
		var de *entity.DetectionError
		if errors.As(err, &de) {
			return 0, err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, &entity.DetectionError{Kind: entity.RequestFailed, Err: fmt.Errorf("detector timed out: %w", err)}
		}
		return 0, &entity.DetectionError{Kind: entity.RequestFailed, Err: err}
	}
	if count < 0 {
		return 0, &entity.DetectionError{Kind: entity.RequestFailed, Err: fmt.Errorf("detector returned negative count %d", count)}
	}
	return count, nil
}
