package entity

import (
	"errors"
	"fmt"
)

// ValidationError некорректный ввод пользователя
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Message
}

// NotFoundError ссылка на несуществующую сессию или фото
type NotFoundError struct {
	Kind string // "session" или "image"
	ID   string
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// PersistenceError ошибка записи в хранилище
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DetectionErrorKind вид ошибки детектора
type DetectionErrorKind string

const (
	MissingCredential DetectionErrorKind = "missing_credential" // нет ключа API
	RequestFailed     DetectionErrorKind = "request_failed"     // сеть, API, таймаут
)

// DetectionError ошибка автоматического подсчёта
type DetectionError struct {
	Kind DetectionErrorKind
	Err  error
}

func (e *DetectionError) Error() string {
	if e.Err == nil {
		return "detection: " + string(e.Kind)
	}
	return fmt.Sprintf("detection: %s: %v", e.Kind, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}

// IsValidation сообщает, является ли err ошибкой валидации
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound сообщает, является ли err ошибкой отсутствия сущности
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsPersistence сообщает, является ли err ошибкой записи
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// IsMissingCredential сообщает, что детектору не хватает ключа API
func IsMissingCredential(err error) bool {
	var target *DetectionError
	return errors.As(err, &target) && target.Kind == MissingCredential
}

// IsDetection сообщает, является ли err ошибкой детектора
func IsDetection(err error) bool {
	var target *DetectionError
	return errors.As(err, &target)
}
