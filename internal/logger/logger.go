package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger пишет сообщения уровней info/warning/error в консоль и, при
// заданном каталоге, дублирует их в файлы.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      []*os.File
	mu         sync.Mutex
}

// New создаёт логгер. Пустой logDir означает вывод только в консоль.
func New(logDir string) (*Logger, error) {
	infoWriter := io.Writer(os.Stdout)
	warningWriter := io.Writer(os.Stdout)
	errorWriter := io.Writer(os.Stderr)

	l := &Logger{}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		infoFile, err := l.openLogFile(filepath.Join(logDir, "info.log"))
		if err != nil {
			return nil, err
		}
		warningFile, err := l.openLogFile(filepath.Join(logDir, "warning.log"))
		if err != nil {
			l.Close()
			return nil, err
		}
		errorFile, err := l.openLogFile(filepath.Join(logDir, "error.log"))
		if err != nil {
			l.Close()
			return nil, err
		}
		infoWriter = io.MultiWriter(os.Stdout, infoFile)
		warningWriter = io.MultiWriter(os.Stdout, warningFile)
		errorWriter = io.MultiWriter(os.Stderr, errorFile)
	}

	l.setup(infoWriter, warningWriter, errorWriter)
	return l, nil
}

// NewWriter создаёт логгер, пишущий все уровни в w.
func NewWriter(w io.Writer) *Logger {
	l := &Logger{}
	l.setup(w, w, w)
	return l
}

// Nop возвращает логгер, который ничего не пишет
func Nop() *Logger {
	return NewWriter(io.Discard)
}

func (l *Logger) setup(info, warning, errw io.Writer) {
	l.infoLog = log.New(info, "INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warning, "WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errw, "ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

func (l *Logger) openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Info пишет сообщение уровня info
func (l *Logger) Info(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning пишет сообщение уровня warning
func (l *Logger) Warning(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error пишет сообщение уровня error
func (l *Logger) Error(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// Close закрывает файлы логов
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
