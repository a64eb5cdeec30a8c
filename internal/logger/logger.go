// Package logger provides leveled logging (info/warning/error) to per-level
// files plus stdout/stderr. All long-running components share one instance.
package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	mu         sync.Mutex
}

// New creates a Logger writing into dir. The directory is created if missing.
// If dir is empty, only stdout/stderr are used.
func New(dir string) (*Logger, error) {
	l := &Logger{}

	infoW := io.Writer(os.Stdout)
	warnW := io.Writer(os.Stdout)
	errW := io.Writer(os.Stderr)

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		infoFile, err := openLogFile(filepath.Join(dir, "info.log"))
		if err != nil {
			return nil, err
		}
		warnFile, err := openLogFile(filepath.Join(dir, "warning.log"))
		if err != nil {
			return nil, err
		}
		errFile, err := openLogFile(filepath.Join(dir, "error.log"))
		if err != nil {
			return nil, err
		}
		infoW = io.MultiWriter(os.Stdout, infoFile)
		warnW = io.MultiWriter(os.Stdout, warnFile)
		errW = io.MultiWriter(os.Stderr, errFile)
	}

	l.infoLog = log.New(infoW, "INFO    ", log.Ldate|log.Ltime)
	l.warningLog = log.New(warnW, "WARNING ", log.Ldate|log.Ltime)
	l.errorLog = log.New(errW, "ERROR   ", log.Ldate|log.Ltime)
	return l, nil
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return &Logger{
		infoLog:    log.New(io.Discard, "", 0),
		warningLog: log.New(io.Discard, "", 0),
		errorLog:   log.New(io.Discard, "", 0),
	}
}

func openLogFile(name string) (*os.File, error) {
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}
