package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
	dev   bool
)

func init() {
	Init(os.Getenv("ENVIRONMENT") == "development")
}

// Init replaces the package logger. Development mode uses zap's console
// encoder and enables Debug output.
func Init(development bool) {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		l, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		l = zap.NewNop()
	}

	mu.Lock()
	sugar = l.Sugar()
	dev = development
	mu.Unlock()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Info(format string, v ...interface{}) {
	get().Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	get().Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	mu.RLock()
	enabled := dev
	mu.RUnlock()
	if enabled {
		get().Debugf(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	get().Warnf(format, v...)
}

// With returns a child logger carrying structured fields, e.g.
// logger.With("chat_id", id).Infow("view opened").
func With(args ...interface{}) *zap.SugaredLogger {
	return get().With(args...)
}

func Sync() {
	_ = get().Sync()
}
