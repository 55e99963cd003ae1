// Package logger configures the process-wide zap logger.  Components obtain
// the shared sugared logger through Get rather than constructing their own.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu   sync.Mutex
	base *zap.SugaredLogger
)

// Init builds the global logger.  In "prod" the JSON production encoder is
// used; every other environment gets the human-friendly development encoder.
// Calling Init more than once replaces the previous logger.
func Init(env string) error {
	var (
		l   *zap.Logger
		err error
	)
	if env == "prod" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	mu.Lock()
	base = l.Sugar()
	mu.Unlock()
	return nil
}

// Get returns the shared sugared logger.  When Init has not been called a
// no-op logger is returned so that library code never nil-panics.
func Get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		base = zap.NewNop().Sugar()
	}
	return base
}

// Sync flushes buffered log entries.  Intended for use in a deferred call
// from main.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
}
