// internal/common/logger/loggertest/loggertest.go

// Package loggertest provides a Logger backed by the test harness. It
// lives apart from package logger so production binaries never link the
// testing package.
package loggertest

import (
	"testing"

	"talent-marketplace/internal/common/logger"

	"go.uber.org/zap/zaptest"
)

// New returns a Logger writing through t.
func New(t testing.TB) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}
