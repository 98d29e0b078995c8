package logger

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/version"
)

// ForCommand tags every entry with the running command and build version.
func ForCommand(l *zap.Logger, command string) *zap.Logger {
	return l.With(
		zap.String("command", command),
		zap.String("version", version.Version),
	)
}
