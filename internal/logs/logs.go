// Package logs builds the process-wide zap logger.
package logs

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Selectors used with zap.L().Named
const (
	Stack     = "stack"
	Session   = "session"
	Sourcemap = "sourcemap"
	Server    = "server"
	Sandbox   = "sandbox"
)

// New builds a console logger at the given level
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	zapcfg := zap.NewProductionConfig()
	zapcfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	zapcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapcfg.Encoding = "console"
	zapcfg.Level = zap.NewAtomicLevelAt(lvl)
	zapcfg.OutputPaths = []string{"stderr"}

	logger, err := zapcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}

	return logger, nil
}
