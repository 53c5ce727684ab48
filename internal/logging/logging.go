package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new sugared zap logger at the given level.
// dev selects the human friendly development encoder; production JSON encoding is used otherwise.
func New(level string, dev bool) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}

	return logger.Sugar(), nil
}

// NewTestLogger creates a new zap logger using the dev mode at debug level.
func NewTestLogger() *zap.SugaredLogger {
	logger, err := zap.NewDevelopment(zap.AddCaller())
	if err != nil {
		return zap.NewNop().Sugar()
	}

	return logger.Sugar()
}
