// Package telemetry constructs the process-wide structured logger.
// One logger is built at process start, following the teacher's
// convention; computor-worker's main function uses it for its startup
// and shutdown messages. Workflows and activities are not given it and
// do not log through it.
package telemetry

import (
	"go.uber.org/zap"
)

// Config controls logger construction.
type Config struct {
	// Development enables human-readable console output instead of JSON.
	Development bool
	// Level is one of "debug", "info", "warn", "error".
	Level string
}

// New builds a *zap.SugaredLogger for the given Config.
func New(cfg Config) (*zap.SugaredLogger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// NewNop returns a logger that discards all output, like the teacher's
// logging.NewNopLogger() default.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
