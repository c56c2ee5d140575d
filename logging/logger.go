package logging

import "go.uber.org/zap"

// New creates a new zap logger for the given environment. local and
// development get a human readable debug logger, everything else gets the
// production JSON logger.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "local":
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	case "development":
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		return cfg.Build()
	default:
		return zap.NewProduction()
	}
}
