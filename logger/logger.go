package logger

import (
	"go.uber.org/zap"
)

// New returns a named sugared logger writing to stderr. Pipeline
// packages log progress and per-genome warnings through it; fatal
// exits belong to the CLI layer, not here.
func New(name string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Sugar().Named(name), nil
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
