package bootstrap

import (
	"os"
	"path/filepath"

	"faucet-agent/internal/config"

	"go.uber.org/zap"
)

func newLogger(config *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if config.AppConfig.Debug {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.DisableStacktrace = true

	switch config.AppConfig.LogLevel {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	if config.AppConfig.LogToFile {
		if err := os.MkdirAll(filepath.Dir(config.AppConfig.LogFile), 0o755); err != nil {
			return nil, err
		}

		zapConfig.OutputPaths = []string{config.AppConfig.LogFile}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}
