package logger

import (
	"context"

	"go-viz/internal/config"
	"go-viz/internal/database"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger tees every entry to the console and the engine log collection.
func NewLogger(lc fx.Lifecycle, cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	dbWriter := NewDBLogWriter(mongodb, cfg)
	logger, err := Build(cfg, dbWriter)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = logger.Sync()
			dbWriter.Close()
			return nil
		},
	})

	zap.ReplaceGlobals(logger)
	return logger, nil
}

// Build creates the base logger for the environment and wraps its core with
// writer when one is given.
func Build(cfg *config.Config, writer *DBLogWriter) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Important: Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	if writer == nil {
		return baseLogger, nil
	}

	var core zapcore.Core = NewDBCore(baseLogger.Core(), writer)
	return zap.New(core, zap.AddCaller()), nil
}
