package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new structured logger writing to output.
// output is a zap sink path: "stderr", "stdout" or a file path.
func New(env, output string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if output != "" && output != "stderr" && output != "stdout" {
			// colour escapes are noise in a log file
			config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	}

	if output == "" {
		output = "stderr"
	}
	// Keep logs off stdout, which belongs to the interactive console
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{"stderr"}

	if env == "production" {
		config.Encoding = "json"
	}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// NewWithDefaults creates a logger with default settings
func NewWithDefaults() *zap.Logger {
	env := os.Getenv("CATALOG_APP_ENV")
	if env == "" {
		env = "development"
	}

	logger, err := New(env, "stderr")
	if err != nil {
		// Fallback to basic logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
