// Package logging configures the process wide zap logger
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Configure will build the logger, install it as the zap global and redirect the standard library log to it
func Configure(level zapcore.Level) (*zap.Logger, error) {
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(level)
	loggerConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	loggerConfig.EncoderConfig.TimeKey = "time"
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	loggerConfig.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(zap.L())
	return zap.L(), nil
}

// ParseLevel returns the zap level for a name such as "debug", empty selects info
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(name)
}
