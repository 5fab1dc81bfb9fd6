package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with the action/fields call shape used across the
// services. Actions are snake_case event names, fields are free-form.
type Logger struct {
	z *zap.Logger
}

func New(service string) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(os.Stdout), level())
	z := zap.New(core).With(zap.String("service", service))
	return &Logger{z: z}
}

func level() zapcore.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Nop returns a logger that discards everything; used by tests.
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

func (l *Logger) Info(action string, fields map[string]any) {
	l.z.Info(action, toZap(fields)...)
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.z.Debug(action, toZap(fields)...)
}

func (l *Logger) Warn(action string, fields map[string]any) {
	l.z.Warn(action, toZap(fields)...)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	zf := toZap(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.z.Error(action, zf...)
}

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}
