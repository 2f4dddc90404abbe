package logging

import "go.uber.org/zap"

// ZapLogger adapts a *zap.Logger to the Logger interface, for use at the
// top of the engine (Run Coordinator, Scheduler, transports) where
// pulling in zap directly is fine.
type ZapLogger struct {
	L *zap.Logger
}

// NewZap wraps an existing zap logger.
func NewZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{L: l}
}

func toZapFields(fields []Field) []zap.Field {
	zf := make([]zap.Field, len(fields))
	for i, f := range fields {
		zf[i] = zap.Any(f.Key, f.Value)
	}
	return zf
}

func (z *ZapLogger) Debug(msg string, fields ...Field) { z.L.Debug(msg, toZapFields(fields)...) }
func (z *ZapLogger) Info(msg string, fields ...Field)  { z.L.Info(msg, toZapFields(fields)...) }
func (z *ZapLogger) Warn(msg string, fields ...Field)  { z.L.Warn(msg, toZapFields(fields)...) }
func (z *ZapLogger) Error(msg string, fields ...Field) { z.L.Error(msg, toZapFields(fields)...) }

var _ Logger = (*ZapLogger)(nil)
