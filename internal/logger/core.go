package logger

import (
	"go.uber.org/zap/zapcore"
)

// SessionIDKey is the field name that ties a log line to a configuration session.
const SessionIDKey = "session_id"

// DBCore is a custom Zap Core that intercepts logs
type DBCore struct {
	zapcore.Core
	writer *DBLogWriter
	fields []zapcore.Field
}

// NewDBCore wraps an existing core (like console logger) and adds DB logging
func NewDBCore(baseCore zapcore.Core, writer *DBLogWriter) zapcore.Core {
	return &DBCore{
		Core:   baseCore,
		writer: writer,
	}
}

// With keeps fields added through logger.With so Write can still see them.
func (c *DBCore) With(fields []zapcore.Field) zapcore.Core {
	return &DBCore{
		Core:   c.Core.With(fields),
		writer: c.writer,
		fields: append(append([]zapcore.Field(nil), c.fields...), fields...),
	}
}

// Write is called for every log entry
func (c *DBCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	var sessionID string
	for _, f := range append(c.fields, fields...) {
		if f.Key == SessionIDKey && f.Type == zapcore.StringType {
			sessionID = f.String
		}
	}

	// To get the function name, Zap must be configured with AddCaller()
	c.writer.AddLog(LogEntry{
		Level:     entry.Level,
		Message:   entry.Message,
		SessionID: sessionID,
		Caller:    entry.Caller.Function,
	})

	return c.Core.Write(entry, fields)
}

// Check decides if we should log this level
func (c *DBCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
