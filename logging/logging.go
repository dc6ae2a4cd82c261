package logging

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// LogEntry is a single log entry, decoupled from zap internals so that it can
// be forwarded and published.
type LogEntry struct {
	// Time is when the entry was logged.
	Time time.Time
	// Message is the log message.
	Message string
	// Level is the log level of the entry.
	Level zapcore.Level
	// LoggerName is the name of the logger that logged the entry.
	LoggerName string
	// Fields holds all structured fields of the entry.
	Fields map[string]interface{}
}

// entryBufferSize is the buffer size for the channel returned by
// NewPublishOmitCore. When the buffer is full, entries are dropped instead of
// blocking the logging call site.
const entryBufferSize = 256

// publishOmitLoggerName is the logger name (infix) whose entries are not
// forwarded. Otherwise, publishing a log entry about publishing log entries
// would feed back into itself.
const publishOmitLoggerName = "log-publish"

// publishCore is a zapcore.Core that forwards logged entries as LogEntry to a
// channel.
type publishCore struct {
	lifetime context.Context
	// baseFields are fields added via With.
	baseFields []zapcore.Field
	// forward is where logged entries are sent to.
	forward chan<- LogEntry
}

// NewPublishOmitCore creates a zapcore.Core that forwards all logged entries
// to the returned channel until the given context.Context is done. Entries
// logged by the log publisher itself are omitted. When the channel buffer is
// full, entries are dropped.
func NewPublishOmitCore(lifetime context.Context) (zapcore.Core, <-chan LogEntry) {
	forward := make(chan LogEntry, entryBufferSize)
	return &publishCore{
		lifetime: lifetime,
		forward:  forward,
	}, forward
}

func (core *publishCore) Enabled(_ zapcore.Level) bool {
	return true
}

func (core *publishCore) With(fields []zapcore.Field) zapcore.Core {
	baseFields := make([]zapcore.Field, 0, len(core.baseFields)+len(fields))
	baseFields = append(baseFields, core.baseFields...)
	baseFields = append(baseFields, fields...)
	return &publishCore{
		lifetime:   core.lifetime,
		baseFields: baseFields,
		forward:    core.forward,
	}
}

func (core *publishCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if strings.Contains(entry.LoggerName, publishOmitLoggerName) {
		return checked
	}
	return checked.AddCore(entry, core)
}

func (core *publishCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	// Encode all fields into a plain map.
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range core.baseFields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}
	logEntry := LogEntry{
		Time:       entry.Time,
		Message:    entry.Message,
		Level:      entry.Level,
		LoggerName: entry.LoggerName,
		Fields:     enc.Fields,
	}
	select {
	case <-core.lifetime.Done():
	case core.forward <- logEntry:
	default:
		// Buffer full. Dropping is preferred over blocking the call site.
	}
	return nil
}

func (core *publishCore) Sync() error {
	return nil
}
