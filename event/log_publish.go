package event

import "time"

// NextLogEntryEvent is published for every log entry that is forwarded to the
// portal.
type NextLogEntryEvent struct {
	// Time is when the entry was logged.
	Time time.Time `json:"time"`
	// Message is the log message.
	Message string `json:"message"`
	// Level is the log level in its string representation.
	Level string `json:"level"`
	// LoggerName is the name of the logger that logged the entry.
	LoggerName string `json:"logger_name"`
	// Fields holds all structured fields of the entry.
	Fields map[string]interface{} `json:"fields"`
}
