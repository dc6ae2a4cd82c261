// Package logpublishsvc forwards log entries to the portal so that other
// systems on the broker can follow the daemon's log.
package logpublishsvc

import (
	"context"
	"time"

	"github.com/lumicore/lumid/event"
	"github.com/lumicore/lumid/logging"
	"github.com/lumicore/lumid/portal"
	"github.com/lumicore/lumid/service"
	"go.uber.org/zap"
)

// topicLogPublish is the topic to publish log entries to.
const topicLogPublish portal.Topic = "lumicore/lumid/log/next"

// flushDelay is how long entries are collected before publishing them. This
// avoids a publish round-trip per log call.
const flushDelay = 100 * time.Millisecond

// logPublishService batches entries from logEntriesIn and publishes them to
// the portal.
type logPublishService struct {
	logger *zap.Logger
	portal portal.Portal
	// logEntriesIn is the channel to read log entries to publish from.
	logEntriesIn <-chan logging.LogEntry
}

// New creates a new log publish service that can be run. The given
// logging.LogEntry channel is the channel log entries will be read from.
func New(logger *zap.Logger, portal portal.Portal, logEntriesIn <-chan logging.LogEntry) service.Service {
	return &logPublishService{
		logger:       logger,
		portal:       portal,
		logEntriesIn: logEntriesIn,
	}
}

// Run the service until the given context.Context is done. Entries are
// collected into a batch, the first entry of a batch arms the flush timer.
func (s *logPublishService) Run(ctx context.Context) error {
	var batch []logging.LogEntry
	var flushAt <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, more := <-s.logEntriesIn:
			if !more {
				s.flush(ctx, batch)
				return nil
			}
			batch = append(batch, entry)
			if flushAt == nil {
				flushAt = time.After(flushDelay)
			}
		case <-flushAt:
			s.flush(ctx, batch)
			batch = nil
			flushAt = nil
		}
	}
}

// flush publishes all entries of the given batch to topicLogPublish.
func (s *logPublishService) flush(ctx context.Context, batch []logging.LogEntry) {
	for _, entry := range batch {
		s.portal.Publish(ctx, topicLogPublish, event.NextLogEntryEvent{
			Time:       entry.Time,
			Message:    entry.Message,
			Level:      entry.Level.String(),
			LoggerName: entry.LoggerName,
			Fields:     entry.Fields,
		})
	}
}
