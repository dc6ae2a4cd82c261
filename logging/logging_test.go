package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeout = 3 * time.Second

func TestPublishCoreForwardsEntries(t *testing.T) {
	lifetime, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	core, entries := NewPublishOmitCore(lifetime)
	logger := zap.New(core).Named("registry")
	logger.Info("device installed", zap.String("device_id", "dev-a"), zap.Uint("alias", 1))
	select {
	case <-lifetime.Done():
		t.Fatal("timeout while waiting for forwarded entry")
	case entry := <-entries:
		assert.Equal(t, "device installed", entry.Message, "should forward correct message")
		assert.Equal(t, "registry", entry.LoggerName, "should forward correct logger name")
		assert.Equal(t, zapcore.InfoLevel, entry.Level, "should forward correct level")
		assert.Equal(t, "dev-a", entry.Fields["device_id"], "should forward fields")
	}
}

func TestPublishCoreKeepsWithFields(t *testing.T) {
	lifetime, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	core, entries := NewPublishOmitCore(lifetime)
	logger := zap.New(core).With(zap.String("topic", "registry"))
	logger.Warn("device gone")
	select {
	case <-lifetime.Done():
		t.Fatal("timeout while waiting for forwarded entry")
	case entry := <-entries:
		assert.Equal(t, "registry", entry.Fields["topic"], "should keep fields added via With")
	}
}

func TestPublishCoreOmitsPublisher(t *testing.T) {
	lifetime, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	core, entries := NewPublishOmitCore(lifetime)
	zap.New(core).Named("log-publish").Info("i should not appear")
	zap.New(core).Named("registry").Info("i should appear")
	select {
	case <-lifetime.Done():
		t.Fatal("timeout while waiting for forwarded entry")
	case entry := <-entries:
		require.Equal(t, "i should appear", entry.Message, "should have omitted the publisher entry")
	}
}
