package statssvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunDisabled(t *testing.T) {
	s, err := NewService(zap.NewNop(), Config{IsEnabled: false}, nil)
	require.NoError(t, err, "creating service should not fail")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = s.Run(ctx)
	assert.NoError(t, err, "run should return immediately without error")
	assert.NoError(t, ctx.Err(), "run should not have waited for context done")
}

func TestRunStopsOnContextDone(t *testing.T) {
	s, err := NewService(zap.NewNop(), Config{
		IsEnabled: true,
		Interval:  time.Minute,
	}, nil)
	require.NoError(t, err, "creating service should not fail")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- s.Run(ctx)
	}()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "run should not fail")
	case <-time.After(5 * time.Second):
		t.Fatal("run should have returned after context done")
	}
}
