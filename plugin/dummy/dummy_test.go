package dummy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStart(t *testing.T) {
	p := New(zap.NewNop(), Config{PortCount: 4})
	devices, err := p.Start(context.Background())
	require.NoError(t, err, "start should not fail")
	require.Len(t, devices, 1, "should provide a single device")
	device := devices[0]
	assert.NotEmpty(t, device.UniqueID(), "device should have a unique id")
	assert.Len(t, device.Ports(), 4, "device should have the configured port count")
	for _, port := range device.Ports() {
		assert.NotEmpty(t, port.UniqueID(), "port should have a unique id")
		assert.Nil(t, port.Universe(), "port should start unpatched")
	}
	assert.NoError(t, p.Stop(), "stop should not fail")
}

func TestStartDefaultPortCount(t *testing.T) {
	p := New(zap.NewNop(), Config{})
	devices, err := p.Start(context.Background())
	require.NoError(t, err, "start should not fail")
	require.Len(t, devices, 1, "should provide a single device")
	assert.Len(t, devices[0].Ports(), defaultPortCount, "device should have the default port count")
}

func TestStartTwice(t *testing.T) {
	p := New(zap.NewNop(), Config{})
	_, err := p.Start(context.Background())
	require.NoError(t, err, "first start should not fail")
	_, err = p.Start(context.Background())
	assert.Error(t, err, "second start should fail")
}

func TestRestartAfterStop(t *testing.T) {
	p := New(zap.NewNop(), Config{})
	_, err := p.Start(context.Background())
	require.NoError(t, err, "first start should not fail")
	require.NoError(t, p.Stop(), "stop should not fail")
	_, err = p.Start(context.Background())
	assert.NoError(t, err, "start after stop should not fail")
}
