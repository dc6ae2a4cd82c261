package dmx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestUniverseStoreGetUniverseOrCreate(t *testing.T) {
	store := NewUniverseStore(zap.New(zapcore.NewNopCore()))
	universe := store.GetUniverseOrCreate(5)
	require.NotNil(t, universe, "should create universe")
	assert.EqualValues(t, 5, universe.ID(), "should create universe with requested id")
	assert.Same(t, universe, store.GetUniverseOrCreate(5), "should return same instance for same id")
	assert.Equal(t, 1, store.UniverseCount(), "should not create duplicate universes")
}

func TestUniverseStoreUniverse(t *testing.T) {
	store := NewUniverseStore(zap.New(zapcore.NewNopCore()))
	assert.Nil(t, store.Universe(12), "should not know universe without creation")
	created := store.GetUniverseOrCreate(12)
	assert.Same(t, created, store.Universe(12), "should know universe after creation")
}

// TestUniverseCountPolledDuringCreation polls UniverseCount from a second
// goroutine while universes are created, matching how periodic stats logging
// reads the count while patchings are restored. Relies on the race detector.
func TestUniverseCountPolledDuringCreation(t *testing.T) {
	store := NewUniverseStore(zap.New(zapcore.NewNopCore()))
	stop := make(chan struct{})
	var poller sync.WaitGroup
	poller.Add(1)
	go func() {
		defer poller.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = store.UniverseCount()
			}
		}
	}()
	for i := 0; i < 64; i++ {
		store.GetUniverseOrCreate(uint(i))
	}
	close(stop)
	poller.Wait()
	assert.Equal(t, 64, store.UniverseCount(), "should count all created universes")
}

func TestUniverseAddPort(t *testing.T) {
	store := NewUniverseStore(zap.New(zapcore.NewNopCore()))
	universe := store.GetUniverseOrCreate(1)
	port := NewMockPort("port-a")
	universe.AddPort(port)
	assert.Same(t, universe, port.Universe(), "should point port at universe")
	assert.Equal(t, 1, universe.PortCount(), "should record membership")
}

func TestUniverseAddPortMovesPatchedPort(t *testing.T) {
	store := NewUniverseStore(zap.New(zapcore.NewNopCore()))
	first := store.GetUniverseOrCreate(1)
	second := store.GetUniverseOrCreate(2)
	port := NewMockPort("port-a")
	first.AddPort(port)
	second.AddPort(port)
	assert.Same(t, second, port.Universe(), "should point port at new universe")
	assert.Equal(t, 0, first.PortCount(), "should remove port from old universe")
	assert.Equal(t, 1, second.PortCount(), "should add port to new universe")
}

func TestUniverseRemovePort(t *testing.T) {
	universe := NewUniverse(3)
	port := NewMockPort("port-a")
	universe.AddPort(port)
	universe.RemovePort(port)
	assert.Nil(t, port.Universe(), "should unpatch port")
	assert.Equal(t, 0, universe.PortCount(), "should remove membership")
	// Removing again must be a no-op.
	universe.RemovePort(port)
	assert.Equal(t, 0, universe.PortCount(), "should ignore unknown port")
}
