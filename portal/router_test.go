package portal

import (
	"context"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/lumicore/lumid/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeout = 3 * time.Second

// mqttRouterStub mocks mqttRouter.
type mqttRouterStub struct {
	mock.Mock
}

func (s *mqttRouterStub) RegisterHandler(topic string, handler paho.MessageHandler) {
	s.Called(topic, handler)
}

func (s *mqttRouterStub) UnregisterHandler(topic string) {
	s.Called(topic)
}

func TestNewRouter(t *testing.T) {
	router := newRouter(zap.New(zapcore.NewNopCore()), &mqttRouterStub{})
	assert.NotNil(t, router.subscribersByTopic, "should have initialized subscriber lists")
}

func TestRouterSubscribeRegistersHandlerOnce(t *testing.T) {
	lifetime, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	stub := &mqttRouterStub{}
	stub.On("RegisterHandler", "lumicore/lumid/test", mock.Anything).Once()
	stub.On("UnregisterHandler", "lumicore/lumid/test").Maybe()
	defer stub.AssertExpectations(t)
	router := newRouter(zap.New(zapcore.NewNopCore()), stub)
	router.subscribe(lifetime, "lumicore/lumid/test", make(chan event.Event[any]))
	// A second subscription for the same topic must reuse the handler.
	router.subscribe(lifetime, "lumicore/lumid/test", make(chan event.Event[any]))
}

func TestRouterForwardsPublish(t *testing.T) {
	lifetime, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	stub := &mqttRouterStub{}
	var handler paho.MessageHandler
	stub.On("RegisterHandler", "lumicore/lumid/test", mock.Anything).
		Run(func(args mock.Arguments) {
			handler = args.Get(1).(paho.MessageHandler)
		}).Once()
	stub.On("UnregisterHandler", mock.Anything).Maybe()
	router := newRouter(zap.New(zapcore.NewNopCore()), stub)
	forward := make(chan event.Event[any])
	router.subscribe(lifetime, "lumicore/lumid/test", forward)
	require.NotNil(t, handler, "should have registered a handler")
	publish := &paho.Publish{
		Topic:   "lumicore/lumid/test",
		Payload: []byte(`{"hello":"world"}`),
	}
	go handler(publish)
	select {
	case <-lifetime.Done():
		t.Fatal("timeout while waiting for forwarded publish")
	case e := <-forward:
		assert.Equal(t, publish, e.Publish, "should forward the publish")
	}
}

func TestRouterUnsubscribesWhenLifetimeDone(t *testing.T) {
	testTimeout, cancelTest := context.WithTimeout(context.Background(), timeout)
	defer cancelTest()
	subLifetime, cancelSub := context.WithCancel(testTimeout)
	stub := &mqttRouterStub{}
	stub.On("RegisterHandler", "lumicore/lumid/test", mock.Anything).Once()
	unregistered := make(chan struct{})
	stub.On("UnregisterHandler", "lumicore/lumid/test").
		Run(func(_ mock.Arguments) { close(unregistered) }).Once()
	defer stub.AssertExpectations(t)
	router := newRouter(zap.New(zapcore.NewNopCore()), stub)
	router.subscribe(subLifetime, "lumicore/lumid/test", make(chan event.Event[any]))
	cancelSub()
	select {
	case <-testTimeout.Done():
		t.Fatal("timeout while waiting for unregistering the handler")
	case <-unregistered:
	}
}
