package portal

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// Stub mocks Portal for tests of services that publish or subscribe.
type Stub struct {
	mock.Mock
	// logger is returned by Logger. Defaults to a nop logger when unset.
	logger *zap.Logger
}

// Subscribe to the given Topic. Calls mock.Mock.
func (s *Stub) Subscribe(ctx context.Context, topic Topic) *Newsletter[any] {
	return s.Called(ctx, topic).Get(0).(*Newsletter[any])
}

// Publish the given serializable payload to a topic. Calls mock.Mock.
func (s *Stub) Publish(ctx context.Context, topic Topic, payload interface{}) {
	s.Called(ctx, topic, payload)
}

// Logger returns the logger set for the Stub or a nop logger when none is
// set.
func (s *Stub) Logger() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}
