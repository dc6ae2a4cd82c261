package registrysvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lumicore/lumid/dmxreg"
	"github.com/lumicore/lumid/event"
	"github.com/lumicore/lumid/portal"
	"github.com/lumicore/lumid/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const timeout = 5 * time.Second

// storeStub mocks Store.
type storeStub struct {
	mock.Mock
}

func (s *storeStub) RecordDeviceOnline(ctx context.Context, uniqueID string, name string) (store.Device, bool, error) {
	args := s.Called(ctx, uniqueID, name)
	return args.Get(0).(store.Device), args.Bool(1), args.Error(2)
}

func (s *storeStub) UpdateDeviceLastSeen(ctx context.Context, uniqueID string) error {
	return s.Called(ctx, uniqueID).Error(0)
}

// registryServiceSuite tests registryService.
type registryServiceSuite struct {
	suite.Suite
	portal        *portal.Stub
	store         *storeStub
	notifications chan dmxreg.Notification
	service       *registryService
}

func (suite *registryServiceSuite) SetupTest() {
	suite.portal = &portal.Stub{}
	suite.store = &storeStub{}
	suite.notifications = make(chan dmxreg.Notification)
	suite.service = New(zap.NewNop(), suite.portal, suite.store, "daemon-1",
		suite.notifications).(*registryService)
}

// run the service in the background and return a func that stops it and waits
// until it has returned.
func (suite *registryServiceSuite) run(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := suite.service.Run(ctx)
		suite.NoError(err, "run should not fail")
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (suite *registryServiceSuite) TestDeviceOnline() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	suite.store.On("RecordDeviceOnline", mock.Anything, "dev-a", "Dev A").
		Return(store.Device{UniqueID: "dev-a"}, true, nil).Once()
	defer suite.store.AssertExpectations(suite.T())
	suite.portal.On("Publish", mock.Anything, topicDeviceOnline, event.DeviceOnlineEvent{
		DaemonID: "daemon-1",
		DeviceID: "dev-a",
		Alias:    1,
		Name:     "Dev A",
	}).Once()
	defer suite.portal.AssertExpectations(suite.T())
	stop := suite.run(ctx)

	suite.notifications <- dmxreg.Notification{
		Online:   true,
		Alias:    1,
		UniqueID: "dev-a",
		Name:     "Dev A",
	}

	stop()
}

func (suite *registryServiceSuite) TestDeviceOnlineStoreFail() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	suite.store.On("RecordDeviceOnline", mock.Anything, mock.Anything, mock.Anything).
		Return(store.Device{}, false, errors.New("sad life")).Once()
	defer suite.store.AssertExpectations(suite.T())
	defer suite.portal.AssertNotCalled(suite.T(), "Publish", mock.Anything, mock.Anything, mock.Anything)
	stop := suite.run(ctx)

	suite.notifications <- dmxreg.Notification{
		Online:   true,
		Alias:    1,
		UniqueID: "dev-a",
	}

	stop()
}

func (suite *registryServiceSuite) TestDeviceOffline() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	suite.store.On("UpdateDeviceLastSeen", mock.Anything, "dev-a").
		Return(nil).Once()
	defer suite.store.AssertExpectations(suite.T())
	suite.portal.On("Publish", mock.Anything, topicDeviceOffline, event.DeviceOfflineEvent{
		DaemonID: "daemon-1",
		DeviceID: "dev-a",
		Alias:    1,
	}).Once()
	defer suite.portal.AssertExpectations(suite.T())
	stop := suite.run(ctx)

	suite.notifications <- dmxreg.Notification{
		Online:   false,
		Alias:    1,
		UniqueID: "dev-a",
	}

	stop()
}

func (suite *registryServiceSuite) TestDeviceOfflineStoreFail() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	suite.store.On("UpdateDeviceLastSeen", mock.Anything, mock.Anything).
		Return(errors.New("sad life")).Once()
	defer suite.store.AssertExpectations(suite.T())
	defer suite.portal.AssertNotCalled(suite.T(), "Publish", mock.Anything, mock.Anything, mock.Anything)
	stop := suite.run(ctx)

	suite.notifications <- dmxreg.Notification{
		Online:   false,
		Alias:    1,
		UniqueID: "dev-a",
	}

	stop()
}

func (suite *registryServiceSuite) TestNoPortal() {
	suite.service.portal = nil
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	suite.store.On("RecordDeviceOnline", mock.Anything, "dev-a", "").
		Return(store.Device{UniqueID: "dev-a"}, false, nil).Once()
	defer suite.store.AssertExpectations(suite.T())
	stop := suite.run(ctx)

	suite.notifications <- dmxreg.Notification{
		Online:   true,
		Alias:    1,
		UniqueID: "dev-a",
	}

	stop()
}

func (suite *registryServiceSuite) TestNotificationsClosed() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := suite.service.Run(ctx)
		suite.NoError(err, "run should not fail")
	}()

	close(suite.notifications)
	wg.Wait()
}

func Test_registryService(t *testing.T) {
	suite.Run(t, new(registryServiceSuite))
}
