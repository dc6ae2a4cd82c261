// Package registrysvc forwards device registry changes to the durable device
// inventory and announces them via the portal.
package registrysvc

import (
	"context"

	"github.com/lumicore/lumid/dmxreg"
	"github.com/lumicore/lumid/errors"
	"github.com/lumicore/lumid/event"
	"github.com/lumicore/lumid/portal"
	"github.com/lumicore/lumid/service"
	"github.com/lumicore/lumid/store"
	"go.uber.org/zap"
)

// Topics.
const (
	// topicDeviceOnline is where registered devices are announced.
	topicDeviceOnline portal.Topic = "lumicore/lumid/devices/online"
	// topicDeviceOffline is where unregistered devices are announced.
	topicDeviceOffline portal.Topic = "lumicore/lumid/devices/offline"
)

// Store are the dependencies needed for New.
type Store interface {
	// RecordDeviceOnline retrieves the store.Device with the given unique id. If
	// none was found, a new one is created. In any case, the last seen timestamp
	// is set to the current time and the name is updated when a non-empty one is
	// given.
	RecordDeviceOnline(ctx context.Context, uniqueID string, name string) (store.Device, bool, error)
	// UpdateDeviceLastSeen updates the last seen timestamp for the device with
	// the given unique id.
	UpdateDeviceLastSeen(ctx context.Context, uniqueID string) error
}

// registryService persists and announces device registry changes.
type registryService struct {
	logger *zap.Logger
	// portal to use for announcements. May be nil when the daemon runs without
	// an MQTT connection.
	portal portal.Portal
	// store with all persistence dependencies.
	store Store
	// daemonID identifies this daemon instance in announcements.
	daemonID string
	// notifications is where registry changes are read from.
	notifications <-chan dmxreg.Notification
}

// New creates a new service.Service ready to run. The portal may be nil in
// which case no announcements are published.
func New(logger *zap.Logger, portal portal.Portal, store Store, daemonID string,
	notifications <-chan dmxreg.Notification) service.Service {
	return &registryService{
		logger:        logger,
		portal:        portal,
		store:         store,
		daemonID:      daemonID,
		notifications: notifications,
	}
}

// Run the service until the given context.Context is done.
func (s *registryService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case notification, more := <-s.notifications:
			if !more {
				return nil
			}
			if notification.Online {
				s.handleDeviceOnline(ctx, notification)
			} else {
				s.handleDeviceOffline(ctx, notification)
			}
		}
	}
}

// handleDeviceOnline records the device sighting and announces it.
func (s *registryService) handleDeviceOnline(ctx context.Context, notification dmxreg.Notification) {
	_, created, err := s.store.RecordDeviceOnline(ctx, notification.UniqueID, notification.Name)
	if err != nil {
		errors.Log(s.logger, errors.Wrap(err, "record device online", errors.Details{
			"device_id": notification.UniqueID,
		}))
		return
	}
	if created {
		s.logger.Info("new device in inventory", zap.String("device_id", notification.UniqueID))
	}
	if s.portal == nil {
		return
	}
	s.portal.Publish(ctx, topicDeviceOnline, event.DeviceOnlineEvent{
		DaemonID: s.daemonID,
		DeviceID: notification.UniqueID,
		Alias:    notification.Alias,
		Name:     notification.Name,
	})
}

// handleDeviceOffline updates the last seen timestamp and announces the
// departure.
func (s *registryService) handleDeviceOffline(ctx context.Context, notification dmxreg.Notification) {
	err := s.store.UpdateDeviceLastSeen(ctx, notification.UniqueID)
	if err != nil {
		errors.Log(s.logger, errors.Wrap(err, "update device last seen", errors.Details{
			"device_id": notification.UniqueID,
		}))
		return
	}
	if s.portal == nil {
		return
	}
	s.portal.Publish(ctx, topicDeviceOffline, event.DeviceOfflineEvent{
		DaemonID: s.daemonID,
		DeviceID: notification.UniqueID,
		Alias:    notification.Alias,
	})
}
