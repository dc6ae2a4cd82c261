// Package dmxreg is the device registry of the daemon. It assigns stable
// numeric aliases to devices by their unique id, tracks which devices are
// currently active and persists port-to-universe patchings across restarts
// and hot-plug cycles.
package dmxreg

import (
	"strconv"

	"github.com/lumicore/lumid/dmx"
	"github.com/lumicore/lumid/errors"
	"github.com/lumicore/lumid/prefs"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// MissingDeviceAlias is returned by DeviceByUniqueID for unknown or inactive
// devices. It is never assigned to a real device.
const MissingDeviceAlias uint = 0

// firstDeviceAlias is the alias assigned to the first registered device.
const firstDeviceAlias uint = 1

// DeviceAliasPair is a currently active device together with its alias.
type DeviceAliasPair struct {
	Alias  uint
	Device dmx.Device
}

// Notification describes a change of a device's active state. Forwarded to an
// optional channel on register and unregister.
type Notification struct {
	// Online is true when the device was registered and false when it was
	// unregistered.
	Online bool
	// Alias of the device.
	Alias uint
	// UniqueID of the device.
	UniqueID string
	// Name of the device for diagnostics.
	Name string
}

// aliasEntry is the registry record for one ever-seen device unique id. The
// alias never changes after creation and the entry is never deleted, which is
// what makes aliases stable across reconnects.
type aliasEntry struct {
	alias uint
	// device is the currently active device or nil if disconnected.
	device dmx.Device
}

// DeviceManager tracks what devices are in use. It does not own device or
// port objects, the providing plugin does. All mutating methods and lookups
// must be called from a single goroutine, the manager performs no locking
// itself. DeviceCount is the only exception, see its doc.
type DeviceManager struct {
	logger *zap.Logger
	// portPatchings persists port-to-universe patchings by port unique id.
	portPatchings prefs.Store
	// universes is used for fetch-or-create during patching restore.
	universes *dmx.UniverseStore
	// devices is the authoritative registry by device unique id.
	devices map[string]*aliasEntry
	// aliasIndex is the derived index of active devices by alias.
	aliasIndex map[uint]dmx.Device
	// nextDeviceAlias is incremented for every newly observed unique id.
	nextDeviceAlias uint
	// activeDevices mirrors the number of non-nil device slots so that
	// DeviceCount can be read from other goroutines.
	activeDevices *atomic.Uint32
	// notify receives a Notification on register and unregister if set. Sends
	// never block, notifications are dropped when the channel is full.
	notify chan<- Notification
}

// NewDeviceManager creates a DeviceManager that persists port patchings in
// the given prefs.Store. The store is loaded immediately. The notify channel
// is optional and may be nil.
func NewDeviceManager(logger *zap.Logger, portPatchings prefs.Store, universes *dmx.UniverseStore,
	notify chan<- Notification) (*DeviceManager, error) {
	if err := portPatchings.Load(); err != nil {
		return nil, errors.Wrap(err, "load port patchings", nil)
	}
	return &DeviceManager{
		logger:          logger,
		portPatchings:   portPatchings,
		universes:       universes,
		devices:         make(map[string]*aliasEntry),
		aliasIndex:      make(map[uint]dmx.Device),
		nextDeviceAlias: firstDeviceAlias,
		activeDevices:   atomic.NewUint32(0),
		notify:          notify,
	}, nil
}

// Close flushes the port patchings store. Call once when the daemon shuts
// down, after all devices were unregistered.
func (m *DeviceManager) Close() error {
	if err := m.portPatchings.Save(); err != nil {
		return errors.Wrap(err, "save port patchings", nil)
	}
	return nil
}

// RegisterDevice registers the given device. A device that was registered and
// unregistered before gets its previous alias back. Registration fails for
// nil devices, devices without a unique id and unique ids that are currently
// active. On success the persisted port patchings of the device are restored.
func (m *DeviceManager) RegisterDevice(device dmx.Device) bool {
	if device == nil {
		errors.Log(m.logger, errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "register device without device",
		})
		return false
	}
	deviceID := device.UniqueID()
	if deviceID == "" {
		errors.Log(m.logger, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindMissingUniqueID,
			Message: "device is missing unique id",
			Details: errors.Details{"device_name": device.Name()},
		})
		return false
	}
	var alias uint
	if entry, ok := m.devices[deviceID]; ok {
		if entry.device != nil {
			// Already registered.
			errors.Log(m.logger, errors.Error{
				Code:    errors.ErrBadRequest,
				Kind:    errors.KindDeviceAlreadyRegistered,
				Message: "device is already registered",
				Details: errors.Details{"device_id": deviceID},
			})
			return false
		}
		// Was previously registered, reuse alias.
		alias = entry.alias
		entry.device = device
	} else {
		alias = m.nextDeviceAlias
		m.nextDeviceAlias++
		m.devices[deviceID] = &aliasEntry{
			alias:  alias,
			device: device,
		}
	}
	m.aliasIndex[alias] = device
	m.activeDevices.Inc()
	m.logger.Info("installed device",
		zap.String("device_id", deviceID),
		zap.String("device_name", device.Name()),
		zap.Uint("alias", alias))
	m.restorePortPatchings(device)
	m.sendNotification(Notification{
		Online:   true,
		Alias:    alias,
		UniqueID: deviceID,
		Name:     device.Name(),
	})
	return true
}

// UnregisterDevice unregisters the device with the given unique id. The alias
// of the device stays reserved for its next registration. Fails for unknown
// or currently inactive unique ids. The current port patchings of the device
// are saved before removal.
func (m *DeviceManager) UnregisterDevice(deviceID string) bool {
	entry, ok := m.devices[deviceID]
	if !ok || entry.device == nil {
		errors.Log(m.logger, errors.Error{
			Code:    errors.ErrNotFound,
			Kind:    errors.KindDeviceNotFound,
			Message: "unregister unknown device",
			Details: errors.Details{"device_id": deviceID},
		})
		return false
	}
	name := entry.device.Name()
	m.savePortPatchings(entry.device)
	delete(m.aliasIndex, entry.alias)
	entry.device = nil
	m.activeDevices.Dec()
	m.logger.Info("removed device",
		zap.String("device_id", deviceID),
		zap.Uint("alias", entry.alias))
	m.sendNotification(Notification{
		Online:   false,
		Alias:    entry.alias,
		UniqueID: deviceID,
		Name:     name,
	})
	return true
}

// UnregisterDeviceByRef unregisters the given device. Fails for nil devices
// and devices without a unique id. Otherwise behaves like UnregisterDevice.
func (m *DeviceManager) UnregisterDeviceByRef(device dmx.Device) bool {
	if device == nil {
		errors.Log(m.logger, errors.Error{
			Code:    errors.ErrBadRequest,
			Message: "unregister device without device",
		})
		return false
	}
	deviceID := device.UniqueID()
	if deviceID == "" {
		errors.Log(m.logger, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindMissingUniqueID,
			Message: "unregister device without unique id",
			Details: errors.Details{"device_name": device.Name()},
		})
		return false
	}
	return m.UnregisterDevice(deviceID)
}

// DeviceCount returns the number of currently active devices. Unlike all
// other methods, DeviceCount may be called from any goroutine. It reads a
// counter that is kept in sync with registrations instead of touching the
// registry maps, which lets diagnostics poll it while the owning goroutine
// registers and unregisters devices.
func (m *DeviceManager) DeviceCount() uint {
	return uint(m.activeDevices.Load())
}

// Devices returns a snapshot of all currently active devices with their
// aliases. The order carries no meaning.
func (m *DeviceManager) Devices() []DeviceAliasPair {
	result := make([]DeviceAliasPair, 0, len(m.aliasIndex))
	for _, entry := range m.devices {
		if entry.device == nil {
			continue
		}
		result = append(result, DeviceAliasPair{
			Alias:  entry.alias,
			Device: entry.device,
		})
	}
	return result
}

// DeviceByAlias returns the active device with the given alias or nil if no
// active device holds it.
func (m *DeviceManager) DeviceByAlias(alias uint) dmx.Device {
	return m.aliasIndex[alias]
}

// DeviceByUniqueID returns the alias and device for the given unique id. For
// unknown or currently inactive unique ids, MissingDeviceAlias and nil are
// returned.
func (m *DeviceManager) DeviceByUniqueID(deviceID string) (uint, dmx.Device) {
	entry, ok := m.devices[deviceID]
	if !ok || entry.device == nil {
		return MissingDeviceAlias, nil
	}
	return entry.alias, entry.device
}

// UnregisterAllDevices unregisters all active devices, saving their port
// patchings. All alias reservations are kept.
func (m *DeviceManager) UnregisterAllDevices() {
	for deviceID, entry := range m.devices {
		if entry.device == nil {
			continue
		}
		name := entry.device.Name()
		m.savePortPatchings(entry.device)
		entry.device = nil
		m.sendNotification(Notification{
			Online:   false,
			Alias:    entry.alias,
			UniqueID: deviceID,
			Name:     name,
		})
	}
	m.aliasIndex = make(map[uint]dmx.Device)
	m.activeDevices.Store(0)
}

// savePortPatchings persists the current port-to-universe patchings for the
// given device. Unpatched ports have their persisted entries removed so that
// an unpatched state survives restarts as well. Best effort, never fails the
// caller.
func (m *DeviceManager) savePortPatchings(device dmx.Device) {
	for _, port := range device.Ports() {
		if port.UniqueID() == "" {
			continue
		}
		universe := port.Universe()
		if universe == nil {
			m.portPatchings.Remove(port.UniqueID())
			continue
		}
		m.portPatchings.Set(port.UniqueID(), strconv.FormatUint(uint64(universe.ID()), 10))
	}
}

// restorePortPatchings reapplies persisted patchings to the ports of the
// given device. Ports without a persisted entry stay unpatched. Malformed
// persisted values are skipped silently, corrupted preferences must never
// fail a registration.
func (m *DeviceManager) restorePortPatchings(device dmx.Device) {
	for _, port := range device.Ports() {
		if port.UniqueID() == "" {
			continue
		}
		raw := m.portPatchings.Get(port.UniqueID())
		if raw == "" {
			continue
		}
		universeID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			// A clean parse of "0" is a valid universe id 0, only actual parse
			// failures are skipped.
			errors.Log(m.logger, errors.Error{
				Code:    errors.ErrBadRequest,
				Kind:    errors.KindMalformedPatching,
				Err:     err,
				Message: "skipping malformed persisted patching",
				Details: errors.Details{
					"port_id": port.UniqueID(),
					"value":   raw,
				},
			})
			continue
		}
		universe := m.universes.GetUniverseOrCreate(uint(universeID))
		universe.AddPort(port)
	}
}

// sendNotification forwards the given Notification without blocking.
func (m *DeviceManager) sendNotification(notification Notification) {
	if m.notify == nil {
		return
	}
	select {
	case m.notify <- notification:
	default:
		m.logger.Debug("dropping registry notification, channel full",
			zap.String("device_id", notification.UniqueID))
	}
}
