package event

// DeviceOnlineEvent is published when a device was registered with the
// registry.
type DeviceOnlineEvent struct {
	// DaemonID identifies the daemon instance that registered the device.
	DaemonID string `json:"daemon_id"`
	// DeviceID is the unique id of the device.
	DeviceID string `json:"device_id"`
	// Alias is the numeric alias the registry assigned to the device.
	Alias uint `json:"alias"`
	// Name is the human-readable device name.
	Name string `json:"name"`
}

// DeviceOfflineEvent is published when a device was unregistered from the
// registry.
type DeviceOfflineEvent struct {
	// DaemonID identifies the daemon instance that unregistered the device.
	DaemonID string `json:"daemon_id"`
	// DeviceID is the unique id of the device.
	DeviceID string `json:"device_id"`
	// Alias is the alias the device held. It stays reserved for the device.
	Alias uint `json:"alias"`
}
