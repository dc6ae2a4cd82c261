// Package dmx holds the device, port and universe model that plugins provide
// devices for and that the registry keeps track of.
package dmx

// Device is a DMX output device provided by a plugin. The plugin owns the
// device object, the registry only holds references.
type Device interface {
	// UniqueID returns the identity of the device that is stable across daemon
	// restarts and reconnects, for example a hardware serial number. Devices
	// without a unique id cannot be registered.
	UniqueID() string
	// Name returns a human-readable device name for diagnostics.
	Name() string
	// Ports returns the output ports of the device in their natural order.
	Ports() []Port
}

// Port is a single output port of a Device. A port is patched to at most one
// Universe at a time.
type Port interface {
	// UniqueID returns the identity of the port which is used as the key for
	// persisted patchings. Ports with an empty unique id are skipped during
	// save and restore.
	UniqueID() string
	// Universe returns the universe the port is currently patched to or nil if
	// the port is unpatched.
	Universe() *Universe
	// SetUniverse points the port at the given universe. This is invoked by
	// Universe.AddPort and should not be called directly.
	SetUniverse(universe *Universe)
}
