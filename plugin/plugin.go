// Package plugin defines how device providers hook into the daemon.
package plugin

import (
	"context"

	"github.com/lumicore/lumid/dmx"
)

// Plugin is a device provider. The daemon starts all configured plugins during
// boot and registers the devices they return.
type Plugin interface {
	// Name returns the plugin name for diagnostics.
	Name() string
	// Start initializes the plugin and returns the devices it provides. The
	// plugin keeps ownership of the returned devices until Stop is called.
	Start(ctx context.Context) ([]dmx.Device, error)
	// Stop shuts the plugin down. Devices returned by Start must not be used
	// afterwards.
	Stop() error
}
