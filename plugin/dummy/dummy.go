// Package dummy provides a software-only device plugin. It is mainly useful
// for trying out the daemon without any hardware attached.
package dummy

import (
	"context"
	"fmt"

	"github.com/lumicore/lumid/dmx"
	"github.com/lumicore/lumid/errors"
	"github.com/lumicore/lumid/plugin"
	"go.uber.org/zap"
)

// defaultPortCount is used when Config.PortCount is not set.
const defaultPortCount = 1

// Config controls the devices the dummy plugin provides.
type Config struct {
	// PortCount is the number of ports of the dummy device. Defaults to
	// defaultPortCount when zero.
	PortCount int
}

// dummyPlugin provides a single software device.
type dummyPlugin struct {
	logger *zap.Logger
	config Config
	device *dummyDevice
}

// New creates a dummy plugin with the given Config.
func New(logger *zap.Logger, config Config) plugin.Plugin {
	return &dummyPlugin{
		logger: logger,
		config: config,
	}
}

func (p *dummyPlugin) Name() string {
	return "dummy"
}

func (p *dummyPlugin) Start(_ context.Context) ([]dmx.Device, error) {
	if p.device != nil {
		return nil, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindShouldNotHappen,
			Message: "dummy plugin already started",
		}
	}
	portCount := p.config.PortCount
	if portCount <= 0 {
		portCount = defaultPortCount
	}
	ports := make([]dmx.Port, 0, portCount)
	for i := 0; i < portCount; i++ {
		ports = append(ports, &dummyPort{id: fmt.Sprintf("dummy-port-%d", i)})
	}
	p.device = &dummyDevice{ports: ports}
	p.logger.Debug("dummy device ready", zap.Int("port_count", portCount))
	return []dmx.Device{p.device}, nil
}

func (p *dummyPlugin) Stop() error {
	p.device = nil
	return nil
}

// dummyDevice is the software device the plugin provides.
type dummyDevice struct {
	ports []dmx.Port
}

func (d *dummyDevice) UniqueID() string {
	return "dummy-device"
}

func (d *dummyDevice) Name() string {
	return "Dummy Device"
}

func (d *dummyDevice) Ports() []dmx.Port {
	return d.ports
}

// dummyPort discards all output.
type dummyPort struct {
	id       string
	universe *dmx.Universe
}

func (p *dummyPort) UniqueID() string {
	return p.id
}

func (p *dummyPort) Universe() *dmx.Universe {
	return p.universe
}

func (p *dummyPort) SetUniverse(universe *dmx.Universe) {
	p.universe = universe
}
