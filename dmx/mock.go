package dmx

// MockPort implements Port for tests.
type MockPort struct {
	// PortID is returned by UniqueID.
	PortID string
	// universe is the currently patched universe.
	universe *Universe
}

// NewMockPort creates a MockPort with the given unique id.
func NewMockPort(portID string) *MockPort {
	return &MockPort{PortID: portID}
}

func (p *MockPort) UniqueID() string {
	return p.PortID
}

func (p *MockPort) Universe() *Universe {
	return p.universe
}

func (p *MockPort) SetUniverse(universe *Universe) {
	p.universe = universe
}

// MockDevice implements Device for tests.
type MockDevice struct {
	// DeviceID is returned by UniqueID.
	DeviceID string
	// DeviceName is returned by Name.
	DeviceName string
	// DevicePorts are returned by Ports.
	DevicePorts []Port
}

// NewMockDevice creates a MockDevice with the given unique id, name and ports.
func NewMockDevice(deviceID string, name string, ports ...Port) *MockDevice {
	return &MockDevice{
		DeviceID:    deviceID,
		DeviceName:  name,
		DevicePorts: ports,
	}
}

func (d *MockDevice) UniqueID() string {
	return d.DeviceID
}

func (d *MockDevice) Name() string {
	return d.DeviceName
}

func (d *MockDevice) Ports() []Port {
	return d.DevicePorts
}
