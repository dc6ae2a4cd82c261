package dmx

import (
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Universe is a logical addressing domain that ports are patched to. Merge
// modes and frame handling are out of scope here, a Universe only tracks port
// membership.
type Universe struct {
	id uint
	// name is an optional human-readable name.
	name string
	// ports holds all member ports by their unique id.
	ports map[string]Port
}

// NewUniverse creates a Universe with the given id and a default name.
func NewUniverse(id uint) *Universe {
	return &Universe{
		id:    id,
		name:  fmt.Sprintf("Universe %d", id),
		ports: make(map[string]Port),
	}
}

// ID returns the universe id.
func (u *Universe) ID() uint {
	return u.id
}

// Name returns the human-readable name of the universe.
func (u *Universe) Name() string {
	return u.name
}

// SetName sets the human-readable name of the universe.
func (u *Universe) SetName(name string) {
	u.name = name
}

// AddPort patches the given Port to the universe. The universe records the
// membership and points the port at itself. Adding an already patched port
// moves it from its old universe.
func (u *Universe) AddPort(port Port) {
	if old := port.Universe(); old != nil && old != u {
		old.RemovePort(port)
	}
	u.ports[port.UniqueID()] = port
	port.SetUniverse(u)
}

// RemovePort unpatches the given Port from the universe. Unknown ports are
// ignored.
func (u *Universe) RemovePort(port Port) {
	if _, ok := u.ports[port.UniqueID()]; !ok {
		return
	}
	delete(u.ports, port.UniqueID())
	port.SetUniverse(nil)
}

// PortCount returns the number of ports currently patched to the universe.
func (u *Universe) PortCount() int {
	return len(u.ports)
}

// UniverseStore keeps all universes of the daemon. Universe creation is
// idempotent, the same instance is returned for a given id for the process
// lifetime.
type UniverseStore struct {
	logger *zap.Logger
	// universes holds all known universes by id.
	universes map[uint]*Universe
	// count mirrors len(universes) so that UniverseCount can be read from
	// other goroutines.
	count *atomic.Int64
}

// NewUniverseStore creates an empty UniverseStore.
func NewUniverseStore(logger *zap.Logger) *UniverseStore {
	return &UniverseStore{
		logger:    logger,
		universes: make(map[uint]*Universe),
		count:     atomic.NewInt64(0),
	}
}

// GetUniverseOrCreate returns the Universe with the given id. If the universe
// does not exist yet, it is created.
func (s *UniverseStore) GetUniverseOrCreate(id uint) *Universe {
	universe, ok := s.universes[id]
	if !ok {
		universe = NewUniverse(id)
		s.universes[id] = universe
		s.count.Inc()
		s.logger.Debug("created universe", zap.Uint("universe_id", id))
	}
	return universe
}

// Universe returns the Universe with the given id or nil if it does not exist.
func (s *UniverseStore) Universe(id uint) *Universe {
	return s.universes[id]
}

// Universes returns a snapshot of all known universes. The order carries no
// meaning.
func (s *UniverseStore) Universes() []*Universe {
	universes := make([]*Universe, 0, len(s.universes))
	for _, universe := range s.universes {
		universes = append(universes, universe)
	}
	return universes
}

// UniverseCount returns the number of known universes. Unlike all other
// methods, UniverseCount may be called from any goroutine. It reads a counter
// that is kept in sync with creations instead of the universe map, which lets
// diagnostics poll it while the owning goroutine restores patchings.
func (s *UniverseStore) UniverseCount() int {
	return int(s.count.Load())
}
