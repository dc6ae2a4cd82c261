package statssvc

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/lumicore/lumid/service"
	"go.uber.org/zap"
)

type Config struct {
	// IsEnabled describes whether periodic stats logging is desired.
	IsEnabled bool
	// Interval in which to log stats.
	Interval time.Duration
}

// Registry provides the registry figures to include in stats logging. The
// methods are called from the service goroutine, implementations must be safe
// for concurrent reads.
type Registry interface {
	// DeviceCount is the number of active devices.
	DeviceCount() uint
	// UniverseCount is the number of known universes.
	UniverseCount() int
}

type statsService struct {
	logger   *zap.Logger
	config   Config
	registry Registry
}

// NewService creates a service that periodically logs runtime and registry
// stats according to the given Config.
func NewService(logger *zap.Logger, config Config, registry Registry) (service.Service, error) {
	return &statsService{
		logger:   logger,
		config:   config,
		registry: registry,
	}, nil
}

func (s *statsService) Run(ctx context.Context) error {
	if !s.config.IsEnabled {
		return nil
	}
	s.logger.Debug(fmt.Sprintf("logging system state every %gs", s.config.Interval.Seconds()))
	s.logStats(ctx)
	return nil
}

// logStats logs the current system and registry state like memory stats,
// goroutine count and active device count in the configured interval.
func (s *statsService) logStats(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.Interval):
			numGoroutine := runtime.NumGoroutine()
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			memoryUsageMB := memStats.Sys / 1000 / 1000
			fields := []zap.Field{
				zap.Int("num_cpu", runtime.NumCPU()),
				zap.Int("num_goroutines", numGoroutine),
				zap.Uint64("memory_in_use_mb", memoryUsageMB),
			}
			if s.registry != nil {
				fields = append(fields,
					zap.Uint("active_devices", s.registry.DeviceCount()),
					zap.Int("known_universes", s.registry.UniverseCount()))
			}
			s.logger.Debug("system stats", fields...)
		}
	}
}
