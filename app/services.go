package app

import (
	"context"
	"fmt"
	"time"

	"github.com/lumicore/lumid/dmx"
	"github.com/lumicore/lumid/dmxreg"
	"github.com/lumicore/lumid/errors"
	"github.com/lumicore/lumid/logging"
	"github.com/lumicore/lumid/logpublishsvc"
	"github.com/lumicore/lumid/portal"
	"github.com/lumicore/lumid/registrysvc"
	"github.com/lumicore/lumid/service"
	"github.com/lumicore/lumid/statssvc"
	"github.com/lumicore/lumid/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type services map[string]service.Service

// registryStats adapts dmxreg and dmx figures for statssvc.Registry. Both
// counts are backed by counters that are safe to read while the boot
// goroutine mutates the registry.
type registryStats struct {
	deviceManager *dmxreg.DeviceManager
	universes     *dmx.UniverseStore
}

func (r registryStats) DeviceCount() uint {
	return r.deviceManager.DeviceCount()
}

func (r registryStats) UniverseCount() int {
	return r.universes.UniverseCount()
}

func createServices(appConfig Config, logger *zap.Logger, portalBase portal.Base, mall *store.Mall,
	stats registryStats, notifications <-chan dmxreg.Notification,
	logEntriesIn <-chan logging.LogEntry) (services, error) {
	services := make(services)
	// System stats service.
	s, err := statssvc.NewService(logger.Named("stats"), statssvc.Config{
		IsEnabled: appConfig.Log.SystemStatsInterval.Valid && appConfig.Log.SystemStatsInterval.Int > 0,
		Interval:  time.Duration(appConfig.Log.SystemStatsInterval.Int) * time.Minute,
	}, stats)
	if err != nil {
		return nil, errors.Wrap(err, "new stats service", nil)
	}
	services["stats"] = s
	// Registry service. Works without a portal when no MQTT broker is
	// configured.
	var registryPortal portal.Portal
	if portalBase != nil {
		registryPortal = portalBase.NewPortal("registry-service")
	}
	services["registry"] = registrysvc.New(logger.Named("registry"), registryPortal, mall,
		appConfig.DaemonID, notifications)
	// Log publishing service, only with a portal.
	if portalBase != nil {
		services["log-publish"] = logpublishsvc.New(logger.Named("log-publish"),
			portalBase.NewPortal("log-publish"), logEntriesIn)
	}
	return services, nil
}

func (s services) run(ctx context.Context, logger *zap.Logger) error {
	wg, lifetime := errgroup.WithContext(ctx)
	// Run each.
	for name, serviceToRun := range s {
		// Copy values.
		name, serviceToRun := name, serviceToRun
		wg.Go(func() error {
			logger.Debug(fmt.Sprintf("service %s up", name))
			defer logger.Debug(fmt.Sprintf("service %s down", name))
			if err := serviceToRun.Run(lifetime); err != nil {
				return errors.Wrap(err, "run service", errors.Details{"service_name": name})
			}
			return nil
		})
	}
	return wg.Wait()
}
