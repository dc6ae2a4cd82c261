// Package app wires all daemon components together and runs them.
package app

import (
	"context"
	"os"

	"github.com/lumicore/lumid/dmx"
	"github.com/lumicore/lumid/dmxreg"
	"github.com/lumicore/lumid/errors"
	"github.com/lumicore/lumid/logging"
	"github.com/lumicore/lumid/plugin"
	"github.com/lumicore/lumid/plugin/dummy"
	"github.com/lumicore/lumid/portal"
	"github.com/lumicore/lumid/prefs"
	"github.com/lumicore/lumid/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// notificationBufferSize is the buffer of the registry notification channel.
// Notifications are dropped when the registry service cannot keep up.
const notificationBufferSize = 16

// App is a complete lumid daemon instance.
type App struct {
	logger *zap.Logger
	// config is the main config used for the App.
	config Config
	// mall provides persistence.
	mall *store.Mall
	// universes holds all known universes.
	universes *dmx.UniverseStore
	// deviceManager keeps track of devices and their aliases.
	deviceManager *dmxreg.DeviceManager
	// plugins are the device providers started during boot.
	plugins []plugin.Plugin
	// publishLog is where log entries for the log publish service are read
	// from.
	publishLog <-chan logging.LogEntry
}

func NewApp(config Config) *App {
	return &App{
		config: config,
	}
}

// Boot sets everything up based on the set config and runs until the given
// context.Context is done.
func (app *App) Boot(ctx context.Context) error {
	// Validate config.
	err := ValidateConfig(app.config)
	if err != nil {
		return errors.Error{
			Code:    errors.ErrFatal,
			Err:     err,
			Message: "invalid config",
		}
	}
	// Setup logger.
	logger, publishLog := app.setupLogging(ctx, app.config.Log)
	app.logger = logger
	app.publishLog = publishLog
	defer func() {
		_ = logger.Sync()
	}()
	// Boot.
	err = app.boot(ctx)
	if err != nil {
		err = errors.Wrap(err, "boot", nil)
		errors.Log(logger, err)
		return err
	}
	return nil
}

func (app *App) boot(ctx context.Context) error {
	app.logger.Warn("booting up")
	if app.config.DaemonID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return errors.NewInternalErrorFromErr(err, "hostname for daemon id", nil)
		}
		app.config.DaemonID = hostname
	}
	// Connect database.
	app.logger.Debug("connecting to database")
	db, err := connectDB(app.logger.Named("db"), app.config.DBConn, defaultMaxDBConnections)
	if err != nil {
		return errors.Wrap(err, "connect database", nil)
	}
	defer func() {
		_ = db.Close()
	}()
	app.mall = store.NewMall(app.logger.Named("store"), db)
	app.logger.Debug("database ready")
	// Create registry.
	app.universes = dmx.NewUniverseStore(app.logger.Named("universes"))
	notifications := make(chan dmxreg.Notification, notificationBufferSize)
	portPatchings := prefs.NewFileStore(app.logger.Named("prefs"), app.config.PortPrefsPath)
	app.deviceManager, err = dmxreg.NewDeviceManager(app.logger.Named("registry"), portPatchings,
		app.universes, notifications)
	if err != nil {
		return errors.Wrap(err, "new device manager", nil)
	}
	// Create plugins.
	if app.config.DummyPortCount.Valid {
		app.plugins = append(app.plugins, dummy.New(app.logger.Named("dummy"), dummy.Config{
			PortCount: app.config.DummyPortCount.Int,
		}))
	}
	// Create portal base if an MQTT address is provided.
	var portalBase portal.Base
	if app.config.MQTTAddr.Valid {
		portalBase, err = portal.NewBase(app.logger.Named("portal"), portal.Config{
			MQTTAddr: app.config.MQTTAddr.String,
		})
		if err != nil {
			return errors.Wrap(err, "new portal base", nil)
		}
	}
	app.logger.Debug("setup completed. booting...")
	wg, lifetime := errgroup.WithContext(ctx)
	if portalBase != nil {
		wg.Go(func() error {
			if err := portalBase.Open(lifetime); err != nil {
				return errors.Wrap(err, "open portal base", nil)
			}
			return nil
		})
	}
	// Run services.
	servicesToRun, err := createServices(app.config, app.logger, portalBase, app.mall, registryStats{
		deviceManager: app.deviceManager,
		universes:     app.universes,
	}, notifications, app.publishLog)
	if err != nil {
		return errors.Wrap(err, "create services", nil)
	}
	wg.Go(func() error {
		return servicesToRun.run(lifetime, app.logger.Named("services"))
	})
	// Start plugins and register their devices.
	err = app.startPlugins(lifetime)
	if err != nil {
		return errors.Wrap(err, "start plugins", nil)
	}
	app.logger.Warn("boot completed")
	// Wait for exit.
	<-lifetime.Done()
	app.logger.Warn("shutting down")
	app.shutdown()
	return wg.Wait()
}

// startPlugins starts all configured plugins and registers the devices they
// provide.
func (app *App) startPlugins(ctx context.Context) error {
	for _, p := range app.plugins {
		devices, err := p.Start(ctx)
		if err != nil {
			return errors.Wrap(err, "start plugin", errors.Details{"plugin_name": p.Name()})
		}
		for _, device := range devices {
			if !app.deviceManager.RegisterDevice(device) {
				app.logger.Warn("plugin device not registered",
					zap.String("plugin_name", p.Name()),
					zap.String("device_id", device.UniqueID()))
			}
		}
	}
	return nil
}

// shutdown unregisters all devices, stops all plugins and flushes the port
// patchings.
func (app *App) shutdown() {
	app.deviceManager.UnregisterAllDevices()
	for _, p := range app.plugins {
		err := p.Stop()
		if err != nil {
			errors.Log(app.logger, errors.Wrap(err, "stop plugin", errors.Details{"plugin_name": p.Name()}))
		}
	}
	err := app.deviceManager.Close()
	if err != nil {
		errors.Log(app.logger, errors.Wrap(err, "close device manager", nil))
	}
}

// setupLogging builds the logger according to the given LogConfig. The
// returned channel emits entries for the log publish service.
func (app *App) setupLogging(ctx context.Context, config LogConfig) (*zap.Logger, <-chan logging.LogEntry) {
	encConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	cores := make([]zapcore.Core, 0)
	// Setup stdout logger with colorful level output.
	stdOutEncConfig := encConfig
	stdOutEncConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(stdOutEncConfig),
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= config.StdoutLogLevel
		})))
	// Setup error logger.
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(encConfig),
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.ErrorLevel
		})))
	// Setup high priority logger.
	if config.HighPriorityOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.HighPriorityOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.WarnLevel
			})))
	}
	// Setup debug logger.
	if config.DebugOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.DebugOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.DebugLevel
			})))
	}
	// Setup publish logger.
	publishCore, publishLog := logging.NewPublishOmitCore(ctx)
	cores = append(cores, publishCore)
	// Combine.
	logger := zap.New(zapcore.NewTee(cores...))
	return logger, publishLog
}
