package app

import (
	"encoding/json"
	"os"

	"github.com/gobuffalo/nulls"
	"github.com/lumicore/lumid/errors"
	"go.uber.org/zap/zapcore"
)

// Config is the configuration needed in order to boot an App.
type Config struct {
	// DaemonID identifies this daemon instance in published events. Defaults to
	// the hostname when empty.
	DaemonID string `json:"daemon_id"`
	// DBConn is the connection string for the PostgreSQL database.
	DBConn string `json:"db_conn"`
	// MQTTAddr is the address of the MQTT broker to publish events to. The
	// daemon runs without a broker when not set.
	MQTTAddr nulls.String `json:"mqtt_addr"`
	// PortPrefsPath is the path of the file port patchings are persisted in.
	PortPrefsPath string `json:"port_prefs_path"`
	// DummyPortCount enables the dummy plugin with the given port count when
	// set.
	DummyPortCount nulls.Int `json:"dummy_port_count"`
	// Log is the logging configuration.
	Log LogConfig `json:"log"`
}

// LogConfig is the logging configuration used in Config.
type LogConfig struct {
	// StdoutLogLevel is the minimum level for entries logged to stdout.
	StdoutLogLevel zapcore.Level `json:"stdout_log_level"`
	// HighPriorityOutput is an optional file to log warnings and errors to.
	HighPriorityOutput nulls.String `json:"high_priority_output"`
	// DebugOutput is an optional file to log everything to.
	DebugOutput nulls.String `json:"debug_output"`
	// MaxSize is the maximum size in megabytes of a log file before it gets
	// rotated.
	MaxSize int `json:"max_size"`
	// KeepDays is the maximum number of days to retain old log files.
	KeepDays int `json:"keep_days"`
	// SystemStatsInterval is the interval in minutes in which system stats are
	// logged. Disabled when not set.
	SystemStatsInterval nulls.Int `json:"system_stats_interval"`
}

// LoadConfig reads and parses the Config from the file at the given path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config file", errors.Details{"path": path})
	}
	var config Config
	err = json.Unmarshal(raw, &config)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "parse config file",
			Details: errors.Details{"path": path},
		}
	}
	return config, nil
}

// ValidateConfig assures that all required fields in the given Config are set.
func ValidateConfig(config Config) error {
	if config.DBConn == "" {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindInvalidConfig,
			Message: "missing db connection string",
		}
	}
	if config.PortPrefsPath == "" {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindInvalidConfig,
			Message: "missing port prefs path",
		}
	}
	return nil
}
