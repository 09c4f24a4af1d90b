package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"datasync/internal/structures"
	"github.com/spf13/viper"
)

const AppName = "DataSync"

var envBindings = map[string]string{
	"api.baseUrl":       "DATASYNC_API_URL",
	"api.pageSize":      "DATASYNC_PAGE_SIZE",
	"api.timeout":       "DATASYNC_API_TIMEOUT",
	"storage.dir":       "DATASYNC_STORAGE_DIR",
	"storage.format":    "DATASYNC_STORAGE_FORMAT",
	"storage.compress":  "DATASYNC_STORAGE_COMPRESS",
	"logger.level":      "DATASYNC_LOG_LEVEL",
	"logger.dir":        "DATASYNC_LOG_DIR",
	"schedule.interval": "DATASYNC_SCHEDULE_INTERVAL",
	"webServer.port":    "DATASYNC_PORT",
	"metrics.enabled":   "DATASYNC_METRICS_ENABLED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.baseUrl", "http://127.0.0.1:8000")
	v.SetDefault("api.pageSize", 100)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.userAgent", "datasync/1.0")
	v.SetDefault("api.maxBodyBytes", 32<<20)

	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.format", "csv")
	v.SetDefault("storage.compress", false)
	v.SetDefault("storage.compressionLevel", "better")
	v.SetDefault("storage.lock", false)
	v.SetDefault("storage.lockTTL", 10*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("logger.dir", "logs")

	v.SetDefault("schedule.interval", time.Hour)
	v.SetDefault("schedule.runOnStart", true)

	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 8090)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 16)
	v.SetDefault("metrics.enabled", true)
}

// NewConfigProvider builds the configuration from defaults, the optional YAML
// file given on the command line and DATASYNC_* environment variables, in
// increasing order of precedence.
func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("unable to bind %s: %w", env, err)
		}
	}

	if flags.ConfigPath != "" {
		filename := filepath.Base(flags.ConfigPath)
		v.AddConfigPath(filepath.Dir(flags.ConfigPath))
		v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	err := v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
