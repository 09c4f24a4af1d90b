package structures

import "time"

type Server struct {
	Host string `yaml:"host" mapstructure:"host" validate:"required"`
	Port int    `yaml:"port" mapstructure:"port" validate:"required|uint|min:1"`
}

type ApiConfig struct {
	BaseUrl      string        `yaml:"baseUrl" mapstructure:"baseUrl" validate:"required|fullUrl"`
	PageSize     int           `yaml:"pageSize" mapstructure:"pageSize" validate:"required|uint|min:1"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"required|min:1"`
	UserAgent    string        `yaml:"userAgent" mapstructure:"userAgent"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes" mapstructure:"maxBodyBytes"`
}

type StorageConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir" validate:"required"`
	Format   string `yaml:"format" mapstructure:"format" validate:"required|in:csv,json"`
	Compress bool   `yaml:"compress" mapstructure:"compress"`
	// CompressionLevel is the zstd level for .json.zst snapshots.
	CompressionLevel string        `yaml:"compressionLevel" mapstructure:"compressionLevel" validate:"in:fastest,default,better,best"`
	Lock             bool          `yaml:"lock" mapstructure:"lock"`
	LockTTL          time.Duration `yaml:"lockTTL" mapstructure:"lockTTL"`
}

type LoggerConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" mapstructure:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" mapstructure:"dir" validate:"required"`
}

type ScheduleConfig struct {
	Interval   time.Duration `yaml:"interval" mapstructure:"interval" validate:"required|min:1"`
	RunOnStart bool          `yaml:"runOnStart" mapstructure:"runOnStart"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Size    int  `yaml:"size" mapstructure:"size"`
	// TTL defaults to one schedule interval.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	Api       ApiConfig      `yaml:"api" mapstructure:"api"`
	Storage   StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Schedule  ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	WebServer Server         `yaml:"webServer" mapstructure:"webServer"`
	Logger    LoggerConfig   `yaml:"logger" mapstructure:"logger"`
	Cache     CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
}
