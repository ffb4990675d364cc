package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/dataflow"
	"github.com/kubescape/sysflow-agent/pkg/exporters"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
	"github.com/spf13/viper"
)

const ExporterIDEnvVar = "EXPORTER_ID"

type SourceConfig struct {
	// Path of the replayed capture; "-" reads standard input.
	Path string `mapstructure:"path"`
	// Ordered routes events through a timestamp ordering buffer.
	Ordered            bool          `mapstructure:"ordered"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
	MaxBufferSize      int           `mapstructure:"maxBufferSize"`
}

type Config struct {
	Exporters                exporters.ExportersConfig `mapstructure:"exporters"`
	Source                   SourceConfig              `mapstructure:"source"`
	ExporterID               string                    `mapstructure:"exporterID"`
	FileDuration             time.Duration             `mapstructure:"fileDuration"`
	FilterContainers         bool                      `mapstructure:"filterContainers"`
	IdleTimeout              time.Duration             `mapstructure:"idleTimeout"`
	MaintenanceInterval      time.Duration             `mapstructure:"maintenanceInterval"`
	FlowExpireInterval       time.Duration             `mapstructure:"flowExpireInterval"`
	FlowIdleTimeout          time.Duration             `mapstructure:"flowIdleTimeout"`
	FlowInterval             time.Duration             `mapstructure:"flowInterval"`
	MaxAncestorDepth         int                       `mapstructure:"maxAncestorDepth"`
	ProcessTableWarnSize     int                       `mapstructure:"processTableWarnSize"`
	NameCacheSize            int                       `mapstructure:"nameCacheSize"`
	LogLevel                 string                    `mapstructure:"logLevel"`
	EnablePrometheusExporter bool                      `mapstructure:"prometheusExporterEnabled"`
	PrometheusAddress        string                    `mapstructure:"prometheusAddress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exporterID", "local")
	v.SetDefault("fileDuration", time.Duration(0))
	v.SetDefault("filterContainers", false)
	v.SetDefault("idleTimeout", time.Second)
	v.SetDefault("maintenanceInterval", time.Second)
	v.SetDefault("flowExpireInterval", 30*time.Second)
	v.SetDefault("flowIdleTimeout", dataflow.DefaultFlowIdleTimeout)
	v.SetDefault("flowInterval", time.Duration(0))
	v.SetDefault("maxAncestorDepth", processregistry.DefaultMaxAncestorDepth)
	v.SetDefault("processTableWarnSize", 250000)
	v.SetDefault("nameCacheSize", 1024)
	v.SetDefault("logLevel", "info")
	v.SetDefault("prometheusExporterEnabled", false)
	v.SetDefault("prometheusAddress", ":8080")
	v.SetDefault("source.path", "-")
	v.SetDefault("source.collectionInterval", 100*time.Millisecond)
	v.SetDefault("source.maxBufferSize", 10000)
}

// LoadConfig reads configuration from file or environment variables. A
// missing config file leaves defaults, environment and bound flags in effect.
func LoadConfig(path string) (Config, error) {
	return LoadConfigFrom(viper.GetViper(), path)
}

func LoadConfigFrom(v *viper.Viper, path string) (Config, error) {
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("json")

	setDefaults(v)
	_ = v.BindEnv("exporterID", ExporterIDEnvVar)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, err
	}
	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.MaintenanceInterval <= 0 {
		return fmt.Errorf("maintenanceInterval must be positive, got %s", c.MaintenanceInterval)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idleTimeout must be positive, got %s", c.IdleTimeout)
	}
	if c.FileDuration < 0 {
		return fmt.Errorf("fileDuration must not be negative, got %s", c.FileDuration)
	}
	if c.Source.Path == "" {
		return fmt.Errorf("source path is required")
	}
	return nil
}

func (c *Config) ProcessRegistry() processregistry.Config {
	return processregistry.Config{MaxAncestorDepth: c.MaxAncestorDepth}
}

func (c *Config) DataFlow() dataflow.Config {
	return dataflow.Config{FlowIdleTimeout: c.FlowIdleTimeout, FlowInterval: c.FlowInterval}
}
