package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRoot     = "dbfs:/mnt/demo/dlt/demo_bookstore"
	DefaultDatabase = "demo_bookstore_dlt_db"
	DefaultMount    = "/dbfs"
	DefaultHistory  = ".dltinspect/history.db"
	DefaultTimeout  = "5m"
)

// DefaultGoldTables are the gold tables the bookstore pipeline materializes.
var DefaultGoldTables = []string{"cn_daily_customer_books", "fr_daily_customer_books"}

// Environment variables that override file values.
const (
	EnvStorageType      = "DLTINSPECT_STORAGE_TYPE"
	EnvStorageRoot      = "DLTINSPECT_STORAGE_ROOT"
	EnvDatabricksHost   = "DATABRICKS_HOST"
	EnvDatabricksToken  = "DATABRICKS_TOKEN"
	EnvAzureConnString  = "DLTINSPECT_AZURE_CONNECTION_STRING"
	EnvWarehouseDriver  = "DLTINSPECT_WAREHOUSE_DRIVER"
	EnvWarehouseDSN     = "DLTINSPECT_WAREHOUSE_DSN"
	EnvHistoryPath      = "DLTINSPECT_HISTORY_PATH"
	EnvKafkaBrokers     = "DLTINSPECT_KAFKA_BROKERS"
	EnvKafkaTopic       = "DLTINSPECT_KAFKA_TOPIC"
	EnvLogLevel         = "DLTINSPECT_LOG_LEVEL"
	EnvPipelineDatabase = "DLTINSPECT_DATABASE"
)

type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	History   HistoryConfig   `yaml:"history"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type StorageConfig struct {
	Type string `yaml:"type"`
	Root string `yaml:"root"`

	// dbfs
	Host  string `yaml:"host"`
	Token string `yaml:"token"`

	// local
	Mount string `yaml:"mount"`

	// azure
	AccountURL       string `yaml:"account_url"`
	Container        string `yaml:"container"`
	ConnectionString string `yaml:"connection_string"`
	MountPoint       string `yaml:"mount_point"`
	Prefix           string `yaml:"prefix"`
}

type WarehouseConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (w *WarehouseConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(w.Timeout)
	return d
}

type PipelineConfig struct {
	Database   string   `yaml:"database"`
	GoldTables []string `yaml:"gold_tables"`
}

// QualifiedTables returns the gold tables prefixed with the pipeline database
// unless a table is already qualified.
func (p *PipelineConfig) QualifiedTables() []string {
	out := make([]string, 0, len(p.GoldTables))
	for _, t := range p.GoldTables {
		if strings.Contains(t, ".") || p.Database == "" {
			out = append(out, t)
			continue
		}
		out = append(out, p.Database+"."+t)
	}
	return out
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path yields defaults plus
// environment.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.loadDefaults()
	cfg.loadEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadDefaults() {
	if c.Storage.Type == "" {
		c.Storage.Type = "dbfs"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = DefaultRoot
	}
	if c.Storage.Mount == "" {
		c.Storage.Mount = DefaultMount
	}
	if c.Warehouse.Driver == "" {
		c.Warehouse.Driver = "databricks"
	}
	if c.Warehouse.Timeout == "" {
		c.Warehouse.Timeout = DefaultTimeout
	}
	if c.Pipeline.Database == "" {
		c.Pipeline.Database = DefaultDatabase
	}
	if len(c.Pipeline.GoldTables) == 0 {
		c.Pipeline.GoldTables = append([]string(nil), DefaultGoldTables...)
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistory
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "dlt-events"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) loadEnv() {
	setFromEnv(&c.Storage.Type, EnvStorageType)
	setFromEnv(&c.Storage.Root, EnvStorageRoot)
	setFromEnv(&c.Storage.Host, EnvDatabricksHost)
	setFromEnv(&c.Storage.Token, EnvDatabricksToken)
	setFromEnv(&c.Storage.ConnectionString, EnvAzureConnString)
	setFromEnv(&c.Warehouse.Driver, EnvWarehouseDriver)
	setFromEnv(&c.Warehouse.DSN, EnvWarehouseDSN)
	setFromEnv(&c.History.Path, EnvHistoryPath)
	setFromEnv(&c.Kafka.Topic, EnvKafkaTopic)
	setFromEnv(&c.Logging.Level, EnvLogLevel)
	setFromEnv(&c.Pipeline.Database, EnvPipelineDatabase)

	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Kafka.Brokers = brokers
	}
}

func setFromEnv(field *string, name string) {
	if v := os.Getenv(name); v != "" {
		*field = v
	}
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.Storage.Root, "dbfs:/") && !strings.HasPrefix(c.Storage.Root, "/") {
		return fmt.Errorf("storage.root must be a dbfs:/ or absolute path, got %q", c.Storage.Root)
	}

	// Backend credentials are checked when a Lister is built, so commands
	// that never list storage run without them.
	switch c.Storage.Type {
	case "dbfs", "local", "azure":
	default:
		return fmt.Errorf("storage.type must be dbfs, local or azure, got %q", c.Storage.Type)
	}

	switch c.Warehouse.Driver {
	case "databricks", "mysql", "pgx", "sqlite":
	default:
		return fmt.Errorf("warehouse.driver must be databricks, mysql, pgx or sqlite, got %q", c.Warehouse.Driver)
	}
	if _, err := time.ParseDuration(c.Warehouse.Timeout); err != nil {
		return fmt.Errorf("invalid warehouse.timeout: %w", err)
	}

	for _, table := range c.Pipeline.GoldTables {
		if strings.TrimSpace(table) == "" {
			return errors.New("pipeline.gold_tables must not contain empty names")
		}
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}
