// Package config loads and validates benchmark configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes one benchmark run.
type Config struct {
	// Brokers are the Kafka seed brokers.
	Brokers []string `yaml:"brokers"`

	// Topic is the destination topic.
	Topic string `yaml:"topic"`

	// Partitions is the partition count used when creating the topic.
	Partitions int32 `yaml:"partitions"`

	// CreateTopic creates the topic before the run if it does not exist.
	CreateTopic bool `yaml:"createTopic"`

	// Producers is the number of concurrent executors, each with its own
	// client.
	Producers int `yaml:"producers"`

	// Records is the number of records each producer sends before its data
	// supplier reports end of stream. Zero means unlimited; the run is then
	// bounded by Duration.
	Records int64 `yaml:"records"`

	// BatchSize groups records into transactions. 1 sends records
	// individually; N>1 commits N records plus one control marker per
	// cycle.
	BatchSize int `yaml:"batchSize"`

	// Partition pins every send to one partition. Unset or -1 lets the
	// client choose. A pointer so that pinning partition 0 is
	// distinguishable from leaving the field out.
	Partition *int32 `yaml:"partition"`

	// KeySize and ValueSize are payload sizes in bytes. KeySize 0 with
	// UUIDKeys false produces keyless records.
	KeySize   int `yaml:"keySize"`
	ValueSize int `yaml:"valueSize"`

	// UUIDKeys keys each record with a fresh UUID instead of random bytes.
	UUIDKeys bool `yaml:"uuidKeys"`

	// Rate throttles each producer to this many records per second.
	// Zero means unthrottled.
	Rate float64 `yaml:"rate"`

	// Duration bounds the run, e.g. "30s". Empty means run until the
	// record count is exhausted.
	Duration string `yaml:"duration"`
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error on field '" + e.Field + "': " + e.Message
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills zero fields with usable defaults.
func ApplyDefaults(cfg *Config) {
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = []string{"localhost:9092"}
	}
	if cfg.Partitions == 0 {
		cfg.Partitions = 1
	}
	if cfg.Producers == 0 {
		cfg.Producers = 1
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1
	}
	if cfg.ValueSize == 0 {
		cfg.ValueSize = 1024
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Topic == "" {
		return &ValidationError{Field: "topic", Message: "topic is required"}
	}
	if c.Producers < 1 {
		return &ValidationError{Field: "producers", Message: "producers must be >= 1"}
	}
	if c.BatchSize < 1 {
		return &ValidationError{Field: "batchSize", Message: "batchSize must be >= 1"}
	}
	if c.Records < 0 {
		return &ValidationError{Field: "records", Message: "records must be >= 0"}
	}
	if c.Rate < 0 {
		return &ValidationError{Field: "rate", Message: "rate must be >= 0"}
	}
	if p := c.PinnedPartition(); p < -1 {
		return &ValidationError{Field: "partition", Message: "partition must be -1 or a partition index"}
	} else if p >= c.Partitions {
		return &ValidationError{Field: "partition", Message: "partition is outside the topic's partition count"}
	}
	if c.Records == 0 && c.Duration == "" {
		return &ValidationError{Field: "duration", Message: "either records or duration must bound the run"}
	}
	if _, err := c.DurationValue(); err != nil {
		return &ValidationError{Field: "duration", Message: err.Error()}
	}
	return nil
}

// Transactional reports whether the run uses transaction groups.
func (c *Config) Transactional() bool { return c.BatchSize > 1 }

// PinnedPartition returns the pinned partition index, or -1 when the
// client chooses.
func (c *Config) PinnedPartition() int32 {
	if c.Partition == nil {
		return -1
	}
	return *c.Partition
}

// DurationValue parses the Duration field; empty means no bound.
func (c *Config) DurationValue() (time.Duration, error) {
	if c.Duration == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Duration)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", c.Duration, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", c.Duration)
	}
	return d, nil
}
