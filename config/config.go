package config

import (
	"fmt"

	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/storage"
	"github.com/kbukum/dagflow/validation"
)

// Environments accepted by Config.Environment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// DefaultPrefix is the storage prefix runs are written under.
const DefaultPrefix = "runs"

// Config is the configuration of a program that runs DAGs.
type Config struct {
	Name        string          `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string          `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Logging     logger.Config   `yaml:"logging" mapstructure:"logging"`
	Storage     storage.Config  `yaml:"storage" mapstructure:"storage"`
	Execution   ExecutionConfig `yaml:"execution" mapstructure:"execution"`
	Tracing     TracingConfig   `yaml:"tracing" mapstructure:"tracing"`
}

// ExecutionConfig tunes the local engine.
type ExecutionConfig struct {
	// MaxParallel bounds concurrently running nodes and partitions.
	// 0 and 1 both mean sequential execution.
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel" validate:"gte=0"`

	// KeepArtifacts leaves intermediate node outputs in storage after a run.
	KeepArtifacts bool `yaml:"keep_artifacts" mapstructure:"keep_artifacts"`

	// Prefix is the storage path runs are written under.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// TracingConfig configures OTLP trace and metric export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
}

// ApplyDefaults fills zero values, including those of nested sections.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Execution.Prefix == "" {
		c.Execution.Prefix = DefaultPrefix
	}
	if c.Tracing.Enabled && c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1
	}
	c.Logging.ApplyDefaults()
	c.Storage.ApplyDefaults()
}

// Validate checks struct tags first, then the nested sections that carry
// their own rules.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
