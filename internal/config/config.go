// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "baton.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const DefaultShutdownTimeout = "30s"

type Config struct {
	DataDir                string            `yaml:"dataDir"                split_words:"true"`
	MembersFile            string            `yaml:"membersFile"            split_words:"true"`
	MetricsPort            uint              `yaml:"metricsPort"            split_words:"true"`
	ShutdownTimeout        string            `yaml:"shutdownTimeout"        split_words:"true"`
	TickInterval           string            `yaml:"tickInterval"           split_words:"true"`
	EscalateAfter          int               `yaml:"escalateAfter"          split_words:"true"`
	QuorumFraction         float64           `yaml:"quorumFraction"         split_words:"true"`
	ScaleMax               float64           `yaml:"scaleMax"               split_words:"true"`
	MinJustificationLength int               `yaml:"minJustificationLength" split_words:"true"`
	AdminIDs               []uint64          `yaml:"adminIds"               envconfig:"BATON_ADMIN_IDS"`
	StageDurations         map[string]string `yaml:"stageDurations"         envconfig:"BATON_STAGE_DURATIONS"`
	TracingEnabled         bool              `yaml:"tracing"                envconfig:"BATON_TRACING"`
	TracingStdout          bool              `yaml:"tracingStdout"          envconfig:"BATON_TRACING_STDOUT"`
	OtlpEndpoint           string            `yaml:"otlpEndpoint"           envconfig:"BATON_OTLP_ENDPOINT"`
}

var globalConfig = &Config{
	DataDir:                ".baton",
	MetricsPort:            12798,
	ShutdownTimeout:        DefaultShutdownTimeout,
	TickInterval:           "1m",
	EscalateAfter:          3,
	QuorumFraction:         0.5,
	ScaleMax:               10,
	MinJustificationLength: 50,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.baton/baton.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".baton", "baton.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/baton/baton.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/baton/baton.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("baton", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

func (c *Config) validate() error {
	if c.QuorumFraction <= 0 || c.QuorumFraction > 1 {
		return fmt.Errorf(
			"invalid quorumFraction: %v (must be in (0, 1])",
			c.QuorumFraction,
		)
	}
	if c.ScaleMax <= 0 {
		return fmt.Errorf(
			"invalid scaleMax: %v (must be positive)",
			c.ScaleMax,
		)
	}
	if c.MinJustificationLength < 0 {
		return fmt.Errorf(
			"invalid minJustificationLength: %d",
			c.MinJustificationLength,
		)
	}
	if c.EscalateAfter <= 0 {
		return fmt.Errorf(
			"invalid escalateAfter: %d (must be positive)",
			c.EscalateAfter,
		)
	}
	if _, err := time.ParseDuration(c.TickInterval); err != nil {
		return fmt.Errorf("invalid tickInterval: %w", err)
	}
	if c.ShutdownTimeout != "" {
		if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
			return fmt.Errorf("invalid shutdownTimeout: %w", err)
		}
	}
	for stage, duration := range c.StageDurations {
		if _, err := time.ParseDuration(duration); err != nil {
			return fmt.Errorf(
				"invalid stageDurations entry %q: %w",
				stage,
				err,
			)
		}
	}
	return nil
}

// ParsedTickInterval returns the scheduler tick interval as a duration.
// Validation already guaranteed it parses.
func (c *Config) ParsedTickInterval() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// ParsedStageDurations returns the stage duration map keyed by stage name
func (c *Config) ParsedStageDurations() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.StageDurations))
	for stage, duration := range c.StageDurations {
		d, err := time.ParseDuration(duration)
		if err != nil {
			continue
		}
		out[stage] = d
	}
	return out
}
