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

package baton

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/eligibility"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry           prometheus.Registerer
	logger                 *slog.Logger
	memberSource           eligibility.MemberDataSource
	dataDir                string
	adminIDs               []uint64
	stageDurations         map[models.CycleStatus]time.Duration
	tickInterval           time.Duration
	shutdownTimeout        time.Duration
	escalateAfter          int
	minJustificationLength int
	quorumFraction         float64
	scaleMax               float64
	tracing                bool
	tracingStdout          bool
	scheduler              bool
}

func (e *Engine) configValidate() error {
	if e.config.memberSource == nil {
		return errors.New("no member data source defined")
	}
	if e.config.quorumFraction < 0 || e.config.quorumFraction > 1 {
		return errors.New("quorum fraction must be in (0, 1]")
	}
	if e.config.scaleMax < 0 {
		return errors.New("score scale maximum must be positive")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the Engine config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new baton config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		scheduler: true,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMemberDataSource specifies the source of member profiles for
// eligibility computation. Required.
func WithMemberDataSource(
	source eligibility.MemberDataSource,
) ConfigOptionFunc {
	return func(c *Config) {
		c.memberSource = source
	}
}

// WithAdminIDs specifies the member IDs treated as admins for escalation
// notifications
func WithAdminIDs(adminIDs []uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.adminIDs = adminIDs
	}
}

// WithStageDurations specifies per-stage deadlines for automatic
// progression. Stages without an entry never advance automatically.
func WithStageDurations(
	durations map[models.CycleStatus]time.Duration,
) ConfigOptionFunc {
	return func(c *Config) {
		c.stageDurations = durations
	}
}

// WithTickInterval specifies how often the automation scheduler checks
// stage deadlines. The default is one minute.
func WithTickInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.tickInterval = interval
	}
}

// WithScheduler specifies whether to run the automation scheduler. It is
// enabled by default; disable it for tools that only read or export.
func WithScheduler(enabled bool) ConfigOptionFunc {
	return func(c *Config) {
		c.scheduler = enabled
	}
}

// WithEscalateAfter specifies the number of consecutive failed automatic
// advances before a cycle is escalated to admins. The default is 3.
func WithEscalateAfter(count int) ConfigOptionFunc {
	return func(c *Config) {
		c.escalateAfter = count
	}
}

// WithQuorumFraction specifies the fraction of seated committee members
// whose yes votes constitute quorum. The default is 0.5.
func WithQuorumFraction(fraction float64) ConfigOptionFunc {
	return func(c *Config) {
		c.quorumFraction = fraction
	}
}

// WithScaleMax specifies the top of the evaluation scoring scale. The
// default is 10.
func WithScaleMax(max float64) ConfigOptionFunc {
	return func(c *Config) {
		c.scaleMax = max
	}
}

// WithMinJustificationLength specifies the minimum justification length
// for nominations and applications. The default is 50 characters.
func WithMinJustificationLength(length int) ConfigOptionFunc {
	return func(c *Config) {
		c.minJustificationLength = length
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
