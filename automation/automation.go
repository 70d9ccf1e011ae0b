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

// Package automation drives time-based cycle progression. A single
// scheduler loop ticks at a fixed interval, finds cycles whose stage
// deadline has passed, and advances them through the state machine as the
// system actor. A cycle that repeatedly fails to advance is escalated to
// admins rather than retried forever.
package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/database/models"
	"github.com/blinklabs-io/baton/event"
	"github.com/blinklabs-io/baton/notify"
	"github.com/blinklabs-io/baton/succession"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultTickInterval  = time.Minute
	DefaultEscalateAfter = 3
)

// StalledEventType is published when a cycle's automatic advancement has
// failed enough consecutive ticks to need admin attention
const StalledEventType event.EventType = "cycle.stalled"

// StalledEvent is the event bus payload for an escalated cycle
type StalledEvent struct {
	CycleID  uint
	Status   models.CycleStatus
	Failures int
	LastErr  string
}

// SchedulerConfig holds automation scheduler configuration
type SchedulerConfig struct {
	Logger        *slog.Logger
	Database      *database.Database
	Machine       *succession.Machine
	EventBus      *event.EventBus
	Dispatcher    notify.Dispatcher
	PromRegistry  prometheus.Registerer
	TickInterval  time.Duration
	EscalateAfter int
	// AdminIDs receive stalled-cycle notifications
	AdminIDs []uint64
	// Now is replaceable for tests
	Now func() time.Time
}

// Scheduler is the automation loop
type Scheduler struct {
	config    SchedulerConfig
	logger    *slog.Logger
	metrics   *schedulerMetrics
	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu       sync.Mutex
	failures map[uint]*cycleFailure
}

type cycleFailure struct {
	count     int
	lastErr   error
	escalated bool
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.EscalateAfter <= 0 {
		cfg.EscalateAfter = DefaultEscalateAfter
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Scheduler{
		config:   cfg,
		logger:   logger.With("component", "automation"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		failures: make(map[uint]*cycleFailure),
	}
	if cfg.PromRegistry != nil {
		s.initMetrics(cfg.PromRegistry)
	}
	return s
}

// Start launches the scheduler loop. Safe to call once; the loop runs
// until Stop.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Stop halts the scheduler loop and waits for the in-flight tick to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
}

func (s *Scheduler) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(context.Background())
		}
	}
}

// Tick runs one pass over all non-terminal cycles. Exported so tests and
// an admin "run now" action can drive the scheduler without the ticker.
// A failing cycle never stops the pass or the loop.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.ticksTotal.Inc()
	}
	cycles, err := s.config.Database.GetNonTerminalCycles(nil)
	if err != nil {
		s.logger.Error("failed to list cycles", "error", err)
		return
	}
	now := s.config.Now()
	for _, cycle := range cycles {
		select {
		case <-s.stopCh:
			return
		default:
		}
		if cycle.StageDeadline.IsZero() || now.Before(cycle.StageDeadline) {
			continue
		}
		s.advanceCycle(ctx, cycle)
	}
}

func (s *Scheduler) advanceCycle(
	ctx context.Context,
	cycle models.SuccessionCycle,
) {
	_, err := s.config.Machine.Advance(
		ctx,
		models.SystemActorID,
		cycle.ID,
	)
	if err == nil {
		s.clearFailure(cycle.ID)
		if s.metrics != nil {
			s.metrics.advancesTotal.Inc()
		}
		s.logger.Info(
			"cycle advanced on deadline",
			"cycle_id", cycle.ID,
			"from", cycle.Status,
		)
		return
	}
	// A lost optimistic race means another writer already advanced the
	// cycle; that is progress, not a failure
	var conflictErr *models.ConflictError
	if errors.As(err, &conflictErr) {
		s.clearFailure(cycle.ID)
		return
	}
	if s.metrics != nil {
		s.metrics.failuresTotal.Inc()
	}
	failures := s.recordFailure(cycle.ID, err)
	s.logger.Warn(
		"cycle failed to advance",
		"cycle_id", cycle.ID,
		"status", cycle.Status,
		"failures", failures,
		"error", err,
	)
	if failures >= s.config.EscalateAfter {
		s.escalate(ctx, cycle, failures, err)
	}
}

func (s *Scheduler) recordFailure(cycleID uint, err error) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	failure, ok := s.failures[cycleID]
	if !ok {
		failure = &cycleFailure{}
		s.failures[cycleID] = failure
	}
	failure.count++
	failure.lastErr = err
	return failure.count
}

func (s *Scheduler) clearFailure(cycleID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, cycleID)
}

// escalate notifies admins once per stall; the flag resets when the cycle
// advances again
func (s *Scheduler) escalate(
	ctx context.Context,
	cycle models.SuccessionCycle,
	failures int,
	lastErr error,
) {
	s.mu.Lock()
	failure := s.failures[cycle.ID]
	if failure == nil || failure.escalated {
		s.mu.Unlock()
		return
	}
	failure.escalated = true
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.escalationsTotal.Inc()
	}
	s.logger.Error(
		"cycle stalled, escalating",
		"cycle_id", cycle.ID,
		"status", cycle.Status,
		"failures", failures,
		"error", lastErr,
	)
	if s.config.EventBus != nil {
		s.config.EventBus.Publish(
			StalledEventType,
			event.NewEvent(StalledEventType, StalledEvent{
				CycleID:  cycle.ID,
				Status:   cycle.Status,
				Failures: failures,
				LastErr:  lastErr.Error(),
			}),
		)
	}
	if s.config.Dispatcher == nil {
		return
	}
	for _, adminID := range s.config.AdminIDs {
		req := notify.NewRequest(
			adminID,
			notify.TemplateStageStalled,
			map[string]any{
				"cycle_id": cycle.ID,
				"status":   string(cycle.Status),
				"failures": failures,
				"error":    lastErr.Error(),
			},
		)
		if err := s.config.Dispatcher.Dispatch(ctx, req); err != nil {
			s.logger.Warn(
				"failed to dispatch stall notification",
				"recipient_id", adminID,
				"error", err,
			)
		}
	}
}

type schedulerMetrics struct {
	ticksTotal       prometheus.Counter
	advancesTotal    prometheus.Counter
	failuresTotal    prometheus.Counter
	escalationsTotal prometheus.Counter
}

func (s *Scheduler) initMetrics(promRegistry prometheus.Registerer) {
	s.metrics = &schedulerMetrics{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baton_automation_ticks_total",
			Help: "scheduler ticks run",
		}),
		advancesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baton_automation_advances_total",
			Help: "cycles advanced automatically on deadline",
		}),
		failuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baton_automation_failures_total",
			Help: "failed automatic advance attempts",
		}),
		escalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baton_automation_escalations_total",
			Help: "stalled cycles escalated to admins",
		}),
	}
	promRegistry.MustRegister(
		s.metrics.ticksTotal,
		s.metrics.advancesTotal,
		s.metrics.failuresTotal,
		s.metrics.escalationsTotal,
	)
}
