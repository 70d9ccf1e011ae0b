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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/baton/audit"
	"github.com/blinklabs-io/baton/automation"
	"github.com/blinklabs-io/baton/database"
	"github.com/blinklabs-io/baton/eligibility"
	"github.com/blinklabs-io/baton/evaluation"
	"github.com/blinklabs-io/baton/event"
	"github.com/blinklabs-io/baton/interview"
	"github.com/blinklabs-io/baton/nomination"
	"github.com/blinklabs-io/baton/notify"
	"github.com/blinklabs-io/baton/succession"
	"github.com/blinklabs-io/baton/voting"
)

// Engine composes the succession pipeline: the store, the event bus, the
// audit recorder, the per-concern engines, the cycle state machine, and
// the automation scheduler.
type Engine struct {
	config        Config
	eventBus      *event.EventBus
	db            *database.Database
	auditor       *audit.Recorder
	dispatcher    notify.Dispatcher
	eligibility   *eligibility.Engine
	nominations   *nomination.Intake
	evaluations   *evaluation.Engine
	interviews    *interview.Scheduler
	votes         *voting.Engine
	machine       *succession.Machine
	scheduler     *automation.Scheduler
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Engine, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	e := &Engine{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := e.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return e, nil
}

func (e *Engine) Run() error {
	// Configure tracing
	if e.config.tracing {
		if err := e.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:      e.config.dataDir,
		Logger:       e.config.logger,
		PromRegistry: e.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	e.db = db
	// Audit recorder and notification dispatcher
	e.auditor = audit.NewRecorder(e.db, e.eventBus, e.config.logger)
	e.dispatcher = notify.NewBusDispatcher(e.eventBus, e.config.logger)
	// Per-concern engines
	e.eligibility = eligibility.NewEngine(eligibility.EngineConfig{
		Logger:     e.config.logger,
		Database:   e.db,
		DataSource: e.config.memberSource,
		Dispatcher: e.dispatcher,
		Auditor:    e.auditor,
	})
	e.nominations = nomination.NewIntake(nomination.IntakeConfig{
		Logger:                 e.config.logger,
		Database:               e.db,
		Auditor:                e.auditor,
		Dispatcher:             e.dispatcher,
		MinJustificationLength: e.config.minJustificationLength,
	})
	e.evaluations = evaluation.NewEngine(evaluation.EngineConfig{
		Logger:     e.config.logger,
		Database:   e.db,
		Auditor:    e.auditor,
		Dispatcher: e.dispatcher,
		ScaleMax:   e.config.scaleMax,
	})
	e.interviews = interview.NewScheduler(interview.SchedulerConfig{
		Logger:   e.config.logger,
		Database: e.db,
		Auditor:  e.auditor,
	})
	e.votes = voting.NewEngine(voting.EngineConfig{
		Logger:         e.config.logger,
		Database:       e.db,
		Auditor:        e.auditor,
		Dispatcher:     e.dispatcher,
		QuorumFraction: e.config.quorumFraction,
	})
	// Cycle state machine
	e.machine = succession.NewMachine(succession.MachineConfig{
		Logger:         e.config.logger,
		Database:       e.db,
		EventBus:       e.eventBus,
		Auditor:        e.auditor,
		Eligibility:    e.eligibility,
		Evaluation:     e.evaluations,
		Dispatcher:     e.dispatcher,
		StageDurations: e.config.stageDurations,
	})
	// Automation scheduler
	if e.config.scheduler {
		e.scheduler = automation.NewScheduler(automation.SchedulerConfig{
			Logger:        e.config.logger,
			Database:      e.db,
			Machine:       e.machine,
			EventBus:      e.eventBus,
			Dispatcher:    e.dispatcher,
			PromRegistry:  e.config.promRegistry,
			TickInterval:  e.config.tickInterval,
			EscalateAfter: e.config.escalateAfter,
			AdminIDs:      e.config.adminIDs,
		})
		e.scheduler.Start()
	}

	// Wait for shutdown signal
	<-e.done
	return nil
}

// Database returns the underlying store for direct queries
func (e *Engine) Database() *database.Database {
	return e.db
}

// EventBus returns the engine's event bus for external subscribers
func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

// Auditor returns the audit recorder, which also serves exports
func (e *Engine) Auditor() *audit.Recorder {
	return e.auditor
}

// Eligibility returns the eligibility engine
func (e *Engine) Eligibility() *eligibility.Engine {
	return e.eligibility
}

// Nominations returns the candidacy intake
func (e *Engine) Nominations() *nomination.Intake {
	return e.nominations
}

// Evaluations returns the evaluation engine
func (e *Engine) Evaluations() *evaluation.Engine {
	return e.evaluations
}

// Interviews returns the interview scheduler
func (e *Engine) Interviews() *interview.Scheduler {
	return e.interviews
}

// Votes returns the voting engine
func (e *Engine) Votes() *voting.Engine {
	return e.votes
}

// Machine returns the cycle state machine
func (e *Engine) Machine() *succession.Machine {
	return e.machine
}

// Scheduler returns the automation scheduler, or nil when disabled
func (e *Engine) Scheduler() *automation.Scheduler {
	return e.scheduler
}

func (e *Engine) Stop() error {
	var err error
	e.shutdownOnce.Do(func() {
		err = e.shutdown()
	})
	return err
}

func (e *Engine) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if e.config.shutdownTimeout > 0 {
		shutdownTimeout = e.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	e.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	e.config.logger.Debug("shutdown phase 1: stopping new work")

	if e.scheduler != nil {
		e.scheduler.Stop()
	}

	// Phase 2: Cleanup resources
	e.config.logger.Debug("shutdown phase 2: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range e.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	e.shutdownFuncs = nil

	if e.eventBus != nil {
		e.eventBus.Stop()
	}

	// Phase 3: Close database
	e.config.logger.Debug("shutdown phase 3: closing database")

	if e.db != nil {
		if closeErr := e.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	e.config.logger.Debug("graceful shutdown complete")
	close(e.done)
	return err
}
