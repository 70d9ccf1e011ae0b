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

package notify

import (
	"context"
	"io"
	"log/slog"

	"github.com/blinklabs-io/baton/event"
	"github.com/google/uuid"
)

// DispatchEventType carries notification dispatch requests on the event bus
const DispatchEventType event.EventType = "notification.dispatch"

// Template keys understood by the external notification system. Rendering
// and delivery are the collaborator's responsibility.
const (
	TemplateNomineeAdvancing   = "succession.nominee_advancing"
	TemplateEvaluatorAssigned  = "succession.evaluator_assigned"
	TemplateCommitteeVote      = "succession.committee_vote_open"
	TemplateSecondmentConsent  = "succession.secondment_consent"
	TemplateNewlyEligible      = "succession.newly_eligible"
	TemplateStageStalled       = "succession.stage_stalled"
	TemplateSelectionRecorded  = "succession.selection_recorded"
	TemplateCandidacyWithdrawn = "succession.candidacy_withdrawn"
)

// Request is one notification dispatch request handed off to the external
// notification system. Delivery is fire-and-forget from the engine's
// perspective.
type Request struct {
	RequestID   uuid.UUID
	RecipientID uint64
	TemplateKey string
	Context     map[string]any
}

// NewRequest builds a dispatch request with a fresh request ID
func NewRequest(
	recipientID uint64,
	templateKey string,
	templateContext map[string]any,
) Request {
	return Request{
		RequestID:   uuid.New(),
		RecipientID: recipientID,
		TemplateKey: templateKey,
		Context:     templateContext,
	}
}

// Dispatcher hands notification requests to the delivery collaborator
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// BusDispatcher publishes dispatch requests on the event bus for delivery
// adapters to consume. Publishing is asynchronous and never blocks the
// calling engine.
type BusDispatcher struct {
	bus    *event.EventBus
	logger *slog.Logger
}

func NewBusDispatcher(
	bus *event.EventBus,
	logger *slog.Logger,
) *BusDispatcher {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &BusDispatcher{
		bus:    bus,
		logger: logger.With("component", "notify"),
	}
}

func (d *BusDispatcher) Dispatch(_ context.Context, req Request) error {
	if !d.bus.PublishAsync(DispatchEventType, event.NewEvent(DispatchEventType, req)) {
		d.logger.Warn(
			"notification dropped",
			"request_id", req.RequestID.String(),
			"template", req.TemplateKey,
			"recipient", req.RecipientID,
		)
	}
	return nil
}
