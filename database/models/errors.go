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

package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycleNotFound      = errors.New("succession cycle not found")
	ErrPositionNotFound   = errors.New("position not found")
	ErrNominationNotFound = errors.New("nomination not found")
	ErrEvaluatorNotFound  = errors.New("evaluator not found")
	ErrCriterionNotFound  = errors.New("evaluation criterion not found")
	ErrSlotNotFound       = errors.New("interview slot not found")
	ErrSelectionNotFound  = errors.New("selection not found")
)

// FieldError is one field-level validation failure
type FieldError struct {
	Field  string
	Detail string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// ValidationError reports malformed input with field-level detail. It is
// recovered locally and surfaced to the caller, never logged and dropped.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, detail string) *ValidationError {
	return &ValidationError{
		Fields: []FieldError{{Field: field, Detail: detail}},
	}
}

// Add appends a field-level failure and returns the error for chaining
func (e *ValidationError) Add(field, detail string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Detail: detail})
	return e
}

// AuthorizationError reports that the actor lacks the role or committee
// membership required for the action. It is surfaced as a rejection and
// never silently downgraded.
type AuthorizationError struct {
	ActorID uint64
	Action  string
	Reason  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf(
		"actor %d not authorized for %s: %s",
		e.ActorID,
		e.Action,
		e.Reason,
	)
}

// ConflictError reports a duplicate unique-key write, such as an attempt to
// submit a score or ballot under another identity's key. The write is
// rejected, not merged.
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting write to %s (%s)", e.Entity, e.Key)
}
