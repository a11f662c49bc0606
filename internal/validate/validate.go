// Copyright (c) 2026 John Earle
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

// Package validate decides whether an inbound envelope is well-formed
// enough for an operation to proceed.
//
// The Check* functions are pure and return a classified *failure.Error.
// Validator wraps them into the {can_invoke, message, details} result the
// platform expects.
package validate

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/wrikesync/snapin/internal/failure"
	"github.com/wrikesync/snapin/internal/models"
)

const (
	MsgNoEvents          = "No events provided"
	MsgPayloadMissing    = "Event payload or event_type is missing"
	MsgMissingAuth       = "Event is missing required authentication context"
	MsgMissingConnection = "Event is missing required connection data"
	MsgMissingCallback   = "Event is missing callback_url in event_context"
	MsgExtractionOK      = "Data extraction workflow can be invoked"
	MsgInvokeOK          = "Function can be invoked"

	fieldServiceAccountToken = "context.secrets.service_account_token"
)

// Result is the rendered outcome of a validator.
type Result struct {
	CanInvoke bool           `json:"can_invoke"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// CheckExtraction applies the extraction checks in order and stops at the
// first failure.
func CheckExtraction(ev *models.Envelope) error {
	if ev == nil {
		return failure.New(failure.InputInvalid, MsgNoEvents)
	}
	if ev.IsExtractionCapable() {
		return nil
	}

	if ev.Payload == nil || ev.Payload.EventType == "" {
		return failure.New(failure.InputInvalid, MsgPayloadMissing).
			WithDetail("received_event", ev)
	}

	if !ev.Payload.EventType.IsExtraction() {
		return failure.Newf(failure.UnsupportedEventType,
			"Unsupported event type: %s. Only extraction events are supported", ev.Payload.EventType).
			WithDetail("received_event_type", string(ev.Payload.EventType)).
			WithDetail("supported_event_types", models.ExtractionEventTypeNames())
	}

	if ev.ServiceAccountToken() == "" {
		return failure.New(failure.Unauthenticated, MsgMissingAuth).
			WithDetail("missing_fields", []string{fieldServiceAccountToken})
	}

	return nil
}

// CheckFetch requires the Wrike key and org id.
func CheckFetch(ev *models.Envelope) error {
	if ev == nil {
		return failure.New(failure.InputInvalid, MsgNoEvents)
	}
	if ev.IsFetchCapable() {
		return nil
	}

	conn := ev.Connection()
	var missing []string
	if conn.Key == "" {
		missing = append(missing, "payload.connection_data.key")
	}
	if conn.OrgID == "" {
		missing = append(missing, "payload.connection_data.org_id")
	}
	if len(missing) > 0 {
		return failure.New(failure.Unauthenticated, MsgMissingConnection).
			WithDetail("missing_fields", missing)
	}
	return nil
}

// CheckPush requires a callback URL.
func CheckPush(ev *models.Envelope) error {
	if ev == nil {
		return failure.New(failure.InputInvalid, MsgNoEvents)
	}
	if !ev.IsPushCapable() {
		return failure.New(failure.InputInvalid, MsgMissingCallback).
			WithDetail("missing_fields", []string{"payload.event_context.callback_url"})
	}
	return nil
}

// Validator renders checks into Results and logs what it saw.
type Validator struct {
	log *slog.Logger
}

// New creates a Validator. A nil logger uses slog.Default().
func New(log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{log: log}
}

// CanInvoke is a liveness probe. It performs no checks and does not
// recover from panics.
func (v *Validator) CanInvoke(ev *models.Envelope) Result {
	v.log.Info("can_invoke received event", eventAttrs(ev)...)
	return Result{CanInvoke: true, Message: MsgInvokeOK}
}

// CanExtract reports whether ev may start an extraction phase. It never
// panics: anything unexpected is converted into a failed Result.
func (v *Validator) CanExtract(ev *models.Envelope) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			stack := fmt.Sprintf("%v\n%s", r, debug.Stack())
			res = Result{
				CanInvoke: false,
				Message:   fmt.Sprintf("Error validating extraction: %v", r),
				Details:   map[string]any{"error": stack},
			}
			v.logQuietly("extraction validation failed unexpectedly", "error", fmt.Sprint(r))
		}
	}()

	v.log.Info("can_extract received event", eventAttrs(ev)...)

	if err := CheckExtraction(ev); err != nil {
		v.log.Warn("extraction not allowed",
			"kind", failure.KindOf(err).String(),
			"reason", err.Error(),
		)
		return Render(err)
	}

	return Result{CanInvoke: true, Message: MsgExtractionOK}
}

// Render converts a check error into a failed Result.
func Render(err error) Result {
	return Result{
		CanInvoke: false,
		Message:   err.Error(),
		Details:   failure.DetailsOf(err),
	}
}

// logQuietly logs from inside a recover handler without letting a broken
// log sink escape.
func (v *Validator) logQuietly(msg string, args ...any) {
	defer func() { _ = recover() }()
	v.log.Error(msg, args...)
}

// eventAttrs summarises an envelope for logging without secrets.
func eventAttrs(ev *models.Envelope) []any {
	if ev == nil {
		return []any{"has_event", false}
	}
	attrs := []any{
		"has_event", true,
		"function", ev.FunctionName(),
		"snap_in_id", ev.Context.SnapInID,
		"has_token", ev.ServiceAccountToken() != "",
	}
	if ev.Payload != nil {
		attrs = append(attrs, "event_type", string(ev.Payload.EventType))
	}
	return attrs
}
