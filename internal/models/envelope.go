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

// Package models defines the data structures shared across the snap-in:
// the inbound event envelope, lifecycle event types and the normalised
// Wrike records pushed to Airdrop.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SecretServiceAccountToken is the secrets key carrying the platform token.
const SecretServiceAccountToken = "service_account_token"

// Envelope is a single snap-in invocation event.
type Envelope struct {
	Context           Context           `json:"context"`
	Payload           *Payload          `json:"payload,omitempty"`
	ExecutionMetadata ExecutionMetadata `json:"execution_metadata"`
	InputData         InputData         `json:"input_data,omitempty"`
}

// Context carries secrets and opaque identifiers. Identifiers are passed
// through unvalidated.
type Context struct {
	DevOid           string            `json:"dev_oid,omitempty"`
	SourceID         string            `json:"source_id,omitempty"`
	SnapInID         string            `json:"snap_in_id,omitempty"`
	SnapInVersionID  string            `json:"snap_in_version_id,omitempty"`
	ServiceAccountID string            `json:"service_account_id,omitempty"`
	Secrets          map[string]string `json:"secrets,omitempty"`
}

// Payload is the event body.
type Payload struct {
	EventType      EventType       `json:"event_type"`
	EventContext   EventContext    `json:"event_context"`
	ConnectionData ConnectionData  `json:"connection_data"`
	EventData      json.RawMessage `json:"event_data,omitempty"`
}

// EventContext identifies the sync run and where to report results.
type EventContext struct {
	CallbackURL           string `json:"callback_url,omitempty"`
	DevOrg                string `json:"dev_org,omitempty"`
	DevOrgID              string `json:"dev_org_id,omitempty"`
	DevUser               string `json:"dev_user,omitempty"`
	DevUserID             string `json:"dev_user_id,omitempty"`
	ExternalSyncUnit      string `json:"external_sync_unit,omitempty"`
	ExternalSyncUnitID    string `json:"external_sync_unit_id,omitempty"`
	ExternalSyncUnitName  string `json:"external_sync_unit_name,omitempty"`
	ExternalSystem        string `json:"external_system,omitempty"`
	ExternalSystemType    string `json:"external_system_type,omitempty"`
	ImportSlug            string `json:"import_slug,omitempty"`
	Mode                  string `json:"mode,omitempty"`
	RequestID             string `json:"request_id,omitempty"`
	SnapInSlug            string `json:"snap_in_slug,omitempty"`
	SyncRun               string `json:"sync_run,omitempty"`
	SyncRunID             string `json:"sync_run_id,omitempty"`
	SyncTier              string `json:"sync_tier,omitempty"`
	SyncUnit              string `json:"sync_unit,omitempty"`
	SyncUnitID            string `json:"sync_unit_id,omitempty"`
	UUID                  string `json:"uuid,omitempty"`
	WorkerDataURL         string `json:"worker_data_url,omitempty"`
}

// ConnectionData holds the external-system credentials.
type ConnectionData struct {
	Key     string `json:"key,omitempty"`
	OrgID   string `json:"org_id,omitempty"`
	OrgName string `json:"org_name,omitempty"`
	KeyType string `json:"key_type,omitempty"`
}

// ExecutionMetadata selects the function to run.
type ExecutionMetadata struct {
	RequestID    string `json:"request_id,omitempty"`
	FunctionName string `json:"function_name,omitempty"`
	EventType    string `json:"event_type,omitempty"`
	DevOrg       string `json:"devrev_endpoint,omitempty"`
}

// InputData carries function-level inputs.
type InputData struct {
	GlobalValues map[string]string `json:"global_values,omitempty"`
	EventSources map[string]string `json:"event_sources,omitempty"`
}

// ServiceAccountToken returns the platform token, or "" when absent.
func (e *Envelope) ServiceAccountToken() string {
	if e == nil || e.Context.Secrets == nil {
		return ""
	}
	return e.Context.Secrets[SecretServiceAccountToken]
}

// CallbackURL returns payload.event_context.callback_url, or "".
func (e *Envelope) CallbackURL() string {
	if e == nil || e.Payload == nil {
		return ""
	}
	return strings.TrimSpace(e.Payload.EventContext.CallbackURL)
}

// Connection returns the connection data, or the zero value when the
// payload is absent.
func (e *Envelope) Connection() ConnectionData {
	if e == nil || e.Payload == nil {
		return ConnectionData{}
	}
	return e.Payload.ConnectionData
}

// IsExtractionCapable reports whether the envelope carries a supported
// extraction event type and a non-empty service account token.
func (e *Envelope) IsExtractionCapable() bool {
	return e != nil && e.Payload != nil &&
		e.Payload.EventType.IsExtraction() &&
		e.ServiceAccountToken() != ""
}

// IsPushCapable reports whether a callback URL is present.
func (e *Envelope) IsPushCapable() bool {
	return e.CallbackURL() != ""
}

// IsFetchCapable reports whether the Wrike key and org id are present.
func (e *Envelope) IsFetchCapable() bool {
	c := e.Connection()
	return c.Key != "" && c.OrgID != ""
}

// ProjectID resolves the Wrike project (folder) an operation targets:
// input_data.global_values.project_id first, then the external sync unit.
func (e *Envelope) ProjectID() string {
	if e == nil {
		return ""
	}
	if id := strings.TrimSpace(e.InputData.GlobalValues["project_id"]); id != "" {
		return id
	}
	if e.Payload != nil {
		return strings.TrimSpace(e.Payload.EventContext.ExternalSyncUnitID)
	}
	return ""
}

// FunctionName returns execution_metadata.function_name.
func (e *Envelope) FunctionName() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.ExecutionMetadata.FunctionName)
}

// DecodeEvents decodes an invocation body. The platform historically wraps
// the single event in a JSON array; both a bare object and an array are
// accepted. Only the first element of an array is meaningful. An empty
// body or a literal null yields no events.
func DecodeEvents(body []byte) ([]Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var events []Envelope
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("decode event array: %w", err)
		}
		return events, nil
	}

	var ev Envelope
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return []Envelope{ev}, nil
}

// First returns the event a function should process, or nil when none
// were provided. Additional events are ignored.
func First(events []Envelope) *Envelope {
	if len(events) == 0 {
		return nil
	}
	return &events[0]
}
