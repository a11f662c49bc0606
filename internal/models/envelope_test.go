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

package models

import (
	"encoding/json"
	"testing"
)

const sampleEvent = `{
	"context": {
		"snap_in_id": "snap-1",
		"snap_in_version_id": "ver-1",
		"secrets": {"service_account_token": "tok"}
	},
	"payload": {
		"event_type": "EXTRACTION_DATA_START",
		"event_context": {"callback_url": "https://cb.example.com", "external_sync_unit_id": "IEAAPROJ"},
		"connection_data": {"key": "wrike-key", "org_id": "ORG1", "key_type": "bearer"}
	},
	"execution_metadata": {"function_name": "extraction"}
}`

// TestDecodeEvents verifies both the bare-object and legacy array forms.
func TestDecodeEvents(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLen   int
		wantError bool
	}{
		{name: "object", body: sampleEvent, wantLen: 1},
		{name: "array", body: "[" + sampleEvent + "," + sampleEvent + "]", wantLen: 2},
		{name: "empty array", body: "[]", wantLen: 0},
		{name: "empty body", body: "   ", wantLen: 0},
		{name: "null", body: " null ", wantLen: 0},
		{name: "invalid", body: "{not json", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := DecodeEvents([]byte(tt.body))
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(events) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(events), tt.wantLen)
			}
		})
	}
}

// TestFirst verifies that only index 0 is handed on.
func TestFirst(t *testing.T) {
	if First(nil) != nil {
		t.Error("First(nil) should be nil")
	}

	events := []Envelope{
		{ExecutionMetadata: ExecutionMetadata{FunctionName: "a"}},
		{ExecutionMetadata: ExecutionMetadata{FunctionName: "b"}},
	}
	if got := First(events).FunctionName(); got != "a" {
		t.Errorf("FunctionName = %q, want a", got)
	}
}

// TestCapabilities verifies the envelope capability invariants.
func TestCapabilities(t *testing.T) {
	var ev Envelope
	if err := json.Unmarshal([]byte(sampleEvent), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !ev.IsExtractionCapable() {
		t.Error("expected extraction-capable")
	}
	if !ev.IsPushCapable() {
		t.Error("expected push-capable")
	}
	if !ev.IsFetchCapable() {
		t.Error("expected fetch-capable")
	}
	if ev.ProjectID() != "IEAAPROJ" {
		t.Errorf("ProjectID = %q", ev.ProjectID())
	}

	ev.Context.Secrets = nil
	if ev.IsExtractionCapable() {
		t.Error("missing token should not be extraction-capable")
	}

	ev.Payload.EventType = "WEBHOOK_EVENT"
	if ev.IsExtractionCapable() {
		t.Error("unsupported type should not be extraction-capable")
	}

	ev.Payload.ConnectionData.OrgID = ""
	if ev.IsFetchCapable() {
		t.Error("missing org id should not be fetch-capable")
	}

	ev.Payload = nil
	if ev.IsPushCapable() {
		t.Error("missing payload should not be push-capable")
	}
}

// TestProjectID_GlobalValueWins verifies input_data takes precedence.
func TestProjectID_GlobalValueWins(t *testing.T) {
	ev := Envelope{
		Payload:   &Payload{EventContext: EventContext{ExternalSyncUnitID: "unit"}},
		InputData: InputData{GlobalValues: map[string]string{"project_id": " proj "}},
	}
	if got := ev.ProjectID(); got != "proj" {
		t.Errorf("ProjectID = %q, want proj", got)
	}
}

// TestExtractionEventTypeNames verifies the fixed allow-list.
func TestExtractionEventTypeNames(t *testing.T) {
	names := ExtractionEventTypeNames()
	if len(names) != 8 {
		t.Fatalf("expected 8 extraction event types, got %d", len(names))
	}
	if names[0] != "EXTRACTION_EXTERNAL_SYNC_UNITS_START" || names[7] != "EXTRACTION_ATTACHMENTS_DELETE" {
		t.Errorf("unexpected order: %v", names)
	}
}

// TestDocumentMarshal verifies documents serialise verbatim.
func TestDocumentMarshal(t *testing.T) {
	doc := Document{Name: "meta", Body: map[string]any{"schema_version": "v0.2.0"}}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"schema_version":"v0.2.0"}` {
		t.Errorf("got %s", data)
	}
}
