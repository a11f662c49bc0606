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

// EventType is an inbound Airdrop event type.
type EventType string

const (
	EventExternalSyncUnitsStart EventType = "EXTRACTION_EXTERNAL_SYNC_UNITS_START"
	EventMetadataStart          EventType = "EXTRACTION_METADATA_START"
	EventDataStart              EventType = "EXTRACTION_DATA_START"
	EventDataContinue           EventType = "EXTRACTION_DATA_CONTINUE"
	EventDataDelete             EventType = "EXTRACTION_DATA_DELETE"
	EventAttachmentsStart       EventType = "EXTRACTION_ATTACHMENTS_START"
	EventAttachmentsContinue    EventType = "EXTRACTION_ATTACHMENTS_CONTINUE"
	EventAttachmentsDelete      EventType = "EXTRACTION_ATTACHMENTS_DELETE"
)

// ExtractionEventTypes is the fixed allow-list of extraction events, in the
// order they are reported to callers.
var ExtractionEventTypes = []EventType{
	EventExternalSyncUnitsStart,
	EventMetadataStart,
	EventDataStart,
	EventDataContinue,
	EventDataDelete,
	EventAttachmentsStart,
	EventAttachmentsContinue,
	EventAttachmentsDelete,
}

// IsExtraction reports whether t is in the extraction allow-list.
func (t EventType) IsExtraction() bool {
	for _, et := range ExtractionEventTypes {
		if t == et {
			return true
		}
	}
	return false
}

// ExtractionEventTypeNames returns the allow-list as plain strings.
func ExtractionEventTypeNames() []string {
	names := make([]string, len(ExtractionEventTypes))
	for i, et := range ExtractionEventTypes {
		names[i] = string(et)
	}
	return names
}

// LifecycleEventType is an outbound event reported to the callback URL.
type LifecycleEventType string

const (
	ExternalSyncUnitsDone  LifecycleEventType = "EXTRACTION_EXTERNAL_SYNC_UNITS_DONE"
	ExternalSyncUnitsError LifecycleEventType = "EXTRACTION_EXTERNAL_SYNC_UNITS_ERROR"
	MetadataDone           LifecycleEventType = "EXTRACTION_METADATA_DONE"
	MetadataError          LifecycleEventType = "EXTRACTION_METADATA_ERROR"
	DataDone               LifecycleEventType = "EXTRACTION_DATA_DONE"
	DataError              LifecycleEventType = "EXTRACTION_DATA_ERROR"
	DataDeleteDone         LifecycleEventType = "EXTRACTION_DATA_DELETE_DONE"
	DataDeleteError        LifecycleEventType = "EXTRACTION_DATA_DELETE_ERROR"
	AttachmentsDone        LifecycleEventType = "EXTRACTION_ATTACHMENTS_DONE"
	AttachmentsError       LifecycleEventType = "EXTRACTION_ATTACHMENTS_ERROR"
	AttachmentsDeleteDone  LifecycleEventType = "EXTRACTION_ATTACHMENTS_DELETE_DONE"
	AttachmentsDeleteError LifecycleEventType = "EXTRACTION_ATTACHMENTS_DELETE_ERROR"
)

// LifecycleEvent is the body POSTed to the callback URL.
type LifecycleEvent struct {
	EventType    LifecycleEventType `json:"event_type"`
	EventContext EventContext       `json:"event_context"`
	EventData    *EventData         `json:"event_data,omitempty"`
}

// EventData is the optional lifecycle payload.
type EventData struct {
	ExternalSyncUnits []ExternalSyncUnit `json:"external_sync_units,omitempty"`
	Artifacts         []Artifact         `json:"artifacts,omitempty"`
	Error             *ErrorRecord       `json:"error,omitempty"`
}

// ErrorRecord describes why a phase failed.
type ErrorRecord struct {
	Message string `json:"message"`
}

// Artifact references a batch of pushed records.
type Artifact struct {
	ID        string `json:"id"`
	ItemType  string `json:"item_type"`
	ItemCount int    `json:"item_count"`
}
