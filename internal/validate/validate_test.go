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

package validate

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrikesync/snapin/internal/failure"
	"github.com/wrikesync/snapin/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// panicHandler is a slog.Handler whose Handle always panics.
type panicHandler struct{}

func (panicHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (panicHandler) Handle(context.Context, slog.Record) error { panic("log sink exploded") }
func (h panicHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h panicHandler) WithGroup(string) slog.Handler           { return h }

func extractionEvent(eventType models.EventType, token string) *models.Envelope {
	ev := &models.Envelope{
		Payload: &models.Payload{
			EventType: eventType,
			EventContext: models.EventContext{
				CallbackURL: "https://callback.example.com",
			},
		},
	}
	if token != "" {
		ev.Context.Secrets = map[string]string{models.SecretServiceAccountToken: token}
	}
	return ev
}

func TestCanExtract_NoEvents(t *testing.T) {
	res := New(quietLogger()).CanExtract(models.First(nil))

	assert.False(t, res.CanInvoke)
	assert.Equal(t, MsgNoEvents, res.Message)
}

func TestCanExtract_MissingPayload(t *testing.T) {
	tests := []struct {
		name string
		ev   *models.Envelope
	}{
		{name: "nil payload", ev: &models.Envelope{}},
		{name: "empty event type", ev: &models.Envelope{Payload: &models.Payload{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(quietLogger()).CanExtract(tt.ev)

			assert.False(t, res.CanInvoke)
			assert.Equal(t, MsgPayloadMissing, res.Message)
			require.NotNil(t, res.Details)
			assert.Same(t, tt.ev, res.Details["received_event"])
		})
	}
}

func TestCanExtract_AllowedEventTypes(t *testing.T) {
	v := New(quietLogger())
	for _, et := range models.ExtractionEventTypes {
		t.Run(string(et), func(t *testing.T) {
			res := v.CanExtract(extractionEvent(et, "token"))
			assert.True(t, res.CanInvoke)
			assert.Equal(t, MsgExtractionOK, res.Message)
			assert.Nil(t, res.Details)
		})
	}
}

func TestCanExtract_UnsupportedEventType(t *testing.T) {
	res := New(quietLogger()).CanExtract(extractionEvent("WEBHOOK_EVENT", "token"))

	assert.False(t, res.CanInvoke)
	assert.Contains(t, res.Message, "WEBHOOK_EVENT")
	assert.Equal(t, "WEBHOOK_EVENT", res.Details["received_event_type"])
	assert.Equal(t, []string{
		"EXTRACTION_EXTERNAL_SYNC_UNITS_START",
		"EXTRACTION_METADATA_START",
		"EXTRACTION_DATA_START",
		"EXTRACTION_DATA_CONTINUE",
		"EXTRACTION_DATA_DELETE",
		"EXTRACTION_ATTACHMENTS_START",
		"EXTRACTION_ATTACHMENTS_CONTINUE",
		"EXTRACTION_ATTACHMENTS_DELETE",
	}, res.Details["supported_event_types"])
}

func TestCanExtract_MissingToken(t *testing.T) {
	v := New(quietLogger())

	for _, et := range models.ExtractionEventTypes {
		res := v.CanExtract(extractionEvent(et, ""))
		assert.False(t, res.CanInvoke)
		assert.Contains(t, res.Message, "missing required authentication context")
		assert.Equal(t, []string{"context.secrets.service_account_token"}, res.Details["missing_fields"])
	}
}

func TestCanExtract_EmptySecretsMap(t *testing.T) {
	ev := extractionEvent(models.EventDataStart, "")
	ev.Context.Secrets = map[string]string{models.SecretServiceAccountToken: ""}

	res := New(quietLogger()).CanExtract(ev)
	assert.False(t, res.CanInvoke)
	assert.Equal(t, MsgMissingAuth, res.Message)
}

// TestCanExtract_RecoversPanics verifies that an unexpected panic is
// converted into a failed result instead of escaping.
func TestCanExtract_RecoversPanics(t *testing.T) {
	v := New(slog.New(panicHandler{}))

	var res Result
	require.NotPanics(t, func() {
		res = v.CanExtract(extractionEvent(models.EventDataStart, "token"))
	})

	assert.False(t, res.CanInvoke)
	assert.True(t, strings.HasPrefix(res.Message, "Error validating extraction: "))
	assert.Contains(t, res.Message, "log sink exploded")
	assert.Contains(t, res.Details["error"], "goroutine")
}

func TestCanInvoke_AlwaysSucceeds(t *testing.T) {
	v := New(quietLogger())

	for _, ev := range []*models.Envelope{nil, {}, extractionEvent("ANYTHING", "")} {
		res := v.CanInvoke(ev)
		assert.True(t, res.CanInvoke)
		assert.Equal(t, MsgInvokeOK, res.Message)
	}
}

// TestCanInvoke_DoesNotRecover verifies the liveness probe lets unexpected
// panics propagate to its caller.
func TestCanInvoke_DoesNotRecover(t *testing.T) {
	v := New(slog.New(panicHandler{}))

	assert.Panics(t, func() {
		v.CanInvoke(extractionEvent(models.EventDataStart, "token"))
	})
}

func TestCheckFetch(t *testing.T) {
	err := CheckFetch(nil)
	require.Error(t, err)
	assert.Equal(t, MsgNoEvents, err.Error())

	ev := &models.Envelope{Payload: &models.Payload{ConnectionData: models.ConnectionData{Key: "k"}}}
	err = CheckFetch(ev)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Unauthenticated))
	assert.Equal(t, []string{"payload.connection_data.org_id"}, failure.DetailsOf(err)["missing_fields"])

	ev.Payload.ConnectionData.OrgID = "org"
	assert.NoError(t, CheckFetch(ev))
}

func TestCheckPush(t *testing.T) {
	assert.True(t, failure.Is(CheckPush(nil), failure.InputInvalid))

	ev := extractionEvent(models.EventDataStart, "")
	assert.NoError(t, CheckPush(ev))

	ev.Payload.EventContext.CallbackURL = "   "
	err := CheckPush(ev)
	require.Error(t, err)
	assert.Equal(t, MsgMissingCallback, err.Error())
}

// TestChecks_AgreeWithEnvelopePredicates pins the checks to the envelope's
// capability predicates.
func TestChecks_AgreeWithEnvelopePredicates(t *testing.T) {
	conn := func(key, org string) *models.Envelope {
		return &models.Envelope{Payload: &models.Payload{
			ConnectionData: models.ConnectionData{Key: key, OrgID: org},
		}}
	}
	fetchCases := []*models.Envelope{
		conn("k", "o"), conn("", "o"), conn("k", ""), conn("", ""), {},
	}
	for i, ev := range fetchCases {
		assert.Equal(t, ev.IsFetchCapable(), CheckFetch(ev) == nil, "fetch case %d", i)
	}

	extractionCases := []*models.Envelope{
		extractionEvent(models.EventDataStart, "tok"),
		extractionEvent(models.EventDataStart, ""),
		extractionEvent("EXTRACTION_UNKNOWN", "tok"),
		extractionEvent("", "tok"),
		{},
	}
	for i, ev := range extractionCases {
		assert.Equal(t, ev.IsExtractionCapable(), CheckExtraction(ev) == nil, "extraction case %d", i)
	}
}
