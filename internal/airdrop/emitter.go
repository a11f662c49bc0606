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

package airdrop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wrikesync/snapin/internal/failure"
	"github.com/wrikesync/snapin/internal/metrics"
	"github.com/wrikesync/snapin/internal/models"
)

// DefaultEmitTimeout bounds a single lifecycle callback.
const DefaultEmitTimeout = 10 * time.Second

// Emitter POSTs lifecycle events to the platform callback URL.
type Emitter struct {
	client *http.Client
}

// NewEmitter creates an Emitter. A nil client gets a DefaultEmitTimeout
// client.
func NewEmitter(client *http.Client) *Emitter {
	if client == nil {
		client = &http.Client{Timeout: DefaultEmitTimeout}
	}
	return &Emitter{client: client}
}

// Send delivers ev to callbackURL, authenticating with token.
func (e *Emitter) Send(ctx context.Context, callbackURL, token string, ev models.LifecycleEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal lifecycle event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	started := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		metrics.ObserveOutbound("callback", 0, started)
		return failure.Wrap(failure.TransportFailure, err, fmt.Sprintf("emit %s: %v", ev.EventType, err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	metrics.ObserveOutbound("callback", resp.StatusCode, started)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure.Newf(failure.TransportFailure,
			"emit %s: callback returned HTTP %d", ev.EventType, resp.StatusCode).
			WithDetail("status_code", resp.StatusCode)
	}

	metrics.LifecycleEventsTotal.WithLabelValues(string(ev.EventType)).Inc()
	return nil
}
