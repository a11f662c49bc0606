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

// Package push probes a callback URL with a small JSON payload to confirm
// the outbound channel works.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/wrikesync/snapin/internal/failure"
	"github.com/wrikesync/snapin/internal/metrics"
	"github.com/wrikesync/snapin/internal/models"
	"github.com/wrikesync/snapin/internal/validate"
)

const (
	// DefaultTimeout bounds the single probe request.
	DefaultTimeout = 10 * time.Second

	probeMessage = "Test data push from Wrike snap-in"

	// isoMillis matches the millisecond ISO-8601 form the platform emits.
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// Result is the outcome of a probe.
type Result struct {
	CanPush bool           `json:"can_push"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Payload is the body POSTed to the callback URL.
type Payload struct {
	TestData  bool   `json:"test_data"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Prober pushes test payloads.
type Prober struct {
	client *http.Client
	log    *slog.Logger
	now    func() time.Time
}

// NewProber creates a Prober. A nil client gets a DefaultTimeout client.
func NewProber(client *http.Client, log *slog.Logger) *Prober {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Prober{client: client, log: log, now: time.Now}
}

// Probe POSTs one test payload to the envelope's callback URL and
// classifies the outcome. It does not retry.
func (p *Prober) Probe(ctx context.Context, ev *models.Envelope) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Message: fmt.Sprintf("Error validating data push: %v", r)}
		}
	}()

	p.log.Info("can_push_data received event", "has_event", ev != nil)

	if err := validate.CheckPush(ev); err != nil {
		return Result{Message: err.Error(), Details: failure.DetailsOf(err)}
	}

	callbackURL := ev.CallbackURL()
	status, body, err := p.send(ctx, callbackURL)
	switch {
	case failure.Is(err, failure.TransportFailure):
		p.log.Warn("callback push failed", "url", callbackURL, "error", err)
		return Result{
			Message: fmt.Sprintf("Failed to push data to callback URL: %s", err.Error()),
			Details: map[string]any{
				"error_code":    errorCode(err),
				"error_message": err.Error(),
				"response":      nil,
			},
		}
	case err != nil:
		p.log.Error("callback push errored", "url", callbackURL, "error", err)
		return Result{Message: fmt.Sprintf("Error validating data push: %s", err.Error())}
	}

	details := map[string]any{"status_code": status, "response_data": body}
	if status >= 200 && status < 300 {
		return Result{
			CanPush: true,
			Message: fmt.Sprintf("Successfully pushed data to callback URL: %s", callbackURL),
			Details: details,
		}
	}
	return Result{
		Message: fmt.Sprintf("Received non-success status code when pushing data: %d", status),
		Details: details,
	}
}

// send performs the POST. Errors from the transport are returned as
// TransportFailure; anything else is Internal.
func (p *Prober) send(ctx context.Context, callbackURL string) (int, any, error) {
	payload, err := json.Marshal(Payload{
		TestData:  true,
		Timestamp: p.now().UTC().Format(isoMillis),
		Message:   probeMessage,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("marshal probe payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		metrics.ObserveOutbound("callback", 0, started)
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return 0, nil, failure.Wrap(failure.TransportFailure, urlErr, "")
		}
		return 0, nil, err
	}
	defer resp.Body.Close()
	metrics.ObserveOutbound("callback", resp.StatusCode, started)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, failure.Wrap(failure.TransportFailure, err, "")
	}
	return resp.StatusCode, decodeBody(raw), nil
}

// decodeBody returns parsed JSON when possible, otherwise the raw text.
func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}

// errorCode maps a transport error onto a short errno-style code.
func errorCode(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return "ECONNREFUSED"
		case syscall.ECONNRESET:
			return "ECONNRESET"
		case syscall.EHOSTUNREACH:
			return "EHOSTUNREACH"
		case syscall.ENETUNREACH:
			return "ENETUNREACH"
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "ENOTFOUND"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "ETIMEDOUT"
	}
	if errors.Is(err, context.Canceled) {
		return "ECANCELED"
	}
	return "ERR_NETWORK"
}
