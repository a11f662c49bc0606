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

// Package wrike is a minimal client for the Wrike REST API v4. It fetches
// projects, tasks, contacts and attachments and normalises them into the
// record shapes in package models.
package wrike

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/wrikesync/snapin/internal/failure"
	"github.com/wrikesync/snapin/internal/metrics"
	"github.com/wrikesync/snapin/internal/models"
)

const (
	// DefaultBaseURL is the public Wrike API endpoint.
	DefaultBaseURL = "https://www.wrike.com/api/v4"

	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second
)

// taskFields are the optional task fields Wrike omits unless asked.
var taskFields = []string{
	"description",
	"responsibleIds",
	"authorIds",
	"parentIds",
	"customFields",
}

// Client issues authenticated requests to Wrike.
type Client struct {
	httpClient *http.Client
	baseURL    string
	hasKey     bool
}

// NewClient creates a client authenticating with apiKey as a bearer
// token. An empty baseURL uses DefaultBaseURL.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = DefaultTimeout

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		hasKey:     apiKey != "",
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

// FetchProjectTasks returns every task under the project, including
// descendants and subtasks.
func (c *Client) FetchProjectTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	if projectID == "" {
		return nil, failure.New(failure.InputInvalid, "project id is required")
	}

	q := url.Values{}
	q.Set("descendants", "true")
	q.Set("subTasks", "true")
	q.Set("fields", fieldList(taskFields))

	data, err := c.getData(ctx, "/folders/"+url.PathEscape(projectID)+"/tasks", q)
	if err != nil {
		return nil, err
	}

	var raw []wrikeTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed(fmt.Errorf("decode tasks: %w", err))
	}

	tasks := make([]models.Task, 0, len(raw))
	for _, t := range raw {
		tasks = append(tasks, t.normalize())
	}

	return tasks, nil
}

// FetchContacts returns all contacts visible to the key.
func (c *Client) FetchContacts(ctx context.Context) ([]models.Contact, error) {
	data, err := c.getData(ctx, "/contacts", nil)
	if err != nil {
		return nil, err
	}

	var raw []wrikeContact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed(fmt.Errorf("decode contacts: %w", err))
	}

	contacts := make([]models.Contact, 0, len(raw))
	for _, ct := range raw {
		contacts = append(contacts, ct.normalize())
	}
	return contacts, nil
}

// FetchProjects returns the projects offered as external sync units.
func (c *Client) FetchProjects(ctx context.Context) ([]models.ExternalSyncUnit, error) {
	q := url.Values{}
	q.Set("project", "true")

	data, err := c.getData(ctx, "/folders", q)
	if err != nil {
		return nil, err
	}

	var raw []wrikeFolder
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed(fmt.Errorf("decode projects: %w", err))
	}

	units := make([]models.ExternalSyncUnit, 0, len(raw))
	for _, f := range raw {
		units = append(units, f.normalize())
	}
	return units, nil
}

// FetchProjectAttachments returns attachment references for a project and
// its descendants.
func (c *Client) FetchProjectAttachments(ctx context.Context, projectID string) ([]models.Attachment, error) {
	if projectID == "" {
		return nil, failure.New(failure.InputInvalid, "project id is required")
	}

	q := url.Values{}
	q.Set("withUrls", "true")

	data, err := c.getData(ctx, "/folders/"+url.PathEscape(projectID)+"/attachments", q)
	if err != nil {
		return nil, err
	}

	var raw []wrikeAttachment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed(fmt.Errorf("decode attachments: %w", err))
	}

	attachments := make([]models.Attachment, 0, len(raw))
	for _, a := range raw {
		attachments = append(attachments, a.normalize())
	}
	return attachments, nil
}

// getData performs a GET and returns the "data" array of the response
// envelope.
func (c *Client) getData(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if !c.hasKey {
		return nil, failure.New(failure.Unauthenticated, "Wrike API key is required")
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveOutbound("wrike", 0, started)
		return nil, failure.Wrap(failure.TransportFailure, err,
			fmt.Sprintf("Wrike request %s failed: %v", path, err))
	}
	defer resp.Body.Close()
	metrics.ObserveOutbound("wrike", resp.StatusCode, started)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Wrap(failure.TransportFailure, err, fmt.Sprintf("read Wrike response: %v", err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, failure.Newf(failure.NotFound,
			"Wrike API returned HTTP %d for %s", resp.StatusCode, path).
			WithDetail("status_code", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, failure.Newf(failure.TransportFailure,
			"Wrike API returned HTTP %d for %s", resp.StatusCode, path).
			WithDetail("status_code", resp.StatusCode).
			WithDetail("response", snippet(body))
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, malformed(fmt.Errorf("decode response: %w", err))
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || data[0] != '[' {
		return nil, malformed(fmt.Errorf("expected data array in response from %s", path))
	}
	return data, nil
}

func malformed(err error) error {
	return failure.Wrap(failure.MalformedResponse, err, "Invalid response format: "+err.Error())
}

// fieldList renders Wrike's JSON-array style field parameter.
func fieldList(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + f + `"`
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func snippet(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
