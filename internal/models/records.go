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

import "encoding/json"

// Item is anything that can be pushed to an Airdrop repo.
type Item interface {
	ItemID() string
}

// Task is a normalised Wrike task.
//
// The JSON serialisation is the record shape Airdrop maps through the
// initial domain mapping, so field names must stay in sync with
// static/external_domain_metadata.json.
type Task struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status"`
	Importance     string   `json:"importance"`
	CreatedDate    string   `json:"created_date"`
	UpdatedDate    string   `json:"updated_date"`
	CompletedDate  string   `json:"completed_date,omitempty"`
	DueDate        string   `json:"due_date,omitempty"`
	ParentIDs      []string `json:"parent_ids"`
	ResponsibleIDs []string `json:"responsible_ids"`
	AuthorIDs      []string `json:"author_ids"`
	CustomStatusID string   `json:"custom_status_id,omitempty"`
	Permalink      string   `json:"permalink,omitempty"`
}

func (t Task) ItemID() string { return t.ID }

// ContactProfile is one account membership of a Wrike contact.
type ContactProfile struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	External  bool   `json:"external"`
	Admin     bool   `json:"admin"`
	Owner     bool   `json:"owner"`
}

// Contact is a normalised Wrike contact (pushed as a user).
type Contact struct {
	ID          string           `json:"id"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Type        string           `json:"type"`
	Email       string           `json:"email,omitempty"`
	Title       string           `json:"title,omitempty"`
	CompanyName string           `json:"company_name,omitempty"`
	AvatarURL   string           `json:"avatar_url,omitempty"`
	Timezone    string           `json:"timezone,omitempty"`
	Locale      string           `json:"locale,omitempty"`
	Deleted     bool             `json:"deleted"`
	Profiles    []ContactProfile `json:"profiles"`
}

func (c Contact) ItemID() string { return c.ID }

// Attachment is a normalised Wrike attachment reference.
type Attachment struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	URL         string `json:"url,omitempty"`
	ParentID    string `json:"parent_id"`
	AuthorID    string `json:"author_id,omitempty"`
	CreatedDate string `json:"created_date"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

func (a Attachment) ItemID() string { return a.ID }

// ExternalSyncUnit is a Wrike project offered to the user as a sync scope.
type ExternalSyncUnit struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ItemCount   int    `json:"item_count,omitempty"`
	ItemType    string `json:"item_type"`
}

func (u ExternalSyncUnit) ItemID() string { return u.ID }

// Document wraps a static JSON document so it can be pushed as one item.
type Document struct {
	Name string         `json:"-"`
	Body map[string]any `json:"-"`
}

func (d Document) ItemID() string { return d.Name }

// MarshalJSON emits the document body verbatim.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Body)
}
