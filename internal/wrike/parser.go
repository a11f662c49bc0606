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

package wrike

import "github.com/wrikesync/snapin/internal/models"

// wrikeTask represents the relevant fields of a Wrike task.
type wrikeTask struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Importance     string   `json:"importance"`
	CreatedDate    string   `json:"createdDate"`
	UpdatedDate    string   `json:"updatedDate"`
	CompletedDate  string   `json:"completedDate"`
	ParentIDs      []string `json:"parentIds"`
	ResponsibleIDs []string `json:"responsibleIds"`
	AuthorIDs      []string `json:"authorIds"`
	CustomStatusID string   `json:"customStatusId"`
	Permalink      string   `json:"permalink"`
	Dates          struct {
		Due string `json:"due"`
	} `json:"dates"`
}

func (t wrikeTask) normalize() models.Task {
	return models.Task{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Importance:     t.Importance,
		CreatedDate:    t.CreatedDate,
		UpdatedDate:    t.UpdatedDate,
		CompletedDate:  t.CompletedDate,
		DueDate:        t.Dates.Due,
		ParentIDs:      orEmpty(t.ParentIDs),
		ResponsibleIDs: orEmpty(t.ResponsibleIDs),
		AuthorIDs:      orEmpty(t.AuthorIDs),
		CustomStatusID: t.CustomStatusID,
		Permalink:      t.Permalink,
	}
}

type wrikeContact struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Type        string `json:"type"`
	PrimaryMail string `json:"primaryEmail"`
	Title       string `json:"title"`
	CompanyName string `json:"companyName"`
	AvatarURL   string `json:"avatarUrl"`
	Timezone    string `json:"timezone"`
	Locale      string `json:"locale"`
	Deleted     bool   `json:"deleted"`
	Profiles    []struct {
		AccountID string `json:"accountId"`
		Email     string `json:"email"`
		Role      string `json:"role"`
		External  bool   `json:"external"`
		Admin     bool   `json:"admin"`
		Owner     bool   `json:"owner"`
	} `json:"profiles"`
}

func (c wrikeContact) normalize() models.Contact {
	profiles := make([]models.ContactProfile, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		profiles = append(profiles, models.ContactProfile{
			AccountID: p.AccountID,
			Email:     p.Email,
			Role:      p.Role,
			External:  p.External,
			Admin:     p.Admin,
			Owner:     p.Owner,
		})
	}

	// Older accounts have no primaryEmail; fall back to the first profile.
	email := c.PrimaryMail
	if email == "" && len(profiles) > 0 {
		email = profiles[0].Email
	}

	return models.Contact{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Type:        c.Type,
		Email:       email,
		Title:       c.Title,
		CompanyName: c.CompanyName,
		AvatarURL:   c.AvatarURL,
		Timezone:    c.Timezone,
		Locale:      c.Locale,
		Deleted:     c.Deleted,
		Profiles:    profiles,
	}
}

type wrikeFolder struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (f wrikeFolder) normalize() models.ExternalSyncUnit {
	return models.ExternalSyncUnit{
		ID:          f.ID,
		Name:        f.Title,
		Description: f.Description,
		ItemType:    "tasks",
	}
}

type wrikeAttachment struct {
	ID          string `json:"id"`
	AuthorID    string `json:"authorId"`
	Name        string `json:"name"`
	CreatedDate string `json:"createdDate"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	TaskID      string `json:"taskId"`
	FolderID    string `json:"folderId"`
	URL         string `json:"url"`
}

func (a wrikeAttachment) normalize() models.Attachment {
	parent := a.TaskID
	if parent == "" {
		parent = a.FolderID
	}
	return models.Attachment{
		ID:          a.ID,
		FileName:    a.Name,
		URL:         a.URL,
		ParentID:    parent,
		AuthorID:    a.AuthorID,
		CreatedDate: a.CreatedDate,
		Size:        a.Size,
		ContentType: a.ContentType,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
