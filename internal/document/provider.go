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

// Package document serves the pre-built external domain metadata and
// initial domain mapping JSON documents.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/wrikesync/snapin/internal/failure"
)

const (
	MetadataFile = "external_domain_metadata.json"
	MappingFile  = "initial_domain_mapping.json"
)

// Artifact describes one static document and the top-level keys it must
// carry. Keys are dot-separated paths.
type Artifact struct {
	Title    string
	File     string
	Required []string
}

var (
	Metadata = Artifact{
		Title:    "External domain metadata",
		File:     MetadataFile,
		Required: []string{"record_types.tasks", "record_types.users"},
	}
	Mapping = Artifact{
		Title:    "Initial domain mapping",
		File:     MappingFile,
		Required: []string{"format_version", "additional_mappings.record_type_mappings"},
	}
)

// Result is the rendered outcome of a generate call.
type Result struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Mapping  map[string]any `json:"mapping,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// Provider reads documents from a directory.
type Provider struct {
	dir string
	log *slog.Logger
}

// NewProvider creates a Provider rooted at dir. An empty dir uses
// DefaultDir.
func NewProvider(dir string, log *slog.Logger) *Provider {
	if dir == "" {
		dir = DefaultDir()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Provider{dir: dir, log: log}
}

// DefaultDir is the "static" directory next to the running binary.
func DefaultDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "static"
	}
	return filepath.Join(filepath.Dir(exe), "static")
}

// Dir returns the directory documents are read from.
func (p *Provider) Dir() string { return p.dir }

// GenerateMetadata renders the external domain metadata.
func (p *Provider) GenerateMetadata() Result {
	return p.generate(Metadata, func(r *Result, doc map[string]any) { r.Metadata = doc })
}

// GenerateMapping renders the initial domain mapping.
func (p *Provider) GenerateMapping() Result {
	return p.generate(Mapping, func(r *Result, doc map[string]any) { r.Mapping = doc })
}

func (p *Provider) generate(a Artifact, attach func(*Result, map[string]any)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Message: fmt.Sprintf("Error generating %s: %v", strings.ToLower(a.Title), r),
				Details: map[string]any{"error": fmt.Sprintf("%v\n%s", r, debug.Stack())},
			}
		}
	}()

	doc, err := p.Load(a)
	if err != nil {
		p.log.Warn("static document unavailable", "file", a.File, "error", err)
		return Result{Message: err.Error(), Details: failure.DetailsOf(err)}
	}

	res = Result{Success: true, Message: "Successfully generated " + strings.ToLower(a.Title)}
	attach(&res, doc)
	return res
}

// Load reads, parses and checks a document.
func (p *Provider) Load(a Artifact) (map[string]any, error) {
	path := filepath.Join(p.dir, a.File)

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, failure.New(failure.NotFound, a.Title+" file not found").
			WithDetail("file_path", path)
	}
	if err != nil {
		return nil, failure.Wrap(failure.Internal, err,
			fmt.Sprintf("Error generating %s: %v", strings.ToLower(a.Title), err)).
			WithDetail("error", fmt.Sprintf("%+v", err))
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, failure.Wrap(failure.Internal, err,
			fmt.Sprintf("Error generating %s: %v", strings.ToLower(a.Title), err))
	}

	var missing []string
	for _, key := range a.Required {
		if !hasPath(doc, key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, failure.Newf(failure.InputInvalid, "Invalid %s: missing required %s",
			strings.ToLower(a.Title), strings.Join(missing, ", ")).
			WithDetail("missing_fields", missing)
	}

	return doc, nil
}

// hasPath reports whether the dot-separated path resolves to a non-null
// value.
func hasPath(doc map[string]any, path string) bool {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return false
		}
	}
	return true
}
