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

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/wrikesync/snapin/internal/function"
	"github.com/wrikesync/snapin/internal/validate"
)

func TestHandler(t *testing.T) {
	registry := function.NewRegistry(function.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	h := handler(registry)

	resp, err := h(context.Background(), json.RawMessage(`{"execution_metadata":{"function_name":"can_invoke"}}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	res, ok := resp.FunctionResult.(validate.Result)
	if !ok || !res.CanInvoke {
		t.Errorf("function_result = %#v", resp.FunctionResult)
	}

	resp, err = h(context.Background(), json.RawMessage(`"nope"`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !strings.HasPrefix(resp.Error, "invalid event payload") {
		t.Errorf("error = %q", resp.Error)
	}
}
