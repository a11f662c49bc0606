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

// snapctl invokes snap-in functions locally against a saved event file.
// Intended for replaying platform events during development.
//
// Usage:
//
//	go run ./cmd/snapctl/ functions
//	go run ./cmd/snapctl/ invoke fetch_project_tasks --event event.json
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(buildFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
