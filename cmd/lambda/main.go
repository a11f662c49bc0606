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

// Wrike snap-in Lambda function
//
// Runs the same function registry as the HTTP server inside AWS Lambda.
// The invocation payload is the raw event envelope; the function name is
// read from execution_metadata.function_name.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wrikesync/snapin/internal/app"
	"github.com/wrikesync/snapin/internal/config"
	"github.com/wrikesync/snapin/internal/function"
	"github.com/wrikesync/snapin/internal/logging"
)

func handler(registry *function.Registry) func(ctx context.Context, body json.RawMessage) (function.Response, error) {
	return func(ctx context.Context, body json.RawMessage) (function.Response, error) {
		resp, err := registry.InvokeBody(ctx, "", body)
		if err != nil {
			return function.Response{Error: "invalid event payload: " + err.Error()}, nil
		}
		return resp, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("failed to initialise snap-in", "error", err)
		os.Exit(1)
	}

	lambda.Start(handler(a.Registry))
}
