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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wrikesync/snapin/internal/app"
	"github.com/wrikesync/snapin/internal/config"
	"github.com/wrikesync/snapin/internal/logging"
)

// builder assembles the application for one command run.
type builder func(ctx context.Context, logLevel string) (*app.App, error)

func buildFromEnv(ctx context.Context, logLevel string) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	// Logs go to stderr so stdout carries only the function response.
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return app.Build(ctx, cfg, logger)
}

func newRootCmd(build builder) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "snapctl",
		Short: "Wrike snap-in function runner",
		Long: `snapctl runs Wrike snap-in functions locally.

Configuration is read from CONFIG_PATH (default config.yaml) and the
environment, exactly as the server does.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(newFunctionsCmd(build, &logLevel))
	root.AddCommand(newInvokeCmd(build, &logLevel))
	return root
}

func newFunctionsCmd(build builder, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the registered functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := build(cmd.Context(), *logLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, name := range a.Registry.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newInvokeCmd(build builder, logLevel *string) *cobra.Command {
	var eventPath string

	cmd := &cobra.Command{
		Use:   "invoke <function>",
		Short: "Invoke a function with an event envelope",
		Long: `Invoke runs one function against the event in --event ("-" reads stdin)
and prints the JSON response. The event may be a single envelope or an
array, of which only the first element is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readEvent(cmd.InOrStdin(), eventPath)
			if err != nil {
				return err
			}

			a, err := build(cmd.Context(), *logLevel)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Registry.InvokeBody(cmd.Context(), args[0], body)
			if err != nil {
				return fmt.Errorf("decode event %s: %w", eventPath, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("encode response: %w", err)
			}
			if resp.Error != "" {
				return fmt.Errorf("%s", resp.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&eventPath, "event", "e", "", "path to the event JSON file, or - for stdin")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func readEvent(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return body, nil
}
