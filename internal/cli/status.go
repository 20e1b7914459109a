// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/app"
	"github.com/jeranaias/localchat/internal/config"
)

// StatusInfo is the --json payload of status.
type StatusInfo struct {
	Version       string `json:"version"`
	ConfigFile    string `json:"configFile"`
	DataDir       string `json:"dataDir"`
	Backend       string `json:"backend"`
	StorePath     string `json:"storePath,omitempty"`
	OllamaURL     string `json:"ollamaUrl"`
	OllamaRunning bool   `json:"ollamaRunning"`
	OllamaError   string `json:"ollamaError,omitempty"`
	Models        int    `json:"models"`
	SelectedModel string `json:"selectedModel"`
	Conversations int    `json:"conversations"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var start bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show storage and Ollama server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				ctx := cmd.Context()
				client := a.Ollama.Client()

				if start {
					progress := cmd.ErrOrStderr()
					if opts.jsonOut {
						progress = nil
					}
					if err := client.EnsureRunning(ctx, progress); err != nil {
						return err
					}
				}

				info := StatusInfo{
					Version:   Version,
					DataDir:   a.DataDir(),
					Backend:   a.Config.Storage.Backend,
					StorePath: a.StorePath(),
					OllamaURL: client.BaseURL(),
				}
				info.ConfigFile = opts.configPath
				if info.ConfigFile == "" {
					info.ConfigFile, _ = config.ConfigPath()
				}
				if err := client.CheckRunning(ctx); err != nil {
					info.OllamaError = err.Error()
				} else {
					info.OllamaRunning = true
					if models, err := client.ListModels(ctx); err == nil {
						info.Models = len(models)
					}
				}
				info.SelectedModel = a.Chat.SelectedModel()
				info.Conversations = len(a.Chat.Sessions())

				if opts.jsonOut {
					return NewJSONResponse("status", info).Print(cmd.OutOrStdout())
				}
				printStatus(cmd, info)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "start 'ollama serve' when it is not running")
	return cmd
}

func printStatus(cmd *cobra.Command, info StatusInfo) {
	out := cmd.OutOrStdout()
	st := newStyles(out)

	fmt.Fprintln(out, st.Title.Render("localchat "+info.Version))
	fmt.Fprintln(out, st.field("Config", info.ConfigFile))
	fmt.Fprintln(out, st.field("Data dir", info.DataDir))
	store := info.Backend
	if info.StorePath != "" {
		store += " (" + info.StorePath + ")"
	}
	fmt.Fprintln(out, st.field("Storage", store))
	fmt.Fprintln(out)

	if info.OllamaRunning {
		fmt.Fprintf(out, "%s %s\n", st.status("ok"), st.field("Ollama", info.OllamaURL))
		fmt.Fprintln(out, st.field("Models", strconv.Itoa(info.Models)))
	} else {
		fmt.Fprintf(out, "%s %s\n", st.status("fail"), st.field("Ollama", info.OllamaURL))
		fmt.Fprintln(out, st.Dim.Render("  "+info.OllamaError))
		fmt.Fprintln(out, st.Dim.Render("  Replies will be placeholders. Run 'localchat status --start' or 'ollama serve'."))
	}
	selected := info.SelectedModel
	if selected == "" {
		selected = "(none)"
	}
	fmt.Fprintln(out, st.field("Selected model", selected))
	fmt.Fprintln(out, st.field("Conversations", strconv.Itoa(info.Conversations)))
}
