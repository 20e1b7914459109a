// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/app"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/util"
)

// ModelRow is one model in `models --json`.
type ModelRow struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
	ModifiedAt string `json:"modifiedAt"`
	Selected   bool   `json:"selected"`
}

// ModelsResult is the --json payload of models.
type ModelsResult struct {
	Reachable bool       `json:"reachable"`
	Selected  string     `json:"selected"`
	Models    []ModelRow `json:"models"`
}

func newModelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the Ollama server offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				ctx := cmd.Context()
				reachable := a.Ollama.Client().CheckRunning(ctx) == nil
				models := a.LoadModels(ctx)

				res := ModelsResult{Reachable: reachable, Selected: a.Chat.SelectedModel()}
				for _, m := range models {
					res.Models = append(res.Models, ModelRow{
						Name:       m.Name,
						Size:       m.Size,
						Digest:     m.Digest,
						ModifiedAt: model.FormatTime(m.ModifiedAt),
						Selected:   m.Name == res.Selected,
					})
				}
				if opts.jsonOut {
					return NewJSONResponse("models", res).Print(cmd.OutOrStdout())
				}
				printModels(cmd, res, models)
				return nil
			})
		},
	}
}

func printModels(cmd *cobra.Command, res ModelsResult, models []model.ModelInfo) {
	out := cmd.OutOrStdout()
	st := newStyles(out)
	if !res.Reachable {
		fmt.Fprintln(out, st.Warning.Render("Ollama is not reachable; showing placeholder models."))
	}
	for _, m := range models {
		marker := "  "
		name := util.PadWidth(m.Name, 28)
		if m.Name == res.Selected {
			marker = st.Current.Render("* ")
			name = st.Current.Render(name)
		}
		fmt.Fprintf(out, "%s%s %s %s\n", marker, name,
			st.Value.Render(util.PadWidth(m.FormatSize(), 10)),
			st.Dim.Render(m.ModifiedAt.Local().Format("2006-01-02")))
	}
}

func newModelCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the selected model",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "select <name>",
		Short: "Select the model new messages go to",
		Long: `Select the model new messages go to.

When the current conversation already has messages, a new conversation
bound to the model is started. An empty conversation is switched over.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return opts.withApp(cmd, func(a *app.App) error {
				models := a.LoadModels(cmd.Context())
				if !slices.Contains(model.ModelNames(models), name) {
					st := newStyles(cmd.ErrOrStderr())
					fmt.Fprintln(cmd.ErrOrStderr(), st.Warning.Render(
						fmt.Sprintf("warning: %q is not among the listed models", name)))
				}
				a.Chat.SelectModel(name)

				if opts.jsonOut {
					return NewJSONResponse("model select", map[string]string{"selected": name}).Print(cmd.OutOrStdout())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", name)
				return nil
			})
		},
	})
	return cmd
}
