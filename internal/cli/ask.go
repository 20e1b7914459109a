// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/app"
	"github.com/jeranaias/localchat/internal/model"
)

// AskResult is the --json payload of ask.
type AskResult struct {
	SessionID string `json:"sessionId"`
	Model     string `json:"model"`
	Reply     string `json:"reply"`
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var newSession bool

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send a message into the current conversation and print the reply",
		Long: `Send a message into the current conversation and print the reply.

The prompt is taken from the arguments, or from stdin when no arguments are
given and stdin is not a terminal.

Examples:
  localchat ask "What is a goroutine?"
  localchat ask --new -m mistral "Start over"
  git diff | localchat ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if prompt == "" && !isTerminal(cmd.InOrStdin()) {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				prompt = string(data)
			}
			if strings.TrimSpace(prompt) == "" {
				return newValidationError("prompt", "", "prompt is empty", `localchat ask "hello"`)
			}

			return opts.withApp(cmd, func(a *app.App) error {
				res, err := ask(cmd, opts, a, prompt, newSession)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return NewJSONResponse("ask", res).Print(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderReply(cmd.OutOrStdout(), res.Reply))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&newSession, "new", "n", false, "start a new conversation first")
	return cmd
}

func ask(cmd *cobra.Command, opts *rootOptions, a *app.App, prompt string, newSession bool) (AskResult, error) {
	ctx := cmd.Context()
	a.LoadModels(ctx)
	// A fresh session first, so --model retags it instead of forking.
	if newSession {
		a.Chat.CreateSession("")
	}
	if opts.model != "" {
		a.Chat.SelectModel(opts.model)
	}
	if a.Chat.SelectedModel() == "" {
		return AskResult{}, errors.New("no model available; pull one with 'ollama pull <model>'")
	}

	if err := a.Chat.SendMessage(ctx, prompt); err != nil {
		return AskResult{}, err
	}

	cur, ok := a.Chat.CurrentSession()
	if !ok {
		return AskResult{}, errors.New("no current conversation after sending")
	}
	last, ok := cur.LastMessage()
	if !ok || last.Role != model.RoleAssistant {
		return AskResult{}, errors.New("no reply received")
	}
	return AskResult{SessionID: cur.ID, Model: last.ModelUsed, Reply: last.Content}, nil
}
