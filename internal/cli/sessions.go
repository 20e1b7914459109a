// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/app"
	"github.com/jeranaias/localchat/internal/export"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/util"
)

// shortIDLen is how much of a session ID the list shows. Any unique
// prefix is accepted wherever an ID is expected.
const shortIDLen = 8

// SessionRow is one session in `sessions list --json`.
type SessionRow struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Model     string `json:"modelId"`
	Messages  int    `json:"messages"`
	UpdatedAt string `json:"updatedAt"`
	Current   bool   `json:"current"`
}

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "List and manage conversations",
	}
	cmd.AddCommand(
		newSessionsListCmd(opts),
		newSessionsNewCmd(opts),
		newSessionsSwitchCmd(opts),
		newSessionsDeleteCmd(opts),
		newSessionsShowCmd(opts),
	)
	return cmd
}

func newSessionsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				st := a.Chat.Snapshot()
				rows := make([]SessionRow, 0, len(st.Sessions))
				for _, s := range st.Sessions {
					rows = append(rows, SessionRow{
						ID:        s.ID,
						Title:     s.Title,
						Model:     s.ModelID,
						Messages:  len(s.Messages),
						UpdatedAt: model.FormatTime(s.UpdatedAt),
						Current:   s.ID == st.CurrentSessionID,
					})
				}
				if opts.jsonOut {
					return NewJSONResponse("sessions list", rows).Print(cmd.OutOrStdout())
				}
				printSessions(cmd, st.Sessions, st.CurrentSessionID)
				return nil
			})
		},
	}
}

func printSessions(cmd *cobra.Command, sessions []model.Session, currentID string) {
	out := cmd.OutOrStdout()
	st := newStyles(out)
	if len(sessions) == 0 {
		fmt.Fprintln(out, st.Dim.Render("No conversations yet."))
		return
	}
	for _, s := range sessions {
		marker := "  "
		title := util.PadWidth(util.TruncateWidth(util.SingleLine(s.Title), 40), 40)
		if s.ID == currentID {
			marker = st.Current.Render("* ")
			title = st.Current.Render(title)
		}
		fmt.Fprintf(out, "%s%s  %s  %s  %s\n",
			marker,
			st.Dim.Render(util.PrefixRunes(s.ID, shortIDLen)),
			title,
			st.Value.Render(util.PadWidth(util.TruncateWidth(s.ModelID, 16), 16)),
			st.Dim.Render(fmt.Sprintf("%3d msgs  %s", len(s.Messages), s.UpdatedAt.Local().Format("2006-01-02 15:04"))))
	}
}

// resolveSession maps an ID or unique ID prefix to a full session ID.
func resolveSession(a *app.App, ref string) (string, error) {
	var matches []string
	for _, s := range a.Chat.Sessions() {
		if s.ID == ref {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", &NotFoundError{Resource: "session", ID: ref}
	case 1:
		return matches[0], nil
	default:
		return "", newValidationError("session id", ref,
			fmt.Sprintf("prefix matches %d conversations", len(matches)), "use more characters of the ID")
	}
}

func newSessionsNewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new empty conversation and make it current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				id := a.Chat.CreateSession(opts.model)
				if opts.jsonOut {
					return NewJSONResponse("sessions new", map[string]string{"id": id}).Print(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func newSessionsSwitchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id>",
		Short: "Make a conversation current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				id, err := resolveSession(a, args[0])
				if err != nil {
					return err
				}
				if err := a.Chat.SwitchSession(id); err != nil {
					return err
				}
				sess, _ := a.Chat.CurrentSession()
				if opts.jsonOut {
					return NewJSONResponse("sessions switch", map[string]string{"id": id, "modelId": sess.ModelID}).Print(cmd.OutOrStdout())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Switched to %q (%s)\n", sess.Title, sess.ModelID)
				return nil
			})
		},
	}
}

func newSessionsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete conversations",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				ids := make([]string, 0, len(args))
				for _, ref := range args {
					id, err := resolveSession(a, ref)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
				for _, id := range ids {
					if err := a.Chat.DeleteSession(id); err != nil {
						return err
					}
				}
				if opts.jsonOut {
					return NewJSONResponse("sessions delete", map[string][]string{"deleted": ids}).Print(cmd.OutOrStdout())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d conversation(s)\n", len(ids))
				return nil
			})
		},
	}
}

func newSessionsShowCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a conversation (default: the current one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.jsonOut {
				format = string(model.ExportJSON)
			}
			exp, err := export.ForFormat(model.ExportFormat(format), &export.Options{IncludeTimestamps: true})
			if err != nil {
				return newValidationError("format", format, err.Error(), "--format md")
			}

			return opts.withApp(cmd, func(a *app.App) error {
				var sess model.Session
				if len(args) == 0 {
					cur, ok := a.Chat.CurrentSession()
					if !ok {
						return &NotFoundError{Resource: "session", ID: "current"}
					}
					sess = cur
				} else {
					id, err := resolveSession(a, args[0])
					if err != nil {
						return err
					}
					if sess, err = a.Chat.Session(id); err != nil {
						return err
					}
				}

				bundle := export.Build(a.Profile.Profile(), []model.Session{sess}, sess.UpdatedAt)
				data, err := exp.Export(&bundle)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "txt", "output format: txt, md or json")
	return cmd
}
