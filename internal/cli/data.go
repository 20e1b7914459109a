// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/app"
	"github.com/jeranaias/localchat/internal/model"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var dir, format string
	var stdout bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the profile and all conversations to a backup file",
		Long: `Write the profile and all conversations to a backup file.

The file is named chat-export-YYYY-MM-DD with an extension matching the
format. Only JSON exports can be imported again.`,
		Example: `  localchat export
  localchat export --format md --dir ~/Documents
  localchat export --stdout > backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := model.ExportFormat(format)
			if format != "" && !f.Valid() {
				return newValidationError("format", format, "must be json, txt or md", "--format md")
			}

			return opts.withApp(cmd, func(a *app.App) error {
				if f == "" {
					f = a.Profile.Profile().Preferences.ExportFormat
				}
				sessions := a.Chat.Sessions()

				if stdout {
					return a.Profile.ExportTo(cmd.OutOrStdout(), sessions, f)
				}

				target := dir
				if target == "" {
					target = a.ExportDir()
				}
				path, err := a.Profile.ExportAs(sessions, target, f)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return NewJSONResponse("export", map[string]any{
						"path":          path,
						"conversations": len(sessions),
					}).Print(cmd.OutOrStdout())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d conversation(s) to %s\n", len(sessions), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory (default <data dir>/exports)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "json, txt or md (default: the export-format preference)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write to stdout instead of a file")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore a JSON backup made with export",
		Long: `Restore a JSON backup made with export.

The profile in the backup replaces the current profile. Conversations in the
backup replace all current conversations. A backup that does not parse
changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				wroteSessions, err := a.Profile.ImportFile(args[0])
				if err != nil {
					return err
				}
				if wroteSessions {
					if err := a.Chat.Load(); err != nil {
						return err
					}
				}
				n := len(a.Chat.Sessions())
				if opts.jsonOut {
					return NewJSONResponse("import", map[string]any{
						"conversations": n,
						"replaced":      wroteSessions,
					}).Print(cmd.OutOrStdout())
				}
				if wroteSessions {
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %d conversation(s)\n", n)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Imported profile; conversations unchanged")
				}
				return nil
			})
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all conversations, the profile and preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if opts.jsonOut || !isTerminal(cmd.InOrStdin()) {
					return newValidationError("confirmation", "", "reset needs --yes when not interactive", "localchat reset --yes")
				}
				ok, err := confirm(cmd, "Delete all conversations and reset your profile?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			return opts.withApp(cmd, func(a *app.App) error {
				a.ClearAll()
				if opts.jsonOut {
					return NewJSONResponse("reset", map[string]bool{"cleared": true}).Print(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All data cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on the command's streams.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, errors.New("no answer read")
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
