// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/app"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/profile"
)

func newProfileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the profile and preferences",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd, func(a *app.App) error {
					p := a.Profile.Profile()
					if opts.jsonOut {
						return NewJSONResponse("profile show", model.ProfileToRecord(p)).Print(cmd.OutOrStdout())
					}
					printProfile(cmd, p)
					return nil
				})
			},
		},
		newProfileSetCmd(opts),
	)
	return cmd
}

func printProfile(cmd *cobra.Command, p model.Profile) {
	out := cmd.OutOrStdout()
	st := newStyles(out)
	orNone := func(s string) string {
		if s == "" {
			return st.Dim.Render("(not set)")
		}
		return s
	}
	fmt.Fprintln(out, st.Title.Render("Profile"))
	fmt.Fprintln(out, st.field("Name", p.Name))
	fmt.Fprintln(out, st.field("Email", orNone(p.Email)))
	fmt.Fprintln(out, st.field("Avatar", orNone(p.Avatar)))
	fmt.Fprintln(out, st.field("Updated", p.UpdatedAt.Local().Format("2006-01-02 15:04")))
	fmt.Fprintln(out)

	prefs := p.Preferences
	fmt.Fprintln(out, st.Title.Render("Preferences"))
	fmt.Fprintln(out, st.field("Theme", string(prefs.Theme)))
	fmt.Fprintln(out, st.field("Language", prefs.Language))
	fmt.Fprintln(out, st.field("Auto save", strconv.FormatBool(prefs.AutoSave)))
	fmt.Fprintln(out, st.field("Default model", orNone(prefs.DefaultModel)))
	fmt.Fprintln(out, st.field("Max conversations", strconv.Itoa(prefs.MaxConversations)))
	fmt.Fprintln(out, st.field("Export format", string(prefs.ExportFormat)))
}

func newProfileSetCmd(opts *rootOptions) *cobra.Command {
	var name, email, avatar string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change profile fields",
		Example: `  localchat profile set --name "Ada" --email ada@example.com
  localchat profile set --avatar ""`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var u profile.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = &name
			}
			if flags.Changed("email") {
				u.Email = &email
			}
			if flags.Changed("avatar") {
				u.Avatar = &avatar
			}
			if u == (profile.ProfileUpdate{}) {
				return newValidationError("flags", "", "nothing to change", "localchat profile set --name Ada")
			}

			return opts.withApp(cmd, func(a *app.App) error {
				a.Profile.UpdateProfile(u)
				if opts.jsonOut {
					return NewJSONResponse("profile set", model.ProfileToRecord(a.Profile.Profile())).Print(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Profile updated")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL or path")
	return cmd
}

func newPrefsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"preferences"},
		Short:   "Change preferences",
	}

	var (
		theme, language, defaultModel, exportFormat string
		autoSave                                    bool
		maxConversations                            int
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change one or more preferences",
		Example: `  localchat prefs set --theme dark --max-conversations 20
  localchat prefs set --export-format md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var u profile.PreferencesUpdate
			flags := cmd.Flags()
			if flags.Changed("theme") {
				t := model.Theme(theme)
				u.Theme = &t
			}
			if flags.Changed("language") {
				u.Language = &language
			}
			if flags.Changed("auto-save") {
				u.AutoSave = &autoSave
			}
			if flags.Changed("default-model") {
				u.DefaultModel = &defaultModel
			}
			if flags.Changed("max-conversations") {
				u.MaxConversations = &maxConversations
			}
			if flags.Changed("export-format") {
				f := model.ExportFormat(exportFormat)
				u.ExportFormat = &f
			}
			if u == (profile.PreferencesUpdate{}) {
				return newValidationError("flags", "", "nothing to change", "localchat prefs set --theme dark")
			}

			return opts.withApp(cmd, func(a *app.App) error {
				if err := a.Profile.UpdatePreferences(u); err != nil {
					return err
				}
				if opts.jsonOut {
					return NewJSONResponse("prefs set", model.ProfileToRecord(a.Profile.Profile()).Preferences).Print(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Preferences updated")
				return nil
			})
		},
	}
	f := set.Flags()
	f.StringVar(&theme, "theme", "", "light, dark or auto")
	f.StringVar(&language, "language", "", "interface language code")
	f.BoolVar(&autoSave, "auto-save", true, "save conversations automatically")
	f.StringVar(&defaultModel, "default-model", "", "model selected on first start")
	f.IntVar(&maxConversations, "max-conversations", 0, "number of conversations to keep")
	f.StringVar(&exportFormat, "export-format", "", "json, txt or md")

	cmd.AddCommand(set)
	return cmd
}
