// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/app"
	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions are the persistent flags plus the hooks tests replace.
type rootOptions struct {
	configPath string
	model      string
	verbose    bool
	jsonOut    bool

	runTUI func(ctx context.Context, a *app.App) error
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	opts := &rootOptions{runTUI: func(ctx context.Context, a *app.App) error {
		return ui.Run(ctx, a, ui.Options{Version: Version})
	}}
	root := newRootCmd(opts)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		name := root.Name()
		if cmd != nil {
			name = cmd.CommandPath()
		}
		displayError(root.ErrOrStderr(), err, opts.jsonOut, name)
		return ExitCode(err)
	}
	return ExitSuccess
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "localchat",
		Short: "Chat with local Ollama models from the terminal",
		Long: `localchat is a terminal chat client for a local Ollama server.

Run it without arguments to open the chat UI. Conversations, the selected
model and your profile are kept in ~/.localchat between runs.

Examples:
  localchat                          Open the chat UI
  localchat ask "Explain goroutines" Ask from a script
  localchat chat                     Chat line by line, no full screen UI
  localchat sessions list            List conversations
  localchat model select mistral     Switch model
  localchat export --format md       Back up conversations`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !canRunTUI(cmd.InOrStdin(), cmd.OutOrStdout()) {
				return errors.New("the chat UI needs a terminal; use 'localchat ask' in scripts")
			}
			return opts.withApp(cmd, func(a *app.App) error {
				if opts.model != "" {
					a.Chat.SelectModel(opts.model)
				}
				return opts.runTUI(cmd.Context(), a)
			})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.localchat/config.toml)")
	flags.StringVarP(&opts.model, "model", "m", "", "model to use for this run")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "also log to stderr")
	flags.BoolVar(&opts.jsonOut, "json", false, "print machine readable JSON")

	root.AddCommand(
		newAskCmd(opts),
		newChatCmd(opts),
		newModelsCmd(opts),
		newModelCmd(opts),
		newSessionsCmd(opts),
		newProfileCmd(opts),
		newPrefsCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newResetCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// loadConfig reads the config file named by --config, or the default one.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

// withApp builds the application context, runs fn and closes it.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(a *app.App) error) (err error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	appOpts := app.Options{Config: cfg}
	if o.verbose {
		appOpts.LogConsole = cmd.ErrOrStderr()
	}
	a, err := app.New(appOpts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("shutdown: %w", cerr)
		}
	}()
	return fn(a)
}
