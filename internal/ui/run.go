// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui starts the localchat terminal interface.
package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/localchat/internal/app"
	"github.com/jeranaias/localchat/internal/ui/chat"
	"github.com/jeranaias/localchat/internal/ui/styles"
)

// Options tune the TUI.
type Options struct {
	Version string
}

// Run shows the chat UI until the user quits or ctx is done. While it
// runs, writes to the store file from other processes are picked up.
func Run(ctx context.Context, a *app.App, opts Options) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	theme := styles.NewTheme(a.Profile.Profile().Preferences.Theme)
	m := chat.New(chat.Deps{
		Ctx:        runCtx,
		Chat:       a.Chat,
		Profile:    a.Profile,
		LoadModels: a.LoadModels,
		Theme:      theme,
		Logger:     a.Logger.Named("ui"),
		Version:    opts.Version,
	})
	defer m.Close()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(runCtx),
	)

	// A failing watcher only costs live reload; it never ends the UI.
	g, watchCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		err := a.Watch(watchCtx, func() { p.Send(chat.ReloadedMsg{}) })
		if err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Warn("store watcher stopped", zap.Error(err))
		}
		return nil
	})

	_, err := p.Run()
	cancel()
	_ = g.Wait()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
