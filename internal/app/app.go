// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app builds the application context: configuration, logger,
// key-value store, inference service and the chat and profile stores.
//
// There is no package-level state. Each entry point (the TUI, each CLI
// command, each test) constructs its own App and closes it when done.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/kv"
	"github.com/jeranaias/localchat/internal/logging"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/profile"
)

// Options control how an App is built.
type Options struct {
	// Config is the loaded configuration. Nil means config.Default().
	Config *config.Config

	// LogConsole, when set, also receives log output.
	LogConsole io.Writer

	// Logger overrides logger construction, mainly for tests.
	Logger *zap.Logger
}

// App is the application context.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	KV      kv.Store
	Ollama  *ollama.Service
	Chat    *chat.Store
	Profile *profile.Store

	dataDir  string
	closeLog func() error
}

// New builds and loads an App. Unreadable stored data is logged and
// replaced by defaults; New only fails when the store cannot be opened.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, dataDir: dataDir, closeLog: func() error { return nil }}

	if opts.Logger != nil {
		a.Logger = opts.Logger
	} else {
		logFile, err := cfg.LogFile()
		if err != nil {
			return nil, err
		}
		logger, closeLog, err := logging.New(logging.Options{
			Level:      cfg.Log.Level,
			File:       logFile,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Console:    opts.LogConsole,
		})
		if err != nil {
			return nil, err
		}
		a.Logger = logger
		a.closeLog = closeLog
	}

	backend := kv.Backend(cfg.Storage.Backend)
	store, err := kv.Open(backend, dataDir)
	if err != nil {
		_ = a.closeLog()
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	a.KV = store

	client := ollama.NewClient(&ollama.ClientConfig{
		BaseURL: cfg.Ollama.URL,
		Timeout: cfg.Timeout(),
	})
	a.Ollama = ollama.NewService(client, a.Logger)
	a.Chat = chat.New(store, a.Ollama, chat.Options{Logger: a.Logger})
	a.Profile = profile.New(store, profile.Options{
		Logger: a.Logger,
		OnPreferences: func(p model.Preferences) {
			a.Chat.SetMaxConversations(p.MaxConversations)
		},
	})

	a.load()
	a.Logger.Info("started",
		zap.String("backend", string(backend)),
		zap.String("data_dir", dataDir),
		zap.String("ollama", client.BaseURL()))
	return a, nil
}

// load reads the profile first so the conversation cap is known when the
// sessions come in.
func (a *App) load() {
	_ = a.Profile.Load()
	_ = a.Chat.Load()
	a.Chat.SetMaxConversations(a.Profile.Profile().Preferences.MaxConversations)
}

// DataDir is the resolved data directory.
func (a *App) DataDir() string {
	return a.dataDir
}

// StorePath is the on-disk store location, empty for the memory backend.
func (a *App) StorePath() string {
	return kv.Path(kv.Backend(a.Config.Storage.Backend), a.dataDir)
}

// ExportDir is where exports land by default.
func (a *App) ExportDir() string {
	return filepath.Join(a.dataDir, "exports")
}

// LoadModels lists models and applies the startup model choice. The
// configured default model wins over the first listed model, but never
// over a model the user picked in an earlier run.
func (a *App) LoadModels(ctx context.Context) []model.ModelInfo {
	hadSelection := a.Chat.SelectedModel() != ""
	models := a.Chat.LoadModels(ctx)
	if hadSelection {
		return models
	}

	want := a.Config.DefaultModel
	if want == "" {
		want = a.Profile.Profile().Preferences.DefaultModel
	}
	if want != "" && want != a.Chat.SelectedModel() {
		a.Chat.SelectModel(want)
	}
	return models
}

// Reload re-reads everything from the store, picking up writes made by
// another process.
func (a *App) Reload() {
	if r, ok := a.KV.(kv.Reloader); ok {
		changed, err := r.Reload()
		if err != nil {
			a.Logger.Warn("store reload failed", zap.Error(err))
			return
		}
		if !changed {
			return
		}
	}
	a.Logger.Debug("store changed on disk, reloading")
	a.load()
}

// Watch reloads the App whenever the on-disk store file changes. It
// blocks until ctx is done. Stores that are not file based have nothing
// to watch and Watch returns at once.
func (a *App) Watch(ctx context.Context, onReload func()) error {
	if _, ok := a.KV.(kv.Reloader); !ok {
		return nil
	}
	path := a.StorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return kv.Watch(ctx, path, kv.DefaultWatchDebounce, func() {
		a.Reload()
		if onReload != nil {
			onReload()
		}
	})
}

// ClearAll wipes conversations, the remembered model, the profile and the
// onboarding flag.
func (a *App) ClearAll() {
	a.Profile.Reset()
	a.Chat.Reset()
	a.Logger.Info("all data cleared")
}

// Close releases the store and flushes the log.
func (a *App) Close() error {
	var errs []error
	if a.KV != nil {
		if err := a.KV.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if err := a.closeLog(); err != nil {
		errs = append(errs, fmt.Errorf("close log: %w", err))
	}
	return errors.Join(errs...)
}
