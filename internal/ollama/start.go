// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

const (
	// startupWait is how long a freshly spawned server gets to answer.
	startupWait = 10 * time.Second

	// startupPoll paces the health checks while waiting.
	startupPoll = 500 * time.Millisecond
)

// EnsureRunning checks the server and, when it is down and the URL points
// at this machine, starts "ollama serve" in the background and waits for
// it to answer. Progress lines go to progress when it is non-nil.
func (c *Client) EnsureRunning(ctx context.Context, progress io.Writer) error {
	if err := c.CheckRunning(ctx); err == nil {
		return nil
	}
	if progress == nil {
		progress = io.Discard
	}

	path, err := findOllamaExecutable()
	if err != nil {
		return &ClientError{Type: ErrTypeNotRunning, Message: "failed to find Ollama executable", Cause: err}
	}

	cmd := exec.Command(path, "serve")
	cmd.Env = os.Environ()
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return &ClientError{
			Type:    ErrTypeNotRunning,
			Message: fmt.Sprintf("failed to start Ollama (path: %s)", path),
			Cause:   err,
		}
	}
	// The server outlives us.
	_ = cmd.Process.Release()

	fmt.Fprintf(progress, "Starting Ollama service...\n")
	return c.waitUntilRunning(ctx, progress, path, startupWait)
}

// waitUntilRunning polls the health endpoint until it answers or wait
// runs out.
func (c *Client) waitUntilRunning(ctx context.Context, progress io.Writer, path string, wait time.Duration) error {
	started := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	poll := rate.NewLimiter(rate.Every(startupPoll), 1)
	var lastErr error
	for poll.Wait(waitCtx) == nil {
		checkCtx, cancelCheck := context.WithTimeout(waitCtx, startupPoll)
		lastErr = c.CheckRunning(checkCtx)
		cancelCheck()
		if lastErr == nil {
			fmt.Fprintf(progress, "Ollama service started (%.1fs)\n", time.Since(started).Seconds())
			return nil
		}
	}

	if ctx.Err() != nil {
		return &ClientError{Type: ErrTypeNotRunning, Message: "Ollama startup cancelled", Cause: ctx.Err()}
	}
	return &ClientError{
		Type:    ErrTypeNotRunning,
		Message: fmt.Sprintf("Ollama started but not responding after %s (path: %s)", wait, path),
		Cause:   lastErr,
	}
}

// findOllamaExecutable looks in PATH, then in the usual install locations.
func findOllamaExecutable() (string, error) {
	if path, err := exec.LookPath(executableName); err == nil {
		return path, nil
	}
	for _, p := range installPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH or %s", executableName, filepath.Join("~", ".local", "bin"))
}
