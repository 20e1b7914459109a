// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/app"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/util"
)

// historyFile keeps the line-mode prompt history in the data dir.
const historyFile = "chat_history"

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one prompt line at a time. io.EOF ends the session.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// linerReader edits lines with history when stdin is a terminal.
type linerReader struct {
	line *liner.State
	path string
}

func newLinerReader(dataDir string) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	r := &linerReader{line: line, path: filepath.Join(dataDir, historyFile)}
	if f, err := os.Open(r.path); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history, owner-readable only, and restores the terminal.
func (r *linerReader) Close() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err == nil {
		if f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	return r.line.Close()
}

// pipedReader reads lines from a non-terminal stdin. The prompt is not
// echoed so the output stays a clean transcript.
type pipedReader struct {
	scanner *bufio.Scanner
}

func newPipedReader(in io.Reader) *pipedReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &pipedReader{scanner: s}
}

func (r *pipedReader) ReadLine(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *pipedReader) Close() error { return nil }

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat line by line without the full screen UI",
		Long: `Chat line by line without the full screen UI.

Each line you enter is sent into the current conversation. Lines starting
with "/" are commands:

  /help            show this list
  /new             start a new conversation
  /model [name]    show or switch the model
  /models          list available models
  /sessions        list conversations
  /switch <id>     switch conversation (ID prefix is enough)
  /history         print the current conversation
  /quit            leave (Ctrl+D works too)

Input history is kept in the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(a *app.App) error {
				var in lineReader
				if isTerminal(cmd.InOrStdin()) {
					in = newLinerReader(a.DataDir())
				} else {
					in = newPipedReader(cmd.InOrStdin())
				}
				defer in.Close()
				return runChat(cmd, opts, a, in)
			})
		},
	}
}

// chatREPL is one line-mode chat session.
type chatREPL struct {
	cmd *cobra.Command
	app *app.App
	out io.Writer
	st  styles
}

func runChat(cmd *cobra.Command, opts *rootOptions, a *app.App, in lineReader) error {
	ctx := cmd.Context()
	a.LoadModels(ctx)
	if opts.model != "" {
		a.Chat.SelectModel(opts.model)
	}

	r := &chatREPL{cmd: cmd, app: a, out: cmd.OutOrStdout(), st: newStyles(cmd.OutOrStdout())}
	if isTerminal(r.out) {
		r.banner()
	}

	for {
		input, err := in.ReadLine(r.st.User.Render("you> "))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		switch {
		case input == "":
			continue
		case strings.HasPrefix(input, "/"):
			if !r.command(input) {
				return nil
			}
			continue
		case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
			return nil
		}

		if err := r.send(input); err != nil {
			fmt.Fprintf(r.out, "%s %v\n", r.st.Error.Render("[ERROR]"), err)
		}
	}
}

func (r *chatREPL) banner() {
	name := r.app.Chat.SelectedModel()
	if name == "" {
		name = "(no model)"
	}
	fmt.Fprintln(r.out, r.st.Title.Render("localchat")+" "+r.st.Dim.Render("model "+name+", /help for commands"))
}

func (r *chatREPL) send(input string) error {
	if r.app.Chat.SelectedModel() == "" {
		return errors.New("no model available; pull one with 'ollama pull <model>'")
	}
	if err := r.app.Chat.SendMessage(r.cmd.Context(), input); err != nil {
		return err
	}
	cur, ok := r.app.Chat.CurrentSession()
	if !ok {
		return errors.New("no current conversation after sending")
	}
	last, ok := cur.LastMessage()
	if !ok || last.Role != model.RoleAssistant {
		return errors.New("no reply received")
	}
	fmt.Fprintln(r.out, renderReply(r.out, last.Content))
	return nil
}

// command runs a slash command and reports whether to keep going.
func (r *chatREPL) command(input string) bool {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		return false

	case "/help", "/h":
		fmt.Fprintln(r.out, r.cmd.Long)

	case "/new":
		r.app.Chat.CreateSession("")
		fmt.Fprintln(r.out, r.st.Dim.Render("Started a new conversation."))

	case "/model":
		if len(args) == 0 {
			fmt.Fprintln(r.out, r.st.field("Model", r.app.Chat.SelectedModel()))
			break
		}
		r.app.Chat.SelectModel(args[0])
		fmt.Fprintln(r.out, r.st.Dim.Render("Now using "+args[0]+"."))

	case "/models":
		selected := r.app.Chat.SelectedModel()
		for _, m := range r.app.Chat.Snapshot().AvailableModels {
			marker := "  "
			if m.Name == selected {
				marker = r.st.Current.Render("* ")
			}
			fmt.Fprintf(r.out, "%s%s %s\n", marker, util.PadWidth(m.Name, 28), r.st.Dim.Render(m.FormatSize()))
		}

	case "/sessions", "/ls":
		st := r.app.Chat.Snapshot()
		printSessions(r.cmd, st.Sessions, st.CurrentSessionID)

	case "/switch":
		if len(args) == 0 {
			fmt.Fprintln(r.out, r.st.Warning.Render("usage: /switch <id>"))
			break
		}
		id, err := resolveSession(r.app, args[0])
		if err == nil {
			err = r.app.Chat.SwitchSession(id)
		}
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", r.st.Error.Render("[ERROR]"), err)
			break
		}
		cur, _ := r.app.Chat.CurrentSession()
		fmt.Fprintln(r.out, r.st.Dim.Render("Switched to "+cur.Title))

	case "/history":
		cur, ok := r.app.Chat.CurrentSession()
		if !ok || len(cur.Messages) == 0 {
			fmt.Fprintln(r.out, r.st.Dim.Render("No messages yet."))
			break
		}
		for _, m := range cur.Messages {
			label := r.st.User.Render(m.Role.DisplayName() + ":")
			if m.Role == model.RoleAssistant {
				label = r.st.Reply.Render(m.Role.DisplayName() + ":")
			}
			fmt.Fprintln(r.out, label, m.Content)
		}

	default:
		fmt.Fprintf(r.out, "%s unknown command %s, try /help\n", r.st.Warning.Render("[WARN]"), name)
	}
	return true
}

// renderReply renders markdown for a color terminal and leaves the text
// alone otherwise.
func renderReply(out io.Writer, text string) string {
	if !colorsEnabled(out) {
		return text
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
