// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main Bubble Tea model of the localchat TUI.

The model never owns conversation state. It renders snapshots of the
session store and turns key presses into store operations:

	enter            send the composer text
	alt+enter/ctrl+j insert a newline
	ctrl+n           new chat
	ctrl+d           delete the current chat
	tab/shift+tab    switch chats
	ctrl+o           model picker
	ctrl+y           copy the last reply
	pgup/pgdown      scroll the thread
	ctrl+c           quit

Sending runs in a tea.Cmd because the store blocks until the reply is
in. The store's change notifications arrive as stateChangedMsg, so the
user's message and the typing indicator show up before the reply does.
*/
package chat
