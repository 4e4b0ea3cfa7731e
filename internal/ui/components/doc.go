// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the interactive widgets of the promptforge TUI.

# Components

Select (select.go) - Dropdown picker with keyboard and mouse support. The
value is either controlled by the owner or kept internally.

DismissHub (dismiss.go) - Routes mouse presses to open overlays so that a
press outside an overlay closes it. Each open Select holds one listener.

AuthModal (auth_modal.go) - Login and register dialog with tabbed forms and
inline validation. It talks to an Authenticator and reports the outcome with
AuthResultMsg and AuthSuccessMsg.

# Usage

All components take a *styles.Theme:

	hub := components.NewDismissHub()
	sel := components.NewSelect(opts,
		components.WithDismissHub(hub),
		components.WithOnChange(func(v string) { tool = v }),
		components.WithTheme(theme),
	)

Mouse messages go to hub.Dispatch before the owning model's own routing.
*/
package components
