// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the chat client core together.
//
// Client owns the pending input buffer and connects it to the session
// registry, the on-screen keyboard, the voice recorder and the dispatch
// pipeline. Presentation code (the CLI) talks only to Client.
//
// # Usage
//
//	reg := session.NewRegistry(store, logger)
//	_ = reg.Load()
//	c := app.New(app.Options{Registry: reg, Service: svc, Logger: logger})
//	c.NewChat()
//	c.SetInput("What is a lease?")
//	turn, _ := c.Send(ctx)
package app
