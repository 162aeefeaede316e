// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the vakil command line: the interactive chat and
// one-shot subcommands built with cobra.
//
// # Key Types
//
//   - Env: configuration, store, registry and client for one invocation
//   - ChatCLI: liner-backed line editing with persistent history
//   - Flags: persistent command-line flags
//
// # Commands
//
//	vakil                      interactive chat
//	vakil ask "question"       one question in a new chat
//	vakil ask -d -t Affidavit  generate a document
//	vakil sessions list|show|delete|select
//	vakil export [--all] [-o dir]
//	vakil keyboard             print the Devanagari layout
//	vakil languages            speech languages offered by the server
//	vakil config               effective configuration
//
// Inside the chat, lines starting with "/" are commands; /help lists them.
package cli
