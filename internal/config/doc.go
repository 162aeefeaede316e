// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for vakil.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.vakil/config.toml
//   - ~/.vakil/config.json
//   - Built-in defaults
//
// # Example
//
//	[api]
//	url = "http://localhost:8000"
//	timeout_secs = 120
//	rate_per_sec = 5
//
//	[storage]
//	backend = "sqlite"
//
//	[speech]
//	synthesize = true
//	language = "hi-IN"
//
//	[ui]
//	theme = "auto"
//
// # Environment Variables
//
// VAKIL_API_URL, VAKIL_DATA_DIR, VAKIL_STORAGE, VAKIL_THEME,
// VAKIL_LANGUAGE and VAKIL_SPEECH override the matching fields.
package config
