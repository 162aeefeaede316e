// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

// Suggestion is an intro-screen prompt card.
type Suggestion struct {
	Title  string
	Prompt string
}

// Suggestions are shown on an empty chat.
var Suggestions = []Suggestion{
	{Title: "Legal Guidance", Prompt: "What is the procedure for filing a consumer complaint?"},
	{Title: "Case Analysis", Prompt: "Is my case strong enough to take to court?"},
}
