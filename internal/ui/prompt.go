package ui

import "fmt"

// RenderPrompt renders the interactive prompt: "user:path$ " (or "# " for
// root), colored according to the active theme. Rendering details are not
// part of the execution engine's contract (spec §1 non-goals) — this is a
// cosmetic front-end to the REPL driver only.
func RenderPrompt(user, path string, isRoot bool) string {
	marker := "$"
	if isRoot {
		marker = "#"
	}
	return fmt.Sprintf("%s:%s%s ",
		PromptUserStyle.Render(user),
		PromptPathStyle.Render(path),
		MutedStyle.Render(marker))
}
