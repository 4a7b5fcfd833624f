package handler

import (
	"strings"

	"banana-bot/internal/game"
)

// Renderer turns a game result into a chat message.
type Renderer interface {
	Render(res *game.Result) string
}

// TextRenderer renders results as plain text: the title, the description,
// then one "Name: value" line per field. Inline fields share a line.
type TextRenderer struct{}

func (TextRenderer) Render(res *game.Result) string {
	if res == nil {
		return ""
	}
	var lines []string
	if res.Title != "" {
		lines = append(lines, "🎮 "+res.Title)
	}
	if res.Description != "" {
		lines = append(lines, res.Description)
	}

	var inline []string
	flush := func() {
		if len(inline) > 0 {
			lines = append(lines, strings.Join(inline, " | "))
			inline = nil
		}
	}
	for _, f := range res.Fields {
		entry := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(f.Name), ":")) + ": " + f.Value
		if f.Inline {
			inline = append(inline, entry)
			continue
		}
		flush()
		lines = append(lines, entry)
	}
	flush()
	return strings.Join(lines, "\n")
}
