// Package card renders quotes and history records for the terminal.
package card

import (
	"fmt"
	"strings"
	"time"

	"instapoem/internal/history"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Theme is the visual treatment of a quote for one emotion.
type Theme struct {
	Font      string         `json:"font"` // serif, sans, mono
	Color     lipgloss.Color `json:"color"`
	Bold      bool           `json:"bold,omitempty"`
	Italic    bool           `json:"italic,omitempty"`
	Uppercase bool           `json:"uppercase,omitempty"`
}

var (
	neutralTheme = Theme{Font: "sans", Color: lipgloss.Color("#e5e7eb")}
	mutedColor   = lipgloss.Color("#9ca3af")
)

var themes = map[string]Theme{
	"Love":         {Font: "serif", Color: lipgloss.Color("#ec4899")},
	"Sadness":      {Font: "serif", Color: lipgloss.Color("#3b82f6")},
	"Happiness":    {Font: "sans", Color: lipgloss.Color("#eab308"), Bold: true},
	"Anger":        {Font: "sans", Color: lipgloss.Color("#dc2626"), Bold: true},
	"Fear":         {Font: "mono", Color: lipgloss.Color("#6366f1")},
	"Hope":         {Font: "serif", Color: lipgloss.Color("#22c55e"), Italic: true},
	"Peace / Calm": {Font: "serif", Color: lipgloss.Color("#14b8a6")},
	"Loneliness":   {Font: "mono", Color: lipgloss.Color("#6b7280")},
	"Motivation":   {Font: "sans", Color: lipgloss.Color("#f97316"), Bold: true, Uppercase: true},
}

// EmotionTheme returns the theme for emotion, or a neutral one.
func EmotionTheme(emotion string) Theme {
	if t, ok := themes[emotion]; ok {
		return t
	}
	return neutralTheme
}

// RenderQuote draws q as a bordered card styled for its emotion.
func RenderQuote(q history.Quote, width int) string {
	theme := EmotionTheme(q.SourceEmotion)
	if width < 20 {
		width = 20
	}

	text := q.Text
	if theme.Uppercase {
		text = strings.ToUpper(text)
	}
	textStyle := lipgloss.NewStyle().
		Foreground(theme.Color).
		Bold(theme.Bold).
		Italic(theme.Italic)
	labelStyle := lipgloss.NewStyle().Foreground(mutedColor)

	lines := []string{
		textStyle.Render("“" + text + "”"),
		"",
		labelStyle.Render("— " + emotionLabel(q.SourceEmotion)),
	}
	if q.TranslatedText != "" {
		lines = append(lines,
			"",
			labelStyle.Render(q.TranslatedLanguage+":"),
			lipgloss.NewStyle().Italic(true).Render(q.TranslatedText),
		)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Color).
		Padding(1, 2).
		Width(width - 2)

	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func emotionLabel(emotion string) string {
	if emotion == "" {
		return "Quote"
	}
	return emotion
}

// RecordMarkdown renders a record as markdown.
func RecordMarkdown(r history.Record) string {
	var sb strings.Builder

	title := r.ImageFileName
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "`%s` · created %s", r.ID, formatTime(r.CreatedAt))
	if r.ScheduledAt != nil {
		fmt.Fprintf(&sb, " · scheduled for **%s**", formatTime(*r.ScheduledAt))
	}
	sb.WriteString("\n\n")
	if !r.HasImage() {
		sb.WriteString("_Image unavailable_\n\n")
	}

	sb.WriteString("## Poem\n\n")
	for _, line := range strings.Split(strings.TrimRight(r.PoemText, "\n"), "\n") {
		fmt.Fprintf(&sb, "> %s  \n", line)
	}
	sb.WriteString("\n")

	if r.Caption != "" && r.Caption != r.PoemText {
		fmt.Fprintf(&sb, "## Caption\n\n%s\n\n", r.Caption)
	}
	if len(r.Hashtags) > 0 {
		tags := make([]string, len(r.Hashtags))
		for i, h := range r.Hashtags {
			tags[i] = "#" + strings.TrimPrefix(h, "#")
		}
		fmt.Fprintf(&sb, "**Hashtags:** %s\n\n", strings.Join(tags, " "))
	}

	if len(r.Quotes) > 0 {
		sb.WriteString("## Quotes\n\n")
		for _, q := range r.Quotes {
			fmt.Fprintf(&sb, "- **%s** `%s`: %s\n", emotionLabel(q.SourceEmotion), q.ID, q.Text)
			if q.TranslatedText != "" {
				fmt.Fprintf(&sb, "  - _%s:_ %s\n", q.TranslatedLanguage, q.TranslatedText)
			}
		}
	}
	return sb.String()
}

// RenderRecord renders a record's markdown for the terminal.
func RenderRecord(r history.Record, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	return renderer.Render(RecordMarkdown(r))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}
