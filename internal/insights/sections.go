// ABOUTME: Markdown splitting of AI responses into titled sections, and rendering back to markdown.
// ABOUTME: Headings start new sections; a canned greeting-only opening section is dropped.
package insights

import (
	"strings"

	"github.com/2389-research/freewrite/internal/models"
)

var greetings = []string{
	"hey, thanks for showing me this. my thoughts:",
	"hey thanks for showing me this. my thoughts:",
}

// ParseSections splits markdown into sections at heading lines (#, ##, ...).
// Text before the first heading becomes an untitled section. Markdown with no
// headings yields a single untitled section.
func ParseSections(markdown string) []models.InsightSection {
	var sections []models.InsightSection
	var title *string
	var lines []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(lines, "\n"))
		if content != "" || title != nil {
			sections = append(sections, models.InsightSection{Title: title, Content: content})
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			lines = append(lines, line)
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			flush()
			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			title = &heading
			lines = nil
			continue
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	flush()

	if len(sections) == 0 {
		if content := strings.TrimSpace(markdown); content != "" {
			sections = append(sections, models.InsightSection{Content: content})
		}
	}
	return sections
}

// StripGreeting drops an untitled first section that opens with the canned greeting.
func StripGreeting(sections []models.InsightSection) []models.InsightSection {
	if len(sections) == 0 || sections[0].Title != nil {
		return sections
	}
	opening := strings.ToLower(strings.TrimSpace(sections[0].Content))
	for _, g := range greetings {
		if strings.HasPrefix(opening, g) {
			return sections[1:]
		}
	}
	return sections
}

// Render joins sections back into markdown for copying or display.
func Render(sections []models.InsightSection) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		var b strings.Builder
		if title := s.TitleText(); title != "" {
			b.WriteString("## ")
			b.WriteString(title)
			b.WriteString("\n\n")
		}
		b.WriteString(s.Content)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}
