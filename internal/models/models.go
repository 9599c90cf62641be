// ABOUTME: Core data models for freewrite entries, categories, and insight sections.
// ABOUTME: Provides constructors, preview sentinels, and the preview derivation rule.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the kind of writing session an entry was started as.
type Category string

const (
	CategoryVent    Category = "Vent"
	CategoryExplore Category = "Explore"
	CategoryPlan    Category = "Plan"
)

// DefaultCategory is used when a filename carries no usable category tag.
const DefaultCategory = CategoryExplore

// Categories lists every valid category in display order.
var Categories = []Category{CategoryVent, CategoryExplore, CategoryPlan}

// Tag returns the one-letter filename tag for the category.
func (c Category) Tag() string {
	switch c {
	case CategoryVent:
		return "V"
	case CategoryPlan:
		return "P"
	default:
		return "E"
	}
}

// Description returns the short blurb shown when choosing a category.
func (c Category) Description() string {
	switch c {
	case CategoryVent:
		return "Just need to let it all out."
	case CategoryPlan:
		return "Organizing thoughts, plans, or goals."
	default:
		return "Digging into ideas or creativity."
	}
}

// IsValid returns true if c is one of the known categories.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// CategoryFromTag maps a one-letter tag back to its category.
func CategoryFromTag(tag string) (Category, bool) {
	switch tag {
	case "V":
		return CategoryVent, true
	case "E":
		return CategoryExplore, true
	case "P":
		return CategoryPlan, true
	}
	return DefaultCategory, false
}

// ParseCategory accepts a category name case-insensitively ("vent") or its tag ("V").
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	if len(s) == 1 {
		return CategoryFromTag(strings.ToUpper(s))
	}
	return DefaultCategory, false
}

// Preview sentinels.
const (
	PreviewLoading = "(Loading...)"
	PreviewEmpty   = "(Empty Entry)"
	PreviewMissing = "(File Missing)"
	PreviewError   = "(Error)"
)

// PreviewLength is the number of runes kept before the ellipsis.
const PreviewLength = 30

// DisplayDateLayout renders CreatedAt as e.g. "May 4".
const DisplayDateLayout = "Jan 2"

// Entry is the index record for one journal document.
type Entry struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	DisplayDate string
	Category    Category
	PreviewText string
	IsFavorite  bool
	Attachment  string // attachment filename, empty when none
	filename    string
}

// NewEntry builds an entry for an identity decoded from disk or freshly allocated.
// filename is the canonical body filename for that identity.
func NewEntry(id uuid.UUID, createdAt time.Time, category Category, filename string) Entry {
	return Entry{
		ID:          id,
		CreatedAt:   createdAt,
		DisplayDate: createdAt.Format(DisplayDateLayout),
		Category:    category,
		PreviewText: PreviewLoading,
		filename:    filename,
	}
}

// Filename returns the body filename backing this entry.
func (e Entry) Filename() string {
	return e.filename
}

// InsightSection is one titled block of AI-derived analysis.
type InsightSection struct {
	Title   *string `json:"title"`
	Content string  `json:"content"`
}

// NewInsightSection creates a section; an empty title means untitled.
func NewInsightSection(title, content string) InsightSection {
	s := InsightSection{Content: content}
	if title != "" {
		s.Title = &title
	}
	return s
}

// TitleText returns the section title or "" when untitled.
func (s InsightSection) TitleText() string {
	if s.Title == nil {
		return ""
	}
	return *s.Title
}

// Preview collapses whitespace in body and truncates it to PreviewLength runes.
func Preview(body string) string {
	collapsed := strings.Join(strings.Fields(body), " ")
	if collapsed == "" {
		return PreviewEmpty
	}
	runes := []rune(collapsed)
	if len(runes) <= PreviewLength {
		return collapsed
	}
	return string(runes[:PreviewLength]) + "..."
}

// Mood is an emoji the writer picks when starting an entry.
type Mood struct {
	Emoji       string
	Description string
}

// Moods lists the selectable moods in display order.
var Moods = []Mood{
	{"😊", "Happy"},
	{"😢", "Sad"},
	{"🤔", "Thoughtful"},
	{"😠", "Angry"},
	{"😌", "Calm"},
	{"😴", "Tired"},
	{"🥳", "Excited"},
	{"😅", "Anxious"},
}

// ParseMood finds a mood by description (case-insensitive) or by emoji.
func ParseMood(s string) (Mood, bool) {
	for _, m := range Moods {
		if strings.EqualFold(s, m.Description) || s == m.Emoji {
			return m, true
		}
	}
	return Mood{}, false
}
