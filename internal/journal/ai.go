// ABOUTME: AI collaboration on entries: insight analysis, follow-up questions, and guiding prompts.
// ABOUTME: Calls run outside the index lock with at most one in flight per entry.
package journal

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/2389-research/freewrite/internal/insights"
	"github.com/2389-research/freewrite/internal/models"
)

const (
	minAnalyzeRunes = 25
	minPromptRunes  = 10
	promptWindow    = 500
)

// Analyze generates fresh insights for id, replacing any cached ones.
func (ix *Index) Analyze(ctx context.Context, id uuid.UUID) ([]models.InsightSection, error) {
	if ix.generator == nil {
		return nil, ErrNoGenerator
	}
	entry, body, err := ix.beginAI(id, minAnalyzeRunes)
	if err != nil {
		return nil, err
	}
	defer ix.endAI(id)

	sections, err := ix.generator.GenerateInsights(ctx, body, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to generate insights: %w", err)
	}
	if err := ix.commitInsights(entry, sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// FollowUp asks question about id in the context of its cached insights and
// appends the answer to them.
func (ix *Index) FollowUp(ctx context.Context, id uuid.UUID, question string) ([]models.InsightSection, error) {
	if ix.generator == nil {
		return nil, ErrNoGenerator
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty follow-up question: %w", ErrTooShort)
	}
	entry, body, err := ix.beginAI(id, minAnalyzeRunes)
	if err != nil {
		return nil, err
	}
	defer ix.endAI(id)

	ix.mu.Lock()
	if ix.selected == id {
		ix.pendingFollowUp = question
	}
	ix.mu.Unlock()
	defer ix.clearFollowUp(id, question)

	prior := ix.cache.Load(entry)
	answer, err := ix.generator.GenerateInsights(ctx, body, prior, question)
	if err != nil {
		return nil, fmt.Errorf("failed to answer follow-up: %w", err)
	}

	combined := slices.Concat(prior, answer)
	if err := ix.commitInsights(entry, combined); err != nil {
		return nil, err
	}
	return combined, nil
}

// Prompt asks for a guiding question about the end of id's text and appends
// it to the body. It returns the question.
func (ix *Index) Prompt(ctx context.Context, id uuid.UUID) (string, error) {
	if ix.questioner == nil {
		return "", ErrNoGenerator
	}
	entry, body, err := ix.beginAI(id, minPromptRunes)
	if err != nil {
		return "", err
	}
	defer ix.endAI(id)

	question, err := ix.questioner.GuidingQuestion(ctx, lastRunes(strings.TrimSpace(body), promptWindow), entry.Category)
	if err != nil {
		return "", fmt.Errorf("failed to get guiding question: %w", err)
	}
	if question == "" {
		return "", insights.ErrEmptyResponse
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	idx := ix.indexOfLocked(id)
	if idx < 0 {
		return "", fmt.Errorf("prompt %s: %w", id, ErrConflict)
	}
	current, err := ix.store.ReadBody(ix.entries[idx].Filename())
	if err != nil {
		return "", err
	}
	if err := ix.saveLocked(idx, current+"\n\n✨ "+question+"\n"); err != nil {
		return "", err
	}
	return question, nil
}

// beginAI marks id as busy and returns its entry and current body. The body
// must have more than minRunes runes after trimming.
func (ix *Index) beginAI(id uuid.UUID, minRunes int) (models.Entry, string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	idx := ix.indexOfLocked(id)
	if idx < 0 {
		return models.Entry{}, "", fmt.Errorf("analyze %s: %w", id, ErrConflict)
	}
	if _, busy := ix.inflight[id]; busy {
		return models.Entry{}, "", ErrInFlight
	}

	entry := ix.entries[idx]
	body, err := ix.store.ReadBody(entry.Filename())
	if err != nil {
		return models.Entry{}, "", err
	}
	if utf8.RuneCountInString(strings.TrimSpace(body)) <= minRunes {
		return models.Entry{}, "", ErrTooShort
	}

	ix.inflight[id] = struct{}{}
	return entry, body, nil
}

func (ix *Index) endAI(id uuid.UUID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.inflight, id)
}

func (ix *Index) clearFollowUp(id uuid.UUID, question string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.selected == id && ix.pendingFollowUp == question {
		ix.pendingFollowUp = ""
	}
}

// commitInsights persists sections for entry even if the selection moved on,
// and refreshes the active insights only when entry is still selected.
func (ix *Index) commitInsights(entry models.Entry, sections []models.InsightSection) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.indexOfLocked(entry.ID) < 0 {
		ix.logger.Info("entry removed during AI request, discarding insights", "id", entry.ID)
		return fmt.Errorf("insights for %s: %w", entry.ID, ErrConflict)
	}
	if err := ix.cache.Save(entry, sections); err != nil {
		return err
	}
	if ix.selected == entry.ID {
		ix.activeInsights = slices.Clone(sections)
	}
	return nil
}

func lastRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
