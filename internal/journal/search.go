// ABOUTME: Case-insensitive substring search over entry bodies.
// ABOUTME: Reads bodies with bounded concurrency and returns matches newest first with a snippet.
package journal

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/2389-research/freewrite/internal/models"
	"github.com/2389-research/freewrite/internal/storage"
)

// snippetRadius is the number of runes kept on each side of a match.
const snippetRadius = 30

// SearchResult is an entry whose body contains the query.
type SearchResult struct {
	Entry   models.Entry
	Snippet string
}

// Search returns up to limit entries whose body contains query, ignoring
// case. limit <= 0 means no limit. Unreadable bodies are skipped.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return nil, errors.New("empty search query")
	}
	entries := ix.Entries()

	snippets := make([]string, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			body, err := ix.store.ReadBody(e.Filename())
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					ix.logger.Warn("cannot read entry for search", "name", e.Filename(), "err", err)
				}
				return nil
			}
			snippets[i] = matchSnippet(body, query)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []SearchResult
	for i, e := range entries {
		if snippets[i] == "" {
			continue
		}
		results = append(results, SearchResult{Entry: e, Snippet: snippets[i]})
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

// matchSnippet returns the whitespace-collapsed text around the first
// case-insensitive match of needle, or "" when body does not contain it.
func matchSnippet(body, needle string) string {
	runes := []rune(strings.Join(strings.Fields(body), " "))
	lower := string(toLowerRunes(runes))
	pos := strings.Index(lower, string(toLowerRunes([]rune(needle))))
	if pos < 0 {
		return ""
	}
	start := utf8.RuneCountInString(lower[:pos])
	end := start + utf8.RuneCountInString(needle)

	from := max(0, start-snippetRadius)
	to := min(len(runes), end+snippetRadius)
	snippet := string(runes[from:to])
	if from > 0 {
		snippet = "..." + snippet
	}
	if to < len(runes) {
		snippet += "..."
	}
	return snippet
}

func toLowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}
