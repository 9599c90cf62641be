// ABOUTME: Summary statistics over the index for the stats command and MCP clients.
package journal

import (
	"time"

	"github.com/2389-research/freewrite/internal/models"
)

// Stats summarizes the journal at a point in time.
type Stats struct {
	Entries     int                     `json:"entries"`
	Favorites   int                     `json:"favorites"`
	Days        int                     `json:"days"`
	Streak      int                     `json:"streak"`
	MostInADay  int                     `json:"most_in_a_day"`
	ByCategory  map[models.Category]int `json:"by_category"`
	ActiveWords int                     `json:"active_words"`
}

// Stats computes summary statistics with days evaluated in now's location.
func (ix *Index) Stats(now time.Time) Stats {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	days := models.GroupByDay(ix.entries, now.Location())
	st := Stats{
		Entries:     len(ix.entries),
		Days:        len(days),
		Streak:      models.Streak(ix.entries, now),
		ByCategory:  make(map[models.Category]int, len(models.Categories)),
		ActiveWords: models.WordCount(ix.activeText),
	}
	for _, group := range days {
		st.MostInADay = max(st.MostInADay, len(group))
	}
	for _, c := range models.Categories {
		st.ByCategory[c] = 0
	}
	for _, e := range ix.entries {
		st.ByCategory[e.Category]++
		if e.IsFavorite {
			st.Favorites++
		}
	}
	return st
}
