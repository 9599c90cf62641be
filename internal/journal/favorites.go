// ABOUTME: Favorites persistence as a JSON array of entry ids in one well-known file.
// ABOUTME: The whole file is rewritten on every toggle; unknown ids are pruned on reload.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/2389-research/freewrite/internal/codec"
	"github.com/2389-research/freewrite/internal/storage"
)

// ToggleFavorite flips the favorite flag of id and persists all favorites.
// It returns the new flag. On a write failure the flag is left unchanged.
func (ix *Index) ToggleFavorite(id uuid.UUID) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	idx := ix.indexOfLocked(id)
	if idx < 0 {
		return false, fmt.Errorf("favorite %s: %w", id, ErrConflict)
	}

	e := &ix.entries[idx]
	e.IsFavorite = !e.IsFavorite
	if err := ix.writeFavoritesLocked(); err != nil {
		e.IsFavorite = !e.IsFavorite
		return e.IsFavorite, err
	}
	return e.IsFavorite, nil
}

func (ix *Index) readFavorites() map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{})
	data, err := ix.store.ReadSidecar(codec.FavoritesName)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			ix.logger.Warn("cannot read favorites", "err", err)
		}
		return out
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		ix.logger.Warn("corrupt favorites file, ignoring", "err", err)
		return out
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func (ix *Index) writeFavoritesLocked() error {
	ids := make([]uuid.UUID, 0)
	for _, e := range ix.entries {
		if e.IsFavorite {
			ids = append(ids, e.ID)
		}
	}
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	if err := ix.store.WriteSidecar(codec.FavoritesName, data); err != nil {
		return fmt.Errorf("failed to save favorites: %w", err)
	}
	return nil
}

func (ix *Index) favoriteCountLocked() int {
	n := 0
	for _, e := range ix.entries {
		if e.IsFavorite {
			n++
		}
	}
	return n
}
