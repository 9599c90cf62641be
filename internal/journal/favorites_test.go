// ABOUTME: Tests for favorite toggling, persistence across reloads, and write-failure handling.
// ABOUTME: Favorites live in one JSON file next to the entries.
package journal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/freewrite/internal/codec"
	"github.com/2389-research/freewrite/internal/models"
)

func TestToggleFavoriteDoubleToggleRestores(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})
	entry, _ := ix.Create(models.CategoryVent, "fav", nil)

	on, err := ix.ToggleFavorite(entry.ID)
	if err != nil || !on {
		t.Fatalf("first toggle = %v, %v", on, err)
	}
	off, err := ix.ToggleFavorite(entry.ID)
	if err != nil || off {
		t.Fatalf("second toggle = %v, %v", off, err)
	}
	if e, _ := ix.Entry(entry.ID); e.IsFavorite {
		t.Error("expected original state restored")
	}
}

func TestToggleFavoriteSurvivesReload(t *testing.T) {
	store := newTestStore(t)
	id, _ := writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryVent, "keep me")
	other, _ := writeEntry(t, store, testNow.Add(-2*time.Hour), models.CategoryPlan, "not me")

	ix := newTestIndex(t, store, Options{})
	loadAndWait(t, ix)
	if _, err := ix.ToggleFavorite(id); err != nil {
		t.Fatalf("ToggleFavorite error: %v", err)
	}

	reloaded := newTestIndex(t, store, Options{})
	loadAndWait(t, reloaded)
	if e, _ := reloaded.Entry(id); !e.IsFavorite {
		t.Error("expected favorite flag after reload")
	}
	if e, _ := reloaded.Entry(other); e.IsFavorite {
		t.Error("expected other entry not favorited")
	}
}

func TestToggleFavoriteWriteFailureReverts(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})
	entry, _ := ix.Create(models.CategoryVent, "fav", nil)

	store.failSidecar = func(name string) bool { return name == codec.FavoritesName }
	on, err := ix.ToggleFavorite(entry.ID)
	if err == nil {
		t.Fatal("expected write failure")
	}
	if on {
		t.Error("expected returned flag to reflect the reverted state")
	}
	if e, _ := ix.Entry(entry.ID); e.IsFavorite {
		t.Error("expected flag reverted after failed write")
	}
}

func TestFavoritesPrunedOnReload(t *testing.T) {
	store := newTestStore(t)
	id, _ := writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryVent, "here")
	stale := uuid.New()
	data, _ := json.Marshal([]uuid.UUID{id, stale})
	if err := store.WriteSidecar(codec.FavoritesName, data); err != nil {
		t.Fatalf("WriteSidecar error: %v", err)
	}

	ix := newTestIndex(t, store, Options{})
	loadAndWait(t, ix)

	raw, err := store.ReadSidecar(codec.FavoritesName)
	if err != nil {
		t.Fatalf("ReadSidecar error: %v", err)
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		t.Fatalf("favorites not valid JSON: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Errorf("expected only %s kept, got %v", id, ids)
	}
}

func TestCorruptFavoritesIgnored(t *testing.T) {
	store := newTestStore(t)
	id, _ := writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryVent, "here")
	if err := store.WriteSidecar(codec.FavoritesName, []byte("{oops")); err != nil {
		t.Fatalf("WriteSidecar error: %v", err)
	}

	ix := newTestIndex(t, store, Options{})
	if n := loadAndWait(t, ix); n != 1 {
		t.Fatalf("expected load to succeed, got %d entries", n)
	}
	if e, _ := ix.Entry(id); e.IsFavorite {
		t.Error("expected no favorites from corrupt file")
	}
}

func TestDeleteFavoriteUpdatesFile(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})
	entry, _ := ix.Create(models.CategoryVent, "fav", nil)
	if _, err := ix.ToggleFavorite(entry.ID); err != nil {
		t.Fatalf("ToggleFavorite error: %v", err)
	}
	if err := ix.Delete(entry.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	raw, _ := store.ReadSidecar(codec.FavoritesName)
	var ids []uuid.UUID
	_ = json.Unmarshal(raw, &ids)
	if len(ids) != 0 {
		t.Errorf("expected favorites emptied, got %v", ids)
	}
}
