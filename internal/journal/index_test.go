// ABOUTME: Tests for the entry index: loading, creation, selection, saving, and deletion.
// ABOUTME: Uses a real directory store in t.TempDir, wrapped for fault injection where needed.
package journal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/2389-research/freewrite/internal/codec"
	"github.com/2389-research/freewrite/internal/models"
	"github.com/2389-research/freewrite/internal/storage"
)

var (
	testCodec = codec.New(time.UTC)
	testNow   = time.Date(2025, 5, 4, 13, 5, 9, 500_000_000, time.UTC)
)

// testStore wraps a DirStore with optional write failures and gated reads.
type testStore struct {
	storage.DocumentStore

	mu            sync.Mutex
	failBody      bool
	failSidecar   func(name string) bool
	failDelete    func(name string) bool
	gated         map[string]bool
	gate          chan struct{}
	gatedReadsHit chan string
}

func (s *testStore) WriteBody(name, text string) error {
	s.mu.Lock()
	fail := s.failBody
	s.mu.Unlock()
	if fail {
		return &storage.IOError{Op: "write body", Name: name, Err: errors.New("disk full")}
	}
	return s.DocumentStore.WriteBody(name, text)
}

func (s *testStore) WriteSidecar(name string, data []byte) error {
	s.mu.Lock()
	fail := s.failSidecar != nil && s.failSidecar(name)
	s.mu.Unlock()
	if fail {
		return &storage.IOError{Op: "write sidecar", Name: name, Err: errors.New("disk full")}
	}
	return s.DocumentStore.WriteSidecar(name, data)
}

func (s *testStore) DeleteSidecar(name string) error {
	s.mu.Lock()
	fail := s.failDelete != nil && s.failDelete(name)
	s.mu.Unlock()
	if fail {
		return &storage.IOError{Op: "delete sidecar", Name: name, Err: errors.New("permission denied")}
	}
	return s.DocumentStore.DeleteSidecar(name)
}

// ReadBody reads first and then waits on the gate, so a gated read returns
// the body as it was before the wait.
func (s *testStore) ReadBody(name string) (string, error) {
	body, err := s.DocumentStore.ReadBody(name)
	s.mu.Lock()
	gated := s.gated[name]
	s.mu.Unlock()
	if gated {
		if s.gatedReadsHit != nil {
			s.gatedReadsHit <- name
		}
		<-s.gate
	}
	return body, err
}

func (s *testStore) gateReads(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gated = make(map[string]bool)
	for _, n := range names {
		s.gated[n] = true
	}
	s.gate = make(chan struct{})
	s.gatedReadsHit = make(chan string, len(names))
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	dir, err := storage.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore error: %v", err)
	}
	return &testStore{DocumentStore: dir}
}

func newTestIndex(t *testing.T, store storage.DocumentStore, opts Options) *Index {
	t.Helper()
	opts.Codec = testCodec
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	return New(store, opts)
}

func writeEntry(t *testing.T, store storage.DocumentStore, created time.Time, cat models.Category, body string) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	name := testCodec.Encode(id, created, cat)
	if err := store.WriteBody(name, body); err != nil {
		t.Fatalf("WriteBody error: %v", err)
	}
	return id, name
}

func loadAndWait(t *testing.T, ix *Index) int {
	t.Helper()
	n, err := ix.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ix.WaitForPreviews(ctx); err != nil {
		t.Fatalf("WaitForPreviews error: %v", err)
	}
	return n
}

func fileExists(t *testing.T, store storage.DocumentStore, name string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(store.Dir(), name))
	return err == nil
}

func TestLoadAllSkipsMalformedNames(t *testing.T) {
	store := newTestStore(t)
	writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryVent, "one")
	writeEntry(t, store, testNow.Add(-2*time.Hour), models.CategoryPlan, "two")
	for _, junk := range []string{"garbage.md", "[not-a-uuid]-[2025-05-04-13-05-09]-[V].md", "[" + uuid.NewString() + "]-[yesterday]-[V].md"} {
		if err := store.WriteBody(junk, "x"); err != nil {
			t.Fatalf("WriteBody error: %v", err)
		}
	}

	ix := newTestIndex(t, store, Options{})
	if n := loadAndWait(t, ix); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
	if len(ix.Entries()) != 2 {
		t.Errorf("expected 2 entries in index, got %d", len(ix.Entries()))
	}
}

func TestLoadAllOrdersNewestFirst(t *testing.T) {
	store := newTestStore(t)
	oldest, _ := writeEntry(t, store, testNow.Add(-72*time.Hour), models.CategoryVent, "a")
	newest, _ := writeEntry(t, store, testNow.Add(-time.Minute), models.CategoryPlan, "b")
	middle, _ := writeEntry(t, store, testNow.Add(-24*time.Hour), models.CategoryExplore, "c")

	ix := newTestIndex(t, store, Options{})
	loadAndWait(t, ix)

	entries := ix.Entries()
	want := []uuid.UUID{newest, middle, oldest}
	for i, id := range want {
		if entries[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, entries[i].ID)
		}
	}
}

func TestLoadAllCategoryFallbackLogsDistinctly(t *testing.T) {
	store := newTestStore(t)
	absentID := uuid.New()
	absent := "[" + absentID.String() + "]-[2025-05-01-08-00-00].md"
	unknown := "[" + uuid.NewString() + "]-[2025-05-02-08-00-00]-[Q].md"
	for _, name := range []string{absent, unknown} {
		if err := store.WriteBody(name, "body text"); err != nil {
			t.Fatalf("WriteBody error: %v", err)
		}
	}

	var buf bytes.Buffer
	ix := newTestIndex(t, store, Options{Logger: log.New(&buf)})
	loadAndWait(t, ix)

	e, ok := ix.Entry(absentID)
	if !ok {
		t.Fatal("expected entry without category tag to load")
	}
	if e.Category != models.DefaultCategory {
		t.Errorf("expected default category, got %s", e.Category)
	}
	if e.Filename() != absent {
		t.Errorf("expected on-disk filename kept, got %q", e.Filename())
	}

	logs := buf.String()
	if !strings.Contains(logs, "no category tag") {
		t.Errorf("expected absent-tag warning, got %q", logs)
	}
	if !strings.Contains(logs, "unknown category tag") {
		t.Errorf("expected unknown-tag warning, got %q", logs)
	}
}

func TestLoadAllSkipsDuplicateIDs(t *testing.T) {
	store := newTestStore(t)
	id := uuid.New()
	for _, ts := range []time.Time{testNow.Add(-time.Hour), testNow.Add(-2 * time.Hour)} {
		if err := store.WriteBody(testCodec.Encode(id, ts, models.CategoryVent), "dup"); err != nil {
			t.Fatalf("WriteBody error: %v", err)
		}
	}

	ix := newTestIndex(t, store, Options{})
	if n := loadAndWait(t, ix); n != 1 {
		t.Errorf("expected duplicate id to be loaded once, got %d", n)
	}
}

func TestLoadAllSelectsFirstEntry(t *testing.T) {
	store := newTestStore(t)
	writeEntry(t, store, testNow.Add(-2*time.Hour), models.CategoryVent, "older")
	newest, _ := writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryPlan, "newest body")

	ix := newTestIndex(t, store, Options{})
	if _, err := ix.LoadAll(); err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}

	sel, ok := ix.Selected()
	if !ok || sel.ID != newest {
		t.Fatalf("expected newest entry selected, got %v %v", sel.ID, ok)
	}
	if ix.ActiveText() != "newest body" {
		t.Errorf("expected active text loaded, got %q", ix.ActiveText())
	}
	if sel.PreviewText != "newest body" {
		t.Errorf("expected selected preview computed on load, got %q", sel.PreviewText)
	}
}

func TestLoadAllKeepsExistingSelection(t *testing.T) {
	store := newTestStore(t)
	older, _ := writeEntry(t, store, testNow.Add(-2*time.Hour), models.CategoryVent, "older")
	writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryPlan, "newer")

	ix := newTestIndex(t, store, Options{})
	loadAndWait(t, ix)
	if err := ix.Select(older); err != nil {
		t.Fatalf("Select error: %v", err)
	}
	loadAndWait(t, ix)

	if sel, _ := ix.Selected(); sel.ID != older {
		t.Errorf("expected selection kept across reload, got %s", sel.ID)
	}
}

func TestLoadAllReselectsWhenSelectionVanished(t *testing.T) {
	store := newTestStore(t)
	older, olderName := writeEntry(t, store, testNow.Add(-2*time.Hour), models.CategoryVent, "older")
	newer, _ := writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryPlan, "newer")

	ix := newTestIndex(t, store, Options{})
	loadAndWait(t, ix)
	if err := ix.Select(older); err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if err := store.DeleteBody(olderName); err != nil {
		t.Fatalf("DeleteBody error: %v", err)
	}
	loadAndWait(t, ix)

	if sel, _ := ix.Selected(); sel.ID != newer {
		t.Errorf("expected fallback to first entry, got %s", sel.ID)
	}
}

func TestLoadAllEmptyStore(t *testing.T) {
	ix := newTestIndex(t, newTestStore(t), Options{})
	if n := loadAndWait(t, ix); n != 0 {
		t.Errorf("expected 0 entries, got %d", n)
	}
	if _, ok := ix.Selected(); ok {
		t.Error("expected no selection in empty store")
	}
}

func TestCreate(t *testing.T) {
	store := newTestStore(t)
	writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryVent, "existing")

	ix := newTestIndex(t, store, Options{})
	loadAndWait(t, ix)
	before, _ := store.ListBodyFilenames()

	entry, err := ix.Create(models.CategoryPlan, "fresh start", nil)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	after, _ := store.ListBodyFilenames()
	if len(after) != len(before)+1 {
		t.Fatalf("expected exactly one new file, had %d now %d", len(before), len(after))
	}
	ident, err := testCodec.Decode(entry.Filename())
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if ident.ID != entry.ID || !ident.CreatedAt.Equal(entry.CreatedAt) || ident.Category != models.CategoryPlan {
		t.Errorf("decoded identity %+v does not match entry %+v", ident, entry)
	}
	if !entry.CreatedAt.Equal(testNow.Truncate(time.Second)) {
		t.Errorf("expected createdAt truncated to seconds, got %v", entry.CreatedAt)
	}

	entries := ix.Entries()
	if entries[0].ID != entry.ID {
		t.Errorf("expected new entry at position 0")
	}
	if sel, _ := ix.Selected(); sel.ID != entry.ID {
		t.Errorf("expected new entry selected")
	}
	if ix.ActiveText() != "fresh start" || entries[0].PreviewText != "fresh start" {
		t.Errorf("unexpected active text %q / preview %q", ix.ActiveText(), entries[0].PreviewText)
	}
}

func TestCreateSameSecondGoesToHead(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})

	for i := range 20 {
		entry, err := ix.Create(models.CategoryExplore, "same second", nil)
		if err != nil {
			t.Fatalf("Create %d error: %v", i, err)
		}
		entries := ix.Entries()
		if entries[0].ID != entry.ID {
			t.Fatalf("create %d: expected new entry at position 0, got %s", i, entries[0].ID)
		}
		if len(entries) != i+1 {
			t.Fatalf("create %d: expected %d entries, got %d", i, i+1, len(entries))
		}
	}
}

func TestCreateWithAttachment(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})

	entry, err := ix.Create(models.CategoryExplore, "pic", &Attachment{Data: []byte{0xff, 0xd8}, Ext: "JPG"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if entry.Attachment != codec.AttachmentName(entry.ID, "jpg") {
		t.Errorf("unexpected attachment name %q", entry.Attachment)
	}
	if !fileExists(t, store, entry.Attachment) {
		t.Error("expected attachment on disk")
	}

	reloaded := newTestIndex(t, store, Options{})
	loadAndWait(t, reloaded)
	if e, _ := reloaded.Entry(entry.ID); e.Attachment != entry.Attachment {
		t.Errorf("expected attachment re-associated on load, got %q", e.Attachment)
	}
}

func TestCreateBodyFailureLeavesIndexUnchanged(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})
	store.failBody = true

	_, err := ix.Create(models.CategoryVent, "lost", nil)
	var ioErr *storage.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if len(ix.Entries()) != 0 {
		t.Error("expected no entry after failed body write")
	}
	if _, ok := ix.Selected(); ok {
		t.Error("expected no selection after failed body write")
	}
}

func TestCreateAttachmentFailureRollsBackBody(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})
	store.failSidecar = func(name string) bool { return strings.Contains(name, "-photo.") }

	if _, err := ix.Create(models.CategoryVent, "with photo", &Attachment{Data: []byte{1}}); err == nil {
		t.Fatal("expected attachment write failure")
	}
	if names, _ := store.ListBodyFilenames(); len(names) != 0 {
		t.Errorf("expected body rolled back, found %v", names)
	}
	if len(ix.Entries()) != 0 {
		t.Error("expected index unchanged")
	}
}

func TestSaveUpdatesPreviewImmediately(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})
	entry, err := ix.Create(models.CategoryVent, "", nil)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := ix.Save(entry.ID, "hello\nworld"); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, _ := ix.Entry(entry.ID)
	if got.PreviewText != "hello world" {
		t.Errorf("expected preview %q, got %q", "hello world", got.PreviewText)
	}
	if ix.ActiveText() != "hello\nworld" {
		t.Errorf("expected active text updated, got %q", ix.ActiveText())
	}
	body, _ := store.ReadBody(entry.Filename())
	if body != "hello\nworld" {
		t.Errorf("expected body on disk, got %q", body)
	}
}

func TestSaveFailureKeepsPreview(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})
	entry, _ := ix.Create(models.CategoryVent, "original", nil)

	store.failBody = true
	if err := ix.Save(entry.ID, "replacement"); err == nil {
		t.Fatal("expected save failure")
	}
	got, _ := ix.Entry(entry.ID)
	if got.PreviewText != "original" || ix.ActiveText() != "original" {
		t.Errorf("expected state unchanged, got preview %q text %q", got.PreviewText, ix.ActiveText())
	}
}

func TestUnknownIDIsConflict(t *testing.T) {
	ix := newTestIndex(t, newTestStore(t), Options{})
	id := uuid.New()

	if err := ix.Select(id); !errors.Is(err, ErrConflict) {
		t.Errorf("Select: expected ErrConflict, got %v", err)
	}
	if err := ix.Save(id, "x"); !errors.Is(err, ErrConflict) {
		t.Errorf("Save: expected ErrConflict, got %v", err)
	}
	if _, err := ix.ToggleFavorite(id); !errors.Is(err, ErrConflict) {
		t.Errorf("ToggleFavorite: expected ErrConflict, got %v", err)
	}
	if err := ix.Delete(id); err != nil {
		t.Errorf("Delete of unknown id should be a no-op, got %v", err)
	}
}

func TestSelectLoadsTextAndInsights(t *testing.T) {
	store := newTestStore(t)
	id, _ := writeEntry(t, store, testNow.Add(-2*time.Hour), models.CategoryVent, "older text")
	writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryPlan, "newer text")

	ix := newTestIndex(t, store, Options{})
	loadAndWait(t, ix)

	entry, _ := ix.Entry(id)
	if err := ix.cache.Save(entry, []models.InsightSection{models.NewInsightSection("T", "cached")}); err != nil {
		t.Fatalf("cache Save error: %v", err)
	}

	if err := ix.Select(id); err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if ix.ActiveText() != "older text" {
		t.Errorf("unexpected active text %q", ix.ActiveText())
	}
	if got := ix.ActiveInsights(); len(got) != 1 || got[0].Content != "cached" {
		t.Errorf("unexpected insights %+v", got)
	}
}

func TestSelectMissingBody(t *testing.T) {
	store := newTestStore(t)
	id, name := writeEntry(t, store, testNow.Add(-2*time.Hour), models.CategoryVent, "doomed")
	writeEntry(t, store, testNow.Add(-time.Hour), models.CategoryPlan, "newer")

	ix := newTestIndex(t, store, Options{})
	loadAndWait(t, ix)
	if err := os.Remove(filepath.Join(store.Dir(), name)); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	err := ix.Select(id)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ix.ActiveText() != "" {
		t.Errorf("expected cleared text, got %q", ix.ActiveText())
	}
	if e, _ := ix.Entry(id); e.PreviewText != models.PreviewMissing {
		t.Errorf("expected missing sentinel, got %q", e.PreviewText)
	}
}

func TestDeleteRemovesAllFiles(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})

	entry, err := ix.Create(models.CategoryVent, "bye", &Attachment{Data: []byte{1}, Ext: "png"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := ix.cache.Save(entry, []models.InsightSection{models.NewInsightSection("", "x")}); err != nil {
		t.Fatalf("cache Save error: %v", err)
	}
	sidecar := codec.SidecarName(entry.Filename())

	if err := ix.Delete(entry.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	for _, name := range []string{entry.Filename(), sidecar, entry.Attachment} {
		if fileExists(t, store, name) {
			t.Errorf("expected %s removed", name)
		}
	}
	if _, ok := ix.Entry(entry.ID); ok {
		t.Error("expected entry removed from index")
	}
	if err := ix.Delete(entry.ID); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
}

func TestDeleteReportsLeftoverSidecars(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})

	entry, err := ix.Create(models.CategoryVent, "stuck", &Attachment{Data: []byte{1}, Ext: "png"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := ix.cache.Save(entry, []models.InsightSection{models.NewInsightSection("", "x")}); err != nil {
		t.Fatalf("cache Save error: %v", err)
	}
	sidecar := codec.SidecarName(entry.Filename())
	store.failDelete = func(string) bool { return true }

	err = ix.Delete(entry.ID)
	if err == nil {
		t.Fatal("expected Delete to report sidecars it could not remove")
	}
	for _, name := range []string{sidecar, entry.Attachment} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected error to name %s, got %v", name, err)
		}
		if !fileExists(t, store, name) {
			t.Errorf("expected %s still on disk", name)
		}
	}
	var ioErr *storage.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected wrapped IOError, got %T", err)
	}
	if fileExists(t, store, entry.Filename()) {
		t.Error("expected body removed")
	}
	if _, ok := ix.Entry(entry.ID); ok {
		t.Error("expected entry removed from index once its body is gone")
	}
}

func TestDeleteSelectedFallsBack(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})

	first, _ := ix.Create(models.CategoryVent, "first", nil)
	ix.now = func() time.Time { return testNow.Add(time.Minute) }
	second, _ := ix.Create(models.CategoryPlan, "second", nil)

	if err := ix.Delete(second.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	sel, ok := ix.Selected()
	if !ok || sel.ID != first.ID {
		t.Fatalf("expected fallback to remaining entry, got %v %v", sel.ID, ok)
	}
	if ix.ActiveText() != "first" {
		t.Errorf("expected remaining entry text loaded, got %q", ix.ActiveText())
	}

	if err := ix.Delete(first.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok := ix.Selected(); ok {
		t.Error("expected no selection after deleting every entry")
	}
	if ix.ActiveText() != "" {
		t.Errorf("expected empty active text, got %q", ix.ActiveText())
	}
	if len(ix.Entries()) != 0 {
		t.Error("index must not auto-create entries")
	}
}

func TestFind(t *testing.T) {
	store := newTestStore(t)
	ix := newTestIndex(t, store, Options{})
	entry, _ := ix.Create(models.CategoryVent, "findme", nil)

	got, err := ix.Find(entry.ID.String()[:8])
	if err != nil || got.ID != entry.ID {
		t.Errorf("Find by prefix = %v, %v", got.ID, err)
	}
	if _, err := ix.Find("zzzz"); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for unknown prefix, got %v", err)
	}
}

func TestSeedBody(t *testing.T) {
	if got := SeedBody(models.CategoryVent, "😢"); got != "😢\n\nspill the tea...\n" {
		t.Errorf("unexpected vent seed %q", got)
	}
	if got := SeedBody(models.CategoryPlan, ""); got != "okay, what's the vibe check for today?\n" {
		t.Errorf("unexpected plan seed %q", got)
	}
	if got := SeedBody(models.CategoryExplore, "🤔"); !strings.HasSuffix(got, "vibing with some ideas...\n") {
		t.Errorf("unexpected explore seed %q", got)
	}
}
