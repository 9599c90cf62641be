// ABOUTME: In-memory entry index over the document store, ordered newest first.
// ABOUTME: Owns selection, active text and insights, and serializes all foreground mutations.
package journal

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/2389-research/freewrite/internal/codec"
	"github.com/2389-research/freewrite/internal/insights"
	"github.com/2389-research/freewrite/internal/logging"
	"github.com/2389-research/freewrite/internal/models"
	"github.com/2389-research/freewrite/internal/storage"
)

// DefaultWorkers bounds concurrent body reads during preview hydration.
const DefaultWorkers = 4

// Options configures an Index. The zero value is usable.
type Options struct {
	Codec      codec.Codec
	Logger     *log.Logger
	Workers    int
	Generator  insights.Generator
	Questioner insights.Questioner
	Now        func() time.Time
}

// Attachment is binary data stored alongside a new entry.
type Attachment struct {
	Data []byte
	Ext  string
}

// Index is the live, ordered list of entries plus the current selection.
type Index struct {
	store      storage.DocumentStore
	codec      codec.Codec
	cache      *insights.Cache
	logger     *log.Logger
	workers    int
	generator  insights.Generator
	questioner insights.Questioner
	now        func() time.Time

	mu              sync.Mutex
	entries         []models.Entry
	selected        uuid.UUID
	activeText      string
	activeInsights  []models.InsightSection
	pendingFollowUp string
	rev             uint64
	revs            map[uuid.UUID]uint64
	inflight        map[uuid.UUID]struct{}

	// pending counts running hydration passes; idle is closed when it drops to zero.
	pending int
	idle    chan struct{}
}

// New creates an empty index over store. Call LoadAll to populate it.
func New(store storage.DocumentStore, opts Options) *Index {
	logger := logging.OrDiscard(opts.Logger)
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Index{
		store:          store,
		codec:          opts.Codec,
		cache:          insights.NewCache(store, logger),
		logger:         logger,
		workers:        workers,
		generator:      opts.Generator,
		questioner:     opts.Questioner,
		now:            now,
		activeInsights: []models.InsightSection{},
		revs:           make(map[uuid.UUID]uint64),
		inflight:       make(map[uuid.UUID]struct{}),
	}
}

// SeedBody builds the opening text for a new entry from its category and mood emoji.
func SeedBody(category models.Category, emoji string) string {
	var prompt string
	switch category {
	case models.CategoryVent:
		prompt = "spill the tea..."
	case models.CategoryPlan:
		prompt = "okay, what's the vibe check for today?"
	default:
		prompt = "vibing with some ideas..."
	}
	if emoji == "" {
		return prompt + "\n"
	}
	return emoji + "\n\n" + prompt + "\n"
}

// LoadAll rebuilds the index from the store and starts a preview hydration
// pass. It returns the number of entries loaded.
func (ix *Index) LoadAll() (int, error) {
	names, err := ix.store.ListBodyFilenames()
	if err != nil {
		return 0, err
	}

	seen := make(map[uuid.UUID]string, len(names))
	list := make([]models.Entry, 0, len(names))
	for _, name := range names {
		ident, err := ix.codec.Decode(name)
		if err != nil {
			var perr *codec.ParseError
			if errors.As(err, &perr) {
				ix.logger.Warn("skipping unrecognized file", "name", name, "reason", perr.Reason)
				continue
			}
			return 0, err
		}
		switch ident.Fallback {
		case codec.FallbackAbsent:
			ix.logger.Warn("entry has no category tag, using default", "name", name, "category", ident.Category)
		case codec.FallbackUnknown:
			ix.logger.Warn("entry has unknown category tag, using default", "name", name, "tag", ident.Tag, "category", ident.Category)
		}
		if ident.ID == uuid.Nil {
			ix.logger.Warn("skipping entry with nil id", "name", name)
			continue
		}
		if first, dup := seen[ident.ID]; dup {
			ix.logger.Warn("skipping duplicate entry id", "name", name, "kept", first)
			continue
		}
		seen[ident.ID] = name
		list = append(list, models.NewEntry(ident.ID, ident.CreatedAt, ident.Category, name))
	}

	attachments := ix.listAttachments()
	favorites := ix.readFavorites()
	for i := range list {
		list[i].Attachment = attachments[list[i].ID]
		_, list[i].IsFavorite = favorites[list[i].ID]
	}
	sortEntries(list)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.entries = list
	ix.revs = make(map[uuid.UUID]uint64, len(list))
	for _, e := range list {
		ix.bumpLocked(e.ID)
	}

	if len(favorites) > 0 && len(favorites) != ix.favoriteCountLocked() {
		if err := ix.writeFavoritesLocked(); err != nil {
			ix.logger.Warn("cannot prune favorites", "err", err)
		}
	}

	ix.startHydrationLocked()

	if idx := ix.indexOfLocked(ix.selected); idx >= 0 {
		if err := ix.loadActiveLocked(idx); err != nil {
			ix.logger.Warn("cannot reload selected entry", "id", ix.selected, "err", err)
		}
	} else {
		ix.selectFirstLocked()
	}

	ix.logger.Info("loaded entries", "count", len(list), "dir", ix.store.Dir())
	return len(list), nil
}

// Create writes a new entry and selects it. Nothing changes in the index
// unless every file was written. The new entry always goes to the head of the list.
func (ix *Index) Create(category models.Category, body string, attachment *Attachment) (models.Entry, error) {
	if !category.IsValid() {
		category = models.DefaultCategory
	}
	id := uuid.New()
	createdAt := ix.now().Truncate(time.Second)
	name := ix.codec.Encode(id, createdAt, category)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.store.WriteBody(name, body); err != nil {
		return models.Entry{}, fmt.Errorf("failed to create entry: %w", err)
	}

	entry := models.NewEntry(id, createdAt, category, name)
	entry.PreviewText = models.Preview(body)

	if attachment != nil {
		attName := codec.AttachmentName(id, attachment.Ext)
		if err := ix.store.WriteSidecar(attName, attachment.Data); err != nil {
			if derr := ix.store.DeleteBody(name); derr != nil {
				ix.logger.Error("cannot roll back entry body", "name", name, "err", derr)
			}
			return models.Entry{}, fmt.Errorf("failed to store attachment: %w", err)
		}
		entry.Attachment = attName
	}

	ix.entries = slices.Insert(ix.entries, 0, entry)
	ix.bumpLocked(id)

	ix.selected = id
	ix.activeText = body
	ix.activeInsights = []models.InsightSection{}
	ix.pendingFollowUp = ""

	ix.logger.Debug("created entry", "id", id, "name", name)
	return entry, nil
}

// Select makes id the current entry and loads its text and insights. A
// missing body still selects the entry, clears the text, and returns an
// error wrapping storage.ErrNotFound.
func (ix *Index) Select(id uuid.UUID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	idx := ix.indexOfLocked(id)
	if idx < 0 {
		return fmt.Errorf("select %s: %w", id, ErrConflict)
	}
	ix.selected = id
	ix.pendingFollowUp = ""
	return ix.loadActiveLocked(idx)
}

// Save overwrites the body of id and recomputes its preview.
func (ix *Index) Save(id uuid.UUID, body string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	idx := ix.indexOfLocked(id)
	if idx < 0 {
		return fmt.Errorf("save %s: %w", id, ErrConflict)
	}
	return ix.saveLocked(idx, body)
}

func (ix *Index) saveLocked(idx int, body string) error {
	e := &ix.entries[idx]
	if err := ix.store.WriteBody(e.Filename(), body); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	e.PreviewText = models.Preview(body)
	ix.bumpLocked(e.ID)
	if ix.selected == e.ID {
		ix.activeText = body
	}
	return nil
}

// Delete removes id with its insights and attachment. Deleting an entry the
// index does not hold is a no-op. Once the body is gone the entry leaves the
// index even if a sidecar cannot be removed; those failures are returned joined.
func (ix *Index) Delete(id uuid.UUID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	idx := ix.indexOfLocked(id)
	if idx < 0 {
		return nil
	}
	entry := ix.entries[idx]

	if err := ix.store.DeleteBody(entry.Filename()); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	var leftovers []error
	if err := ix.cache.Delete(entry); err != nil {
		ix.logger.Warn("cannot delete insight cache", "id", id, "err", err)
		leftovers = append(leftovers, err)
	}
	if entry.Attachment != "" {
		if err := ix.store.DeleteSidecar(entry.Attachment); err != nil {
			ix.logger.Warn("cannot delete attachment", "id", id, "err", err)
			leftovers = append(leftovers, fmt.Errorf("failed to delete attachment: %w", err))
		}
	}

	ix.entries = slices.Delete(ix.entries, idx, idx+1)
	delete(ix.revs, id)

	if entry.IsFavorite {
		if err := ix.writeFavoritesLocked(); err != nil {
			ix.logger.Warn("cannot update favorites", "err", err)
		}
	}
	if ix.selected == id {
		ix.selectFirstLocked()
	}

	ix.logger.Debug("deleted entry", "id", id)
	if len(leftovers) > 0 {
		return fmt.Errorf("deleted %s but left files behind: %w", entry.Filename(), errors.Join(leftovers...))
	}
	return nil
}

// Entries returns a copy of the ordered entry list.
func (ix *Index) Entries() []models.Entry {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return slices.Clone(ix.entries)
}

// Entry returns the entry for id.
func (ix *Index) Entry(id uuid.UUID) (models.Entry, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if idx := ix.indexOfLocked(id); idx >= 0 {
		return ix.entries[idx], true
	}
	return models.Entry{}, false
}

// Find resolves an entry by full id or by a unique id prefix.
func (ix *Index) Find(ref string) (models.Entry, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return models.Entry{}, fmt.Errorf("empty entry id: %w", ErrConflict)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	var found []models.Entry
	for _, e := range ix.entries {
		if strings.HasPrefix(e.ID.String(), ref) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return models.Entry{}, fmt.Errorf("no entry matches %q: %w", ref, ErrConflict)
	case 1:
		return found[0], nil
	default:
		return models.Entry{}, fmt.Errorf("%d entries match %q, use a longer id", len(found), ref)
	}
}

// Selected returns the selected entry, if any.
func (ix *Index) Selected() (models.Entry, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if idx := ix.indexOfLocked(ix.selected); idx >= 0 {
		return ix.entries[idx], true
	}
	return models.Entry{}, false
}

// ActiveText returns the body of the selected entry.
func (ix *Index) ActiveText() string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.activeText
}

// ActiveInsights returns the insight sections of the selected entry.
func (ix *Index) ActiveInsights() []models.InsightSection {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return slices.Clone(ix.activeInsights)
}

// PendingFollowUp returns the follow-up question currently being asked for
// the selected entry, or "".
func (ix *Index) PendingFollowUp() string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.pendingFollowUp
}

// loadActiveLocked reads the body and insights of entries[idx] into the active state.
func (ix *Index) loadActiveLocked(idx int) error {
	e := &ix.entries[idx]
	ix.activeInsights = ix.cache.Load(*e)

	body, err := ix.store.ReadBody(e.Filename())
	ix.bumpLocked(e.ID)
	if err != nil {
		ix.activeText = ""
		if errors.Is(err, storage.ErrNotFound) {
			e.PreviewText = models.PreviewMissing
		} else {
			e.PreviewText = models.PreviewError
		}
		return err
	}
	ix.activeText = body
	e.PreviewText = models.Preview(body)
	return nil
}

func (ix *Index) selectFirstLocked() {
	ix.pendingFollowUp = ""
	if len(ix.entries) == 0 {
		ix.selected = uuid.Nil
		ix.activeText = ""
		ix.activeInsights = []models.InsightSection{}
		return
	}
	ix.selected = ix.entries[0].ID
	if err := ix.loadActiveLocked(0); err != nil {
		ix.logger.Warn("cannot load selected entry", "id", ix.selected, "err", err)
	}
}

func (ix *Index) indexOfLocked(id uuid.UUID) int {
	if id == uuid.Nil {
		return -1
	}
	return slices.IndexFunc(ix.entries, func(e models.Entry) bool { return e.ID == id })
}

// bumpLocked records a change to id so in-flight hydration results for it are discarded.
func (ix *Index) bumpLocked(id uuid.UUID) {
	ix.rev++
	ix.revs[id] = ix.rev
}

func (ix *Index) listAttachments() map[uuid.UUID]string {
	out := make(map[uuid.UUID]string)
	names, err := ix.store.ListAttachmentFilenames()
	if err != nil {
		ix.logger.Warn("cannot list attachments", "err", err)
		return out
	}
	for _, name := range names {
		if id, ok := codec.AttachmentID(name); ok {
			out[id] = name
		}
	}
	return out
}

// compareEntries orders newest first, breaking ties by id for a stable order.
func compareEntries(a, b models.Entry) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

func sortEntries(list []models.Entry) {
	slices.SortFunc(list, compareEntries)
}
