// ABOUTME: Insight cache manager persisting AI-derived sections as a JSON sidecar per entry.
// ABOUTME: Missing or corrupt caches load as empty; saves always replace the whole sequence.
package insights

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/2389-research/freewrite/internal/codec"
	"github.com/2389-research/freewrite/internal/logging"
	"github.com/2389-research/freewrite/internal/models"
	"github.com/2389-research/freewrite/internal/storage"
)

// Cache reads and writes insight sidecars through a DocumentStore.
type Cache struct {
	store  storage.DocumentStore
	logger *log.Logger
}

// NewCache creates a cache over store. A nil logger discards output.
func NewCache(store storage.DocumentStore, logger *log.Logger) *Cache {
	return &Cache{store: store, logger: logging.OrDiscard(logger)}
}

// Save replaces the cached sections for entry.
func (c *Cache) Save(entry models.Entry, sections []models.InsightSection) error {
	if sections == nil {
		sections = []models.InsightSection{}
	}
	data, err := json.MarshalIndent(sections, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode insights: %w", err)
	}

	name := codec.SidecarName(entry.Filename())
	if err := c.store.WriteSidecar(name, data); err != nil {
		return fmt.Errorf("failed to save insights: %w", err)
	}
	c.logger.Debug("saved insights", "entry", entry.ID, "sections", len(sections))
	return nil
}

// Load returns the cached sections for entry, or an empty slice when there are
// none or the sidecar cannot be read or decoded.
func (c *Cache) Load(entry models.Entry) []models.InsightSection {
	name := codec.SidecarName(entry.Filename())
	data, err := c.store.ReadSidecar(name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("cannot read insight cache", "name", name, "err", err)
		}
		return []models.InsightSection{}
	}

	var sections []models.InsightSection
	if err := json.Unmarshal(data, &sections); err != nil {
		c.logger.Warn("corrupt insight cache, ignoring", "name", name, "err", err)
		return []models.InsightSection{}
	}
	if sections == nil {
		sections = []models.InsightSection{}
	}
	return sections
}

// Delete removes the cached sections for entry. Absence is not an error.
func (c *Cache) Delete(entry models.Entry) error {
	name := codec.SidecarName(entry.Filename())
	if err := c.store.DeleteSidecar(name); err != nil {
		return fmt.Errorf("failed to delete insights: %w", err)
	}
	return nil
}
