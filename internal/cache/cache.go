package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/allegro/bigcache"

	"github.com/nkrasnikov/tinyurl/internal/models"
	"github.com/nkrasnikov/tinyurl/internal/repository"
)

// CachedLinkRepository is a read-through decorator around a LinkRepository.
// It caches alias lookups and owner+target searches for a short TTL; entries
// may serve a just-deleted or just-updated link for up to that window.
// Callers already re-check expiry on every read, so the staleness stays
// bounded and harmless.
type CachedLinkRepository struct {
	repository.LinkRepository
	cache *bigcache.BigCache
}

// NewCachedLinkRepository wraps repo with a bigcache instance holding
// entries for ttl.
func NewCachedLinkRepository(repo repository.LinkRepository, ttl time.Duration) (*CachedLinkRepository, error) {
	bc, err := bigcache.NewBigCache(bigcache.DefaultConfig(ttl))
	if err != nil {
		return nil, fmt.Errorf("error initializing link cache: %w", err)
	}
	return &CachedLinkRepository{LinkRepository: repo, cache: bc}, nil
}

func aliasKey(alias string) string {
	return "alias:" + alias
}

func targetKey(ownerID uint, targetURL string) string {
	return fmt.Sprintf("target:%d:%s", ownerID, targetURL)
}

// GetByAlias serves the link from the cache when present, falling back to
// the underlying repository and populating the cache on success. Misses and
// store errors are never cached.
func (c *CachedLinkRepository) GetByAlias(ctx context.Context, alias string) (*models.Link, error) {
	key := aliasKey(alias)
	if data, err := c.cache.Get(key); err == nil {
		var link models.Link
		if err := json.Unmarshal(data, &link); err == nil {
			return &link, nil
		}
		// Unreadable entry, drop it and fall through to the store.
		_ = c.cache.Delete(key)
	}

	link, err := c.LinkRepository.GetByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	c.put(key, link)
	return link, nil
}

// GetByOwnerAndTarget serves owner+target searches through the cache.
func (c *CachedLinkRepository) GetByOwnerAndTarget(ctx context.Context, ownerID uint, targetURL string) ([]models.Link, error) {
	key := targetKey(ownerID, targetURL)
	if data, err := c.cache.Get(key); err == nil {
		var links []models.Link
		if err := json.Unmarshal(data, &links); err == nil {
			return links, nil
		}
		_ = c.cache.Delete(key)
	}

	links, err := c.LinkRepository.GetByOwnerAndTarget(ctx, ownerID, targetURL)
	if err != nil {
		return nil, err
	}
	if len(links) > 0 {
		c.put(key, links)
	}
	return links, nil
}

// UpdateFields passes through and evicts the alias entry so a rename or
// expiry change becomes visible without waiting out the TTL.
func (c *CachedLinkRepository) UpdateFields(ctx context.Context, alias string, fields map[string]any) error {
	err := c.LinkRepository.UpdateFields(ctx, alias, fields)
	if err == nil {
		c.evict(aliasKey(alias))
	}
	return err
}

// Delete passes through and evicts the alias entry.
func (c *CachedLinkRepository) Delete(ctx context.Context, alias string, ownerID uint) (int64, error) {
	rows, err := c.LinkRepository.Delete(ctx, alias, ownerID)
	if err == nil && rows > 0 {
		c.evict(aliasKey(alias))
	}
	return rows, err
}

func (c *CachedLinkRepository) put(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("Error marshalling cache entry '%s': %v", key, err)
		return
	}
	if err := c.cache.Set(key, data); err != nil {
		log.Printf("Error caching entry '%s': %v", key, err)
	}
}

func (c *CachedLinkRepository) evict(key string) {
	if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		log.Printf("Error evicting cache entry '%s': %v", key, err)
	}
}
