package repository

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nkrasnikov/tinyurl/internal/models"
)

// MemoryLinkRepository is an in-memory LinkRepository for development and
// tests. It mirrors the error contract of GormLinkRepository:
// gorm.ErrDuplicatedKey on alias conflicts and gorm.ErrRecordNotFound on
// misses, so services behave identically on either implementation. Values
// are copied in and out to keep callers from mutating shared state.
type MemoryLinkRepository struct {
	mu     sync.RWMutex
	links  map[string]*models.Link // keyed by alias
	nextID uint
}

// NewMemoryLinkRepository creates an empty MemoryLinkRepository.
func NewMemoryLinkRepository() *MemoryLinkRepository {
	return &MemoryLinkRepository{
		links:  make(map[string]*models.Link),
		nextID: 1,
	}
}

// Create inserts a link, rejecting duplicate aliases.
func (m *MemoryLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[link.Alias]; exists {
		return gorm.ErrDuplicatedKey
	}
	link.ID = m.nextID
	m.nextID++

	stored := *link
	m.links[link.Alias] = &stored
	return nil
}

// GetByAlias returns a copy of the link with the given alias.
func (m *MemoryLinkRepository) GetByAlias(ctx context.Context, alias string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[alias]
	if !exists {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *link
	return &copied, nil
}

// GetByOwnerAndTarget returns copies of the owner's links with the exact
// target URL.
func (m *MemoryLinkRepository) GetByOwnerAndTarget(ctx context.Context, ownerID uint, targetURL string) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Link
	for _, link := range m.links {
		if link.OwnerID == ownerID && link.TargetURL == targetURL {
			result = append(result, *link)
		}
	}
	return result, nil
}

// GetByOwner returns copies of every link of the owner.
func (m *MemoryLinkRepository) GetByOwner(ctx context.Context, ownerID uint) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Link
	for _, link := range m.links {
		if link.OwnerID == ownerID {
			result = append(result, *link)
		}
	}
	return result, nil
}

// UpdateFields applies a partial update, enforcing alias uniqueness on
// rename.
func (m *MemoryLinkRepository) UpdateFields(ctx context.Context, alias string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[alias]
	if !exists {
		return gorm.ErrRecordNotFound
	}

	if v, ok := fields["alias"]; ok {
		newAlias := v.(string)
		if newAlias != alias {
			if _, taken := m.links[newAlias]; taken {
				return gorm.ErrDuplicatedKey
			}
			delete(m.links, alias)
			link.Alias = newAlias
			m.links[newAlias] = link
		}
	}
	if v, ok := fields["expires_at"]; ok {
		switch t := v.(type) {
		case *time.Time:
			link.ExpiresAt = t
		case time.Time:
			link.ExpiresAt = &t
		case nil:
			link.ExpiresAt = nil
		}
	}
	return nil
}

// RegisterVisit bumps the visit counter and last-used timestamp atomically
// under the repository lock.
func (m *MemoryLinkRepository) RegisterVisit(ctx context.Context, alias string, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[alias]
	if !exists {
		return gorm.ErrRecordNotFound
	}
	link.VisitCount++
	used := usedAt
	link.LastUsedAt = &used
	return nil
}

// Delete removes the link when alias and owner match.
func (m *MemoryLinkRepository) Delete(ctx context.Context, alias string, ownerID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[alias]
	if !exists || link.OwnerID != ownerID {
		return 0, nil
	}
	delete(m.links, alias)
	return 1, nil
}

// ListExpired returns copies of every link expired at asOf.
func (m *MemoryLinkRepository) ListExpired(ctx context.Context, asOf time.Time) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Link
	for _, link := range m.links {
		if link.ExpiresAt != nil && !link.ExpiresAt.After(asOf) {
			result = append(result, *link)
		}
	}
	return result, nil
}

// DeleteMany removes links by id; missing ids are skipped.
func (m *MemoryLinkRepository) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[uint]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var deleted int64
	for alias, link := range m.links {
		if wanted[link.ID] {
			delete(m.links, alias)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored links.
func (m *MemoryLinkRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}
