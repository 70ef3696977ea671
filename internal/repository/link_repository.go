package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nkrasnikov/tinyurl/internal/models"
)

// LinkRepository defines the data-access operations for link records.
// Every operation is atomic at the single-row level; alias uniqueness is
// enforced by the database constraint, so Create surfaces
// gorm.ErrDuplicatedKey as the authoritative collision signal (the database
// must be opened with gorm.Config{TranslateError: true}).
type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByAlias(ctx context.Context, alias string) (*models.Link, error)
	GetByOwnerAndTarget(ctx context.Context, ownerID uint, targetURL string) ([]models.Link, error)
	GetByOwner(ctx context.Context, ownerID uint) ([]models.Link, error)
	UpdateFields(ctx context.Context, alias string, fields map[string]any) error
	RegisterVisit(ctx context.Context, alias string, usedAt time.Time) error
	Delete(ctx context.Context, alias string, ownerID uint) (int64, error)
	ListExpired(ctx context.Context, asOf time.Time) ([]models.Link, error)
	DeleteMany(ctx context.Context, ids []uint) (int64, error)
}

// GormLinkRepository is the GORM implementation of LinkRepository.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a GormLinkRepository. It returns the concrete
// type, which satisfies the LinkRepository interface.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// Create inserts a new link. The unique index on alias rejects duplicates
// inside the insert itself, which closes the race window between two
// concurrent creators that both passed a pre-check.
func (r *GormLinkRepository) Create(ctx context.Context, link *models.Link) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// GetByAlias fetches a link by its alias. It returns gorm.ErrRecordNotFound
// when no such alias exists.
func (r *GormLinkRepository) GetByAlias(ctx context.Context, alias string) (*models.Link, error) {
	var link models.Link
	result := r.db.WithContext(ctx).Where("alias = ?", alias).First(&link)
	if result.Error != nil {
		return nil, result.Error
	}
	return &link, nil
}

// GetByOwnerAndTarget fetches every link of an owner pointing at an exact
// target URL.
func (r *GormLinkRepository) GetByOwnerAndTarget(ctx context.Context, ownerID uint, targetURL string) ([]models.Link, error) {
	var links []models.Link
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND target_url = ?", ownerID, targetURL).
		Find(&links)
	if result.Error != nil {
		return nil, result.Error
	}
	return links, nil
}

// GetByOwner fetches every link of an owner.
func (r *GormLinkRepository) GetByOwner(ctx context.Context, ownerID uint) ([]models.Link, error) {
	var links []models.Link
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&links)
	if result.Error != nil {
		return nil, result.Error
	}
	return links, nil
}

// UpdateFields applies a partial update to the link identified by alias.
// Used for rename and expiry changes; a rename includes the new alias in the
// field set and relies on the unique index for conflict detection.
func (r *GormLinkRepository) UpdateFields(ctx context.Context, alias string, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Link{}).
		Where("alias = ?", alias).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RegisterVisit bumps the visit counter and the last-used timestamp in a
// single UPDATE. The increment is expressed store-side so that concurrent
// redirects on the same alias never lose updates.
func (r *GormLinkRepository) RegisterVisit(ctx context.Context, alias string, usedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Link{}).
		Where("alias = ?", alias).
		Updates(map[string]any{
			"visit_count":  gorm.Expr("visit_count + 1"),
			"last_used_at": usedAt,
		}).Error
}

// Delete removes the link only when the alias exists and belongs to ownerID.
// It returns the number of rows removed so the caller can distinguish a
// successful delete from a miss.
func (r *GormLinkRepository) Delete(ctx context.Context, alias string, ownerID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("alias = ? AND owner_id = ?", alias, ownerID).
		Delete(&models.Link{})
	return result.RowsAffected, result.Error
}

// ListExpired returns every link whose expiry is at or before asOf.
func (r *GormLinkRepository) ListExpired(ctx context.Context, asOf time.Time) ([]models.Link, error) {
	var links []models.Link
	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", asOf).
		Find(&links)
	if result.Error != nil {
		return nil, result.Error
	}
	return links, nil
}

// DeleteMany removes links by primary key in one batch. Deleting ids that
// are already gone is a no-op, which keeps the sweeper idempotent.
func (r *GormLinkRepository) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Delete(&models.Link{}, ids)
	return result.RowsAffected, result.Error
}
