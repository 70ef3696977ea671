package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/nkrasnikov/tinyurl/internal/errors"
	"github.com/nkrasnikov/tinyurl/internal/models"
	"github.com/nkrasnikov/tinyurl/internal/repository"
)

// ExpiryLayout is the accepted format for expiry dates, minute precision.
const ExpiryLayout = "02.01.2006 15:04"

// validURLPattern accepts http/https/ftp/ftps URLs with a domain name, an
// IPv4 address or localhost, an optional port and an optional path/query.
var validURLPattern = regexp.MustCompile(`(?i)^(?:http|ftp)s?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// LinkService orchestrates alias allocation, ownership checks, redirect
// resolution and link mutation. It holds no state of its own; the repository
// is the single source of truth, so concurrent requests only coordinate
// through the store's constraints.
type LinkService struct {
	linkRepo  repository.LinkRepository
	generator AliasGenerator
	nowFunc   func() time.Time // injected for tests
}

// NewLinkService creates a LinkService on top of a link repository and an
// alias generator.
func NewLinkService(linkRepo repository.LinkRepository, generator AliasGenerator) *LinkService {
	return &LinkService{
		linkRepo:  linkRepo,
		generator: generator,
		nowFunc:   time.Now,
	}
}

// ValidateTargetURL checks a target URL against the accepted URL grammar.
func ValidateTargetURL(rawURL string) error {
	if !validURLPattern.MatchString(rawURL) {
		return &apperrors.ErrInvalidURL{URL: rawURL}
	}
	return nil
}

// ParseExpiry parses an expiry date in the ExpiryLayout format. An empty
// value means the link never expires.
func ParseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(ExpiryLayout, raw, time.Local)
	if err != nil {
		return nil, &apperrors.ErrInvalidExpiry{Value: raw}
	}
	return &t, nil
}

// CreateLink shortens targetURL for the given owner. With a custom alias the
// insert is attempted exactly once and a conflict surfaces as ErrAliasTaken;
// custom aliases never silently regenerate. Without one, a 6-character
// candidate is tried first and a single 7-character candidate on collision.
// The bounded retry trades a tiny failure probability for bounded latency.
func (s *LinkService) CreateLink(ctx context.Context, targetURL, customAlias, expiresAtRaw string, ownerID uint) (*models.Link, error) {
	// Validation happens before any store mutation.
	if err := ValidateTargetURL(targetURL); err != nil {
		return nil, err
	}
	expiresAt, err := ParseExpiry(expiresAtRaw)
	if err != nil {
		return nil, err
	}

	link := &models.Link{
		OwnerID:   ownerID,
		TargetURL: targetURL,
		CreatedAt: s.nowFunc(),
		ExpiresAt: expiresAt,
	}

	if customAlias != "" {
		link.Alias = customAlias
		if err := s.linkRepo.Create(ctx, link); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, &apperrors.ErrAliasTaken{Alias: customAlias}
			}
			return nil, fmt.Errorf("error creating link in database: %w", err)
		}
		return link, nil
	}

	// Two-tier allocation: 6 characters, then 7 once.
	for attempt, length := 0, DefaultAliasLength; attempt < 2; attempt, length = attempt+1, length+1 {
		alias, err := s.generator.Generate(length)
		if err != nil {
			return nil, fmt.Errorf("error generating alias: %w", err)
		}
		link.Alias = alias
		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("error creating link in database: %w", err)
		}
		log.Printf("Alias '%s' already exists, retrying with length %d...", alias, length+1)
	}

	return nil, &apperrors.ErrAliasExhausted{Attempts: 2}
}

// ResolveLink returns the target URL for an alias and registers the visit.
// Expired links resolve as not found even before the sweeper removed them.
// The counter bump is a single store-side increment, so concurrent redirects
// on the same alias do not lose updates; a failed bump is logged but does
// not block the redirect.
func (s *LinkService) ResolveLink(ctx context.Context, alias string) (string, error) {
	link, err := s.getLiveLink(ctx, alias)
	if err != nil {
		return "", err
	}

	if err := s.linkRepo.RegisterVisit(ctx, alias, s.nowFunc()); err != nil {
		log.Printf("Error registering visit for '%s': %v", alias, err)
	}

	return link.TargetURL, nil
}

// GetLinkStats returns the link record for its public statistics. There is
// no ownership check; link metadata is readable by anyone who knows the
// alias.
func (s *LinkService) GetLinkStats(ctx context.Context, alias string) (*models.Link, error) {
	return s.getLiveLink(ctx, alias)
}

// FindByTarget returns the caller's links pointing at exactly targetURL.
// An empty result is reported as not found.
func (s *LinkService) FindByTarget(ctx context.Context, targetURL string, ownerID uint) ([]models.Link, error) {
	links, err := s.linkRepo.GetByOwnerAndTarget(ctx, ownerID, targetURL)
	if err != nil {
		return nil, fmt.Errorf("error searching links: %w", err)
	}

	live := links[:0]
	for _, l := range links {
		if !l.IsExpired() {
			live = append(live, l)
		}
	}
	if len(live) == 0 {
		return nil, &apperrors.ErrLinkNotFound{Alias: targetURL}
	}
	return live, nil
}

// ListOwned returns every live link of the owner as an alias-to-target map.
// An empty result is reported as not found.
func (s *LinkService) ListOwned(ctx context.Context, ownerID uint) (map[string]string, error) {
	links, err := s.linkRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing links: %w", err)
	}

	owned := make(map[string]string, len(links))
	for _, l := range links {
		if !l.IsExpired() {
			owned[l.Alias] = l.TargetURL
		}
	}
	if len(owned) == 0 {
		return nil, &apperrors.ErrLinkNotFound{Alias: "own links"}
	}
	return owned, nil
}

// DeleteLink removes a link. A missing alias is not found; an alias owned by
// someone else is forbidden, never a silent no-op.
func (s *LinkService) DeleteLink(ctx context.Context, alias string, ownerID uint) error {
	link, err := s.linkRepo.GetByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperrors.ErrLinkNotFound{Alias: alias}
		}
		return fmt.Errorf("error fetching link: %w", err)
	}
	if link.OwnerID != ownerID {
		return &apperrors.ErrForbidden{Alias: alias}
	}

	rows, err := s.linkRepo.Delete(ctx, alias, ownerID)
	if err != nil {
		return fmt.Errorf("error deleting link: %w", err)
	}
	if rows == 0 {
		// Lost a race with the sweeper or a concurrent delete.
		return &apperrors.ErrLinkNotFound{Alias: alias}
	}
	return nil
}

// UpdateLink renames a link and/or changes its expiry. Only the owner may
// update; a missing link is reported as forbidden as well, so the endpoint
// does not reveal whether an alias exists. When no new alias is given one is
// auto-generated with the same two-tier policy as creation. Visit counters
// and the last-used timestamp survive a rename.
func (s *LinkService) UpdateLink(ctx context.Context, alias, newAlias, expiresAtRaw string, ownerID uint) (*models.Link, error) {
	link, err := s.linkRepo.GetByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrForbidden{Alias: alias}
		}
		return nil, fmt.Errorf("error fetching link: %w", err)
	}
	if link.OwnerID != ownerID {
		return nil, &apperrors.ErrForbidden{Alias: alias}
	}

	fields := map[string]any{}

	if expiresAtRaw != "" {
		expiresAt, err := ParseExpiry(expiresAtRaw)
		if err != nil {
			return nil, err
		}
		fields["expires_at"] = expiresAt
		link.ExpiresAt = expiresAt
	}

	if newAlias != "" {
		fields["alias"] = newAlias
		if err := s.linkRepo.UpdateFields(ctx, alias, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, &apperrors.ErrAliasTaken{Alias: newAlias}
			}
			return nil, fmt.Errorf("error updating link: %w", err)
		}
		link.Alias = newAlias
		return link, nil
	}

	// No custom alias given: auto-generate the new one, 6 then 7 characters.
	for attempt, length := 0, DefaultAliasLength; attempt < 2; attempt, length = attempt+1, length+1 {
		candidate, err := s.generator.Generate(length)
		if err != nil {
			return nil, fmt.Errorf("error generating alias: %w", err)
		}
		fields["alias"] = candidate
		err = s.linkRepo.UpdateFields(ctx, alias, fields)
		if err == nil {
			link.Alias = candidate
			return link, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("error updating link: %w", err)
		}
		log.Printf("Alias '%s' already exists, retrying with length %d...", candidate, length+1)
	}

	return nil, &apperrors.ErrAliasExhausted{Attempts: 2}
}

// getLiveLink fetches a link and applies the expiry re-check shared by all
// read paths.
func (s *LinkService) getLiveLink(ctx context.Context, alias string) (*models.Link, error) {
	link, err := s.linkRepo.GetByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrLinkNotFound{Alias: alias}
		}
		return nil, fmt.Errorf("error fetching link: %w", err)
	}
	if link.IsExpired() {
		return nil, &apperrors.ErrLinkNotFound{Alias: alias}
	}
	return link, nil
}
