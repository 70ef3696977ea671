package services

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/nkrasnikov/tinyurl/internal/errors"
	"github.com/nkrasnikov/tinyurl/internal/models"
	"github.com/nkrasnikov/tinyurl/internal/repository"
)

// stubGenerator returns a fixed sequence of aliases and records the lengths
// it was asked for.
type stubGenerator struct {
	codes   []string
	lengths []int
}

func (g *stubGenerator) Generate(length int) (string, error) {
	g.lengths = append(g.lengths, length)
	if len(g.codes) == 0 {
		return "", errors.New("stub generator exhausted")
	}
	code := g.codes[0]
	g.codes = g.codes[1:]
	return code, nil
}

func newTestService(gen AliasGenerator) (*LinkService, *repository.MemoryLinkRepository) {
	repo := repository.NewMemoryLinkRepository()
	if gen == nil {
		gen = NewRandomAliasGenerator()
	}
	return NewLinkService(repo, gen), repo
}

func TestCreateAndResolve(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, "https://example.com", "ex1", "", models.AnonymousUserID)
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if link.Alias != "ex1" {
		t.Fatalf("expected alias 'ex1', got '%s'", link.Alias)
	}
	if link.VisitCount != 0 {
		t.Fatalf("fresh link should have zero visits, got %d", link.VisitCount)
	}

	target, err := svc.ResolveLink(ctx, "ex1")
	if err != nil {
		t.Fatalf("ResolveLink failed: %v", err)
	}
	if target != "https://example.com" {
		t.Fatalf("expected target 'https://example.com', got '%s'", target)
	}

	stats, err := svc.GetLinkStats(ctx, "ex1")
	if err != nil {
		t.Fatalf("GetLinkStats failed: %v", err)
	}
	if stats.VisitCount != 1 {
		t.Fatalf("expected 1 visit after redirect, got %d", stats.VisitCount)
	}
}

func TestCreateCustomAliasTaken(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.CreateLink(ctx, "https://example.com", "taken1", "", models.AnonymousUserID); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := svc.CreateLink(ctx, "https://other.example.com", "taken1", "", models.AnonymousUserID)
	var aliasTaken *apperrors.ErrAliasTaken
	if !errors.As(err, &aliasTaken) {
		t.Fatalf("expected ErrAliasTaken, got %v", err)
	}
}

func TestCreateInvalidInputs(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	_, err := svc.CreateLink(ctx, "not-a-url", "", "", models.AnonymousUserID)
	var invalidURL *apperrors.ErrInvalidURL
	if !errors.As(err, &invalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}

	_, err = svc.CreateLink(ctx, "https://example.com", "", "2025-06-12 04:20", models.AnonymousUserID)
	var invalidExpiry *apperrors.ErrInvalidExpiry
	if !errors.As(err, &invalidExpiry) {
		t.Fatalf("expected ErrInvalidExpiry, got %v", err)
	}

	// Validation must reject before any store mutation.
	if repo.Len() != 0 {
		t.Fatalf("store should be empty after rejected creates, has %d links", repo.Len())
	}
}

func TestCreateTwoTierRetry(t *testing.T) {
	gen := &stubGenerator{codes: []string{"clash6", "free7xx"}}
	svc, _ := newTestService(gen)
	ctx := context.Background()

	// Occupy the 6-character candidate to force one collision.
	if _, err := svc.CreateLink(ctx, "https://example.com", "clash6", "", models.AnonymousUserID); err != nil {
		t.Fatalf("setup create failed: %v", err)
	}

	link, err := svc.CreateLink(ctx, "https://example.org", "", "", models.AnonymousUserID)
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if link.Alias != "free7xx" {
		t.Fatalf("expected fallback alias 'free7xx', got '%s'", link.Alias)
	}
	if len(gen.lengths) != 2 || gen.lengths[0] != 6 || gen.lengths[1] != 7 {
		t.Fatalf("expected exactly one 6-char and one 7-char attempt, got %v", gen.lengths)
	}
}

func TestCreateAliasExhausted(t *testing.T) {
	gen := &stubGenerator{codes: []string{"clash6", "clash7x"}}
	svc, _ := newTestService(gen)
	ctx := context.Background()

	for _, alias := range []string{"clash6", "clash7x"} {
		if _, err := svc.CreateLink(ctx, "https://example.com", alias, "", models.AnonymousUserID); err != nil {
			t.Fatalf("setup create failed: %v", err)
		}
	}

	_, err := svc.CreateLink(ctx, "https://example.org", "", "", models.AnonymousUserID)
	var exhausted *apperrors.ErrAliasExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ErrAliasExhausted after both tiers collide, got %v", err)
	}
	if exhausted.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", exhausted.Attempts)
	}
}

func TestSequentialVisitCount(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.CreateLink(ctx, "https://example.com", "count1", "", models.AnonymousUserID); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	before := time.Now()
	const k = 5
	for i := 0; i < k; i++ {
		if _, err := svc.ResolveLink(ctx, "count1"); err != nil {
			t.Fatalf("resolve %d failed: %v", i+1, err)
		}
	}

	stats, err := svc.GetLinkStats(ctx, "count1")
	if err != nil {
		t.Fatalf("GetLinkStats failed: %v", err)
	}
	if stats.VisitCount != k {
		t.Fatalf("expected %d visits, got %d", k, stats.VisitCount)
	}
	if stats.LastUsedAt == nil || stats.LastUsedAt.Before(before) {
		t.Fatalf("last_used_at should be at or after %v, got %v", before, stats.LastUsedAt)
	}
}

func TestExpiredLinkIsNotFound(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	// Past expiry is accepted at creation but the link never resolves.
	if _, err := svc.CreateLink(ctx, "https://example.com", "old1", "01.01.2000 00:00", models.AnonymousUserID); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := svc.ResolveLink(ctx, "old1")
	var notFound *apperrors.ErrLinkNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrLinkNotFound for expired link, got %v", err)
	}

	if _, err := svc.GetLinkStats(ctx, "old1"); !errors.As(err, &notFound) {
		t.Fatalf("stats of an expired link should be not found, got %v", err)
	}
}

func TestDeleteOwnership(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()
	const owner, stranger uint = 2, 3

	if _, err := svc.CreateLink(ctx, "https://example.com", "mine1", "", owner); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := svc.DeleteLink(ctx, "mine1", stranger)
	var forbidden *apperrors.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden for non-owner delete, got %v", err)
	}
	if repo.Len() != 1 {
		t.Fatalf("link must survive a forbidden delete")
	}

	if err := svc.DeleteLink(ctx, "mine1", owner); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if repo.Len() != 0 {
		t.Fatalf("link should be gone after owner delete")
	}

	err = svc.DeleteLink(ctx, "mine1", owner)
	var notFound *apperrors.ErrLinkNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrLinkNotFound for absent alias, got %v", err)
	}
}

func TestUpdateLink(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	const owner, stranger uint = 2, 3

	if _, err := svc.CreateLink(ctx, "https://example.com", "ren1", "", owner); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.ResolveLink(ctx, "ren1"); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
	}

	_, err := svc.UpdateLink(ctx, "ren1", "newname", "", stranger)
	var forbidden *apperrors.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden for non-owner update, got %v", err)
	}

	// A missing link reports forbidden as well, not found would reveal
	// whether the alias exists.
	if _, err := svc.UpdateLink(ctx, "ghost", "x", "", owner); !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden for absent alias, got %v", err)
	}

	link, err := svc.UpdateLink(ctx, "ren1", "newname", "31.12.2099 23:59", owner)
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if link.Alias != "newname" {
		t.Fatalf("expected alias 'newname', got '%s'", link.Alias)
	}

	// Counters survive a rename.
	stats, err := svc.GetLinkStats(ctx, "newname")
	if err != nil {
		t.Fatalf("stats after rename failed: %v", err)
	}
	if stats.VisitCount != 3 {
		t.Fatalf("visit count should survive rename, got %d", stats.VisitCount)
	}
	if stats.ExpiresAt == nil {
		t.Fatalf("expiry should be set after update")
	}

	// The old alias no longer resolves.
	var notFound *apperrors.ErrLinkNotFound
	if _, err := svc.ResolveLink(ctx, "ren1"); !errors.As(err, &notFound) {
		t.Fatalf("old alias should be gone, got %v", err)
	}
}

func TestUpdateLinkRenameConflict(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	const owner uint = 2

	for _, alias := range []string{"one111", "two222"} {
		if _, err := svc.CreateLink(ctx, "https://example.com", alias, "", owner); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	_, err := svc.UpdateLink(ctx, "one111", "two222", "", owner)
	var aliasTaken *apperrors.ErrAliasTaken
	if !errors.As(err, &aliasTaken) {
		t.Fatalf("expected ErrAliasTaken on rename conflict, got %v", err)
	}
}

func TestUpdateLinkAutoGenerate(t *testing.T) {
	gen := &stubGenerator{codes: []string{"other6", "fresh77"}}
	svc, _ := newTestService(gen)
	ctx := context.Background()
	const owner uint = 2

	if _, err := svc.CreateLink(ctx, "https://example.com", "other6", "", owner); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.CreateLink(ctx, "https://example.org", "auto66", "", owner); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	link, err := svc.UpdateLink(ctx, "auto66", "", "", owner)
	if err != nil {
		t.Fatalf("auto-rename failed: %v", err)
	}
	if link.Alias != "fresh77" {
		t.Fatalf("expected fallback alias 'fresh77', got '%s'", link.Alias)
	}
	if len(gen.lengths) != 2 || gen.lengths[0] != 6 || gen.lengths[1] != 7 {
		t.Fatalf("expected one 6-char and one 7-char attempt, got %v", gen.lengths)
	}
}

func TestFindByTarget(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	const owner, other uint = 2, 3

	if _, err := svc.CreateLink(ctx, "https://example.com", "fnd1", "", owner); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.CreateLink(ctx, "https://example.com", "fnd2", "", other); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	links, err := svc.FindByTarget(ctx, "https://example.com", owner)
	if err != nil {
		t.Fatalf("FindByTarget failed: %v", err)
	}
	if len(links) != 1 || links[0].Alias != "fnd1" {
		t.Fatalf("search must be scoped to the caller, got %+v", links)
	}

	_, err = svc.FindByTarget(ctx, "https://nothing.example.com", owner)
	var notFound *apperrors.ErrLinkNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrLinkNotFound for empty search, got %v", err)
	}
}

func TestListOwned(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	const owner uint = 2

	// Empty result is reported as not found.
	_, err := svc.ListOwned(ctx, owner)
	var notFound *apperrors.ErrLinkNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrLinkNotFound for empty listing, got %v", err)
	}

	if _, err := svc.CreateLink(ctx, "https://example.com", "own1", "", owner); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.CreateLink(ctx, "https://example.org", "own2", "", owner); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	owned, err := svc.ListOwned(ctx, owner)
	if err != nil {
		t.Fatalf("ListOwned failed: %v", err)
	}
	if len(owned) != 2 || owned["own1"] != "https://example.com" || owned["own2"] != "https://example.org" {
		t.Fatalf("unexpected listing: %v", owned)
	}
}
