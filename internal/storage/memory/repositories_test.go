package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/google/uuid"
)

func seedLink(t *testing.T, repo *LinkRepository, tok string) *domain.SharedLink {
	t.Helper()
	link := &domain.SharedLink{
		TenantID:       "tenant-1",
		ResourceType:   domain.ResourceTypeDocument,
		ResourceID:     "doc-1",
		ResourceName:   "Handbook",
		Token:          tok,
		RecipientEmail: "reader@example.com",
	}
	if err := repo.Create(context.Background(), link); err != nil {
		t.Fatalf("create link: %v", err)
	}
	return link
}

func TestMemoryLinkTokenConflict(t *testing.T) {
	repo := NewLinkRepository()
	tok := strings.Repeat("aa", 32)
	seedLink(t, repo, tok)

	dup := &domain.SharedLink{TenantID: "tenant-1", Token: tok}
	if err := repo.Create(context.Background(), dup); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryLinkGetByToken(t *testing.T) {
	repo := NewLinkRepository()
	link := seedLink(t, repo, strings.Repeat("bb", 32))

	got, err := repo.GetByToken(context.Background(), link.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got.ID != link.ID {
		t.Fatalf("wrong link returned")
	}

	if _, err := repo.GetByToken(context.Background(), strings.Repeat("00", 32)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryLinkListFilters(t *testing.T) {
	repo := NewLinkRepository()
	ctx := context.Background()
	seedLink(t, repo, strings.Repeat("01", 32))
	secret := &domain.SharedLink{
		TenantID:       "tenant-1",
		ResourceType:   domain.ResourceTypeSecret,
		Token:          strings.Repeat("02", 32),
		RecipientEmail: "OTHER@example.com",
	}
	if err := repo.Create(ctx, secret); err != nil {
		t.Fatalf("create secret link: %v", err)
	}

	res, err := repo.ListByTenant(ctx, "tenant-1", store.SharedLinkFilters{RecipientEmail: "other@example.com"}, store.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 1 || res.Items[0].ID != secret.ID {
		t.Fatalf("recipient filter mismatch: %+v", res)
	}

	paged, err := repo.ListByTenant(ctx, "tenant-1", store.SharedLinkFilters{}, store.ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if len(paged.Items) != 1 || paged.Total != 2 {
		t.Fatalf("pagination should not change the total: %+v", paged)
	}
}

func TestMemoryMarkViewedConcurrent(t *testing.T) {
	repo := NewLinkRepository()
	link := seedLink(t, repo, strings.Repeat("cc", 32))
	ctx := context.Background()

	const viewers = 16
	var wg sync.WaitGroup
	wins := make(chan time.Time, viewers)
	for i := 0; i < viewers; i++ {
		at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Second)
		wg.Add(1)
		go func(at time.Time) {
			defer wg.Done()
			_, won, err := repo.MarkViewed(ctx, link.ID, at)
			if err != nil {
				t.Errorf("mark viewed: %v", err)
				return
			}
			if won {
				wins <- at
			}
		}(at)
	}
	wg.Wait()
	close(wins)

	var winner []time.Time
	for at := range wins {
		winner = append(winner, at)
	}
	if len(winner) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winner))
	}

	got, err := repo.GetByID(ctx, link.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ViewedAt.Equal(winner[0]) {
		t.Fatalf("viewedAt must carry the winning stamp, got %v want %v", got.ViewedAt, winner[0])
	}
}

func TestMemoryRevokeIdempotent(t *testing.T) {
	repo := NewLinkRepository()
	link := seedLink(t, repo, strings.Repeat("dd", 32))
	ctx := context.Background()

	if err := repo.Revoke(ctx, link.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := repo.Revoke(ctx, link.ID); err != nil {
		t.Fatalf("repeat revoke: %v", err)
	}
	if err := repo.Revoke(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryPolicyListOrder(t *testing.T) {
	links := NewLinkRepository()
	policies := NewPolicyRepository()
	ctx := context.Background()
	link := seedLink(t, links, strings.Repeat("ee", 32))

	values := []string{"10.0.0.0/24", "192.168.0.0/16", "172.16.0.1"}
	for i, v := range values {
		p := &domain.SharePolicy{
			ShareLinkID: link.ID,
			TenantID:    "tenant-1",
			Type:        domain.PolicyTypeWhitelist,
			Method:      domain.PolicyMethodIP,
			Value:       v,
		}
		p.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
		if err := policies.Create(ctx, p); err != nil {
			t.Fatalf("create policy: %v", err)
		}
	}

	listed, err := policies.ListByLink(ctx, link.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != len(values) {
		t.Fatalf("expected %d policies, got %d", len(values), len(listed))
	}
	for i, p := range listed {
		if p.Value != values[i] {
			t.Fatalf("policies should come back oldest first, got %v", listed)
		}
	}
}

func TestMemoryTemplateDefaults(t *testing.T) {
	repo := NewTemplateRepository()
	ctx := context.Background()

	tpl := &domain.EmailTemplate{
		TenantID:  "tenant-1",
		Name:      "share-invite",
		Subject:   "A file was shared with you",
		HTMLBody:  "<p>{{ share_link }}</p>",
		IsDefault: true,
	}
	if err := repo.Create(ctx, tpl); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetDefault(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if got.ID != tpl.ID {
		t.Fatalf("wrong default")
	}
	if _, err := repo.GetDefault(ctx, "tenant-2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("defaults are tenant scoped, got %v", err)
	}

	if err := repo.ClearDefault(ctx, "tenant-1"); err != nil {
		t.Fatalf("clear default: %v", err)
	}
	if _, err := repo.GetDefault(ctx, "tenant-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}

	if err := repo.SoftDelete(ctx, tpl.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, tpl.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("soft deleted template should not resolve, got %v", err)
	}
}
