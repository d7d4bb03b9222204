package policies

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-sharelinks/internal/storage/memory"
	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/policy"
	"github.com/google/uuid"
)

var testActor = domain.Actor{TenantID: "tenant-1", UserID: "user-1"}

func newFixture(t *testing.T) (*Service, *domain.SharedLink) {
	t.Helper()
	links := memory.NewLinkRepository()
	link := &domain.SharedLink{
		TenantID:     "tenant-1",
		ResourceType: domain.ResourceTypeDocument,
		ResourceID:   "doc-1",
		Token:        strings.Repeat("ab", 32),
	}
	if err := links.Create(context.Background(), link); err != nil {
		t.Fatalf("seed link: %v", err)
	}
	return NewService(links, memory.NewPolicyRepository(), nil), link
}

func TestCreateValidPolicy(t *testing.T) {
	svc, link := newFixture(t)

	created, err := svc.Create(context.Background(), testActor, link.ID, CreateInput{
		Type:   domain.PolicyTypeWhitelist,
		Method: domain.PolicyMethodIP,
		Value:  " 10.0.0.0/24 ",
		Reason: "office subnet",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Value != "10.0.0.0/24" {
		t.Fatalf("value should be trimmed, got %q", created.Value)
	}
	if created.TenantID != testActor.TenantID || created.CreatedBy != testActor.UserID {
		t.Fatalf("audit fields not stamped: %+v", created)
	}
}

func TestCreateRejectsMalformedValue(t *testing.T) {
	svc, link := newFixture(t)

	cases := []CreateInput{
		{Type: domain.PolicyTypeWhitelist, Method: domain.PolicyMethodIP, Value: "not-an-ip"},
		{Type: domain.PolicyTypeBlacklist, Method: domain.PolicyMethodMAC, Value: "zz:zz"},
		{Type: domain.PolicyTypeWhitelist, Method: domain.PolicyMethodTime, Value: "18:00-09:00"},
		{Type: domain.PolicyTypeWhitelist, Method: domain.PolicyMethodRegion, Value: "NOTACODE"},
		{Type: "GREYLIST", Method: domain.PolicyMethodIP, Value: "10.0.0.1"},
		{Type: domain.PolicyTypeWhitelist, Method: "DNA", Value: "x"},
	}
	for _, in := range cases {
		_, err := svc.Create(context.Background(), testActor, link.ID, in)
		var verr policy.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("input %+v: expected ValidationError, got %v", in, err)
		}
	}

	listed, err := svc.List(context.Background(), testActor, link.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("rejected policies must not persist, got %d", len(listed))
	}
}

func TestCreateUnknownLink(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Create(context.Background(), testActor, uuid.New(), CreateInput{
		Type: domain.PolicyTypeWhitelist, Method: domain.PolicyMethodIP, Value: "10.0.0.1",
	})
	if !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestCreateCrossTenantLink(t *testing.T) {
	svc, link := newFixture(t)

	other := domain.Actor{TenantID: "tenant-2", UserID: "user-9"}
	_, err := svc.Create(context.Background(), other, link.ID, CreateInput{
		Type: domain.PolicyTypeWhitelist, Method: domain.PolicyMethodIP, Value: "10.0.0.1",
	})
	if !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("cross-tenant link must look missing, got %v", err)
	}
}

func TestDeleteDistinguishesLinkFromPolicy(t *testing.T) {
	svc, link := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, link.ID, CreateInput{
		Type: domain.PolicyTypeBlacklist, Method: domain.PolicyMethodRegion, Value: "RU",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, testActor, uuid.New(), created.ID); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, testActor, link.ID, uuid.New()); !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}

	if err := svc.Delete(ctx, testActor, link.ID, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, testActor, link.ID, created.ID); !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound after delete, got %v", err)
	}
}

func TestDeletePolicyBelongingToOtherLink(t *testing.T) {
	svc, link := newFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, link.ID, CreateInput{
		Type: domain.PolicyTypeWhitelist, Method: domain.PolicyMethodDevice, Value: "device-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	otherLink := &domain.SharedLink{
		TenantID:     "tenant-1",
		ResourceType: domain.ResourceTypeSecret,
		Token:        strings.Repeat("cd", 32),
	}
	if err := svc.links.Create(ctx, otherLink); err != nil {
		t.Fatalf("seed second link: %v", err)
	}

	if err := svc.Delete(ctx, testActor, otherLink.ID, created.ID); !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("policy on another link must look missing, got %v", err)
	}
}
