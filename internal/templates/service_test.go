package templates

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-sharelinks/internal/storage/memory"
	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/google/uuid"
)

var testActor = domain.Actor{TenantID: "tenant-1", UserID: "user-1", Name: "Alex Doe"}

func newTestService(t *testing.T) *Service {
	t.Helper()
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return NewService(memory.NewTemplateRepository(), nil, renderer, nil)
}

func TestServiceCreateValidTemplate(t *testing.T) {
	svc := newTestService(t)

	tpl, err := svc.Create(context.Background(), testActor, CreateInput{
		Name:     "share-invite",
		Subject:  "{{ sender_name }} shared {{ resource_name }}",
		HTMLBody: "<p>Open it here: {{ share_link }}</p>",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tpl.ID == uuid.Nil {
		t.Fatalf("expected persisted id")
	}
	if tpl.TenantID != testActor.TenantID || tpl.CreatedBy != testActor.UserID {
		t.Fatalf("audit fields not stamped: %+v", tpl)
	}
}

func TestServiceCreateRejectsUnknownPlaceholders(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), testActor, CreateInput{
		Name:     "bad",
		Subject:  "Hello",
		HTMLBody: "<p>{{ not_a_variable }}</p>",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestServiceCreateRejectsEmptyFields(t *testing.T) {
	svc := newTestService(t)

	cases := []CreateInput{
		{Name: "", Subject: "s", HTMLBody: "b"},
		{Name: "n", Subject: " ", HTMLBody: "b"},
		{Name: "n", Subject: "s", HTMLBody: ""},
	}
	for _, in := range cases {
		var verr *ValidationError
		if _, err := svc.Create(context.Background(), testActor, in); !errors.As(err, &verr) {
			t.Fatalf("input %+v: expected ValidationError, got %v", in, err)
		}
	}
}

func TestServiceDefaultIsExclusive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, testActor, CreateInput{
		Name: "first", Subject: "One", HTMLBody: "<p>One</p>", IsDefault: true,
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(ctx, testActor, CreateInput{
		Name: "second", Subject: "Two", HTMLBody: "<p>Two</p>", IsDefault: true,
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	prior, err := svc.Get(ctx, testActor, first.ID)
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	if prior.IsDefault {
		t.Fatalf("setting a new default must clear the prior one")
	}
	current, err := svc.Get(ctx, testActor, second.ID)
	if err != nil {
		t.Fatalf("get second: %v", err)
	}
	if !current.IsDefault {
		t.Fatalf("second template should be the default")
	}
}

func TestServiceUpdateReplacesContents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.Create(ctx, testActor, CreateInput{
		Name: "invite", Subject: "Old", HTMLBody: "<p>Old</p>",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, testActor, tpl.ID, UpdateInput{
		Name: "invite", Subject: "New {{ resource_name }}", HTMLBody: "<p>{{ share_link }}</p>", IsDefault: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Subject != "New {{ resource_name }}" || !updated.IsDefault {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestServiceTenantIsolation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.Create(ctx, testActor, CreateInput{
		Name: "invite", Subject: "S", HTMLBody: "<p>B</p>",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := domain.Actor{TenantID: "tenant-2", UserID: "user-9"}
	if _, err := svc.Get(ctx, other, tpl.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("cross-tenant get must look missing, got %v", err)
	}
	if err := svc.Delete(ctx, other, tpl.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("cross-tenant delete must look missing, got %v", err)
	}
}

func TestServiceDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.Create(ctx, testActor, CreateInput{
		Name: "invite", Subject: "S", HTMLBody: "<p>B</p>",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, testActor, tpl.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, testActor, tpl.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("deleted template should not resolve, got %v", err)
	}
	if err := svc.Delete(ctx, testActor, uuid.New()); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestResolveNotificationFallbackChain(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// No templates at all: built-in default.
	subject, body, err := svc.ResolveNotification(ctx, testActor.TenantID, nil)
	if err != nil {
		t.Fatalf("resolve built-in: %v", err)
	}
	if subject != DefaultSubject || body != DefaultHTMLBody {
		t.Fatalf("expected built-in defaults")
	}

	// Tenant default takes over once present.
	def, err := svc.Create(ctx, testActor, CreateInput{
		Name: "tenant-default", Subject: "Tenant {{ resource_name }}", HTMLBody: "<p>{{ share_link }}</p>", IsDefault: true,
	})
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	subject, _, err = svc.ResolveNotification(ctx, testActor.TenantID, nil)
	if err != nil {
		t.Fatalf("resolve tenant default: %v", err)
	}
	if subject != def.Subject {
		t.Fatalf("expected tenant default subject, got %q", subject)
	}

	// Explicit template id wins over the default.
	named, err := svc.Create(ctx, testActor, CreateInput{
		Name: "named", Subject: "Named {{ resource_name }}", HTMLBody: "<p>{{ share_link }}</p>",
	})
	if err != nil {
		t.Fatalf("create named: %v", err)
	}
	subject, _, err = svc.ResolveNotification(ctx, testActor.TenantID, &named.ID)
	if err != nil {
		t.Fatalf("resolve named: %v", err)
	}
	if subject != named.Subject {
		t.Fatalf("expected named subject, got %q", subject)
	}

	// Unknown or cross-tenant ids surface as missing.
	missing := uuid.New()
	if _, _, err := svc.ResolveNotification(ctx, testActor.TenantID, &missing); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if _, _, err := svc.ResolveNotification(ctx, "tenant-2", &named.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("cross-tenant resolve must look missing, got %v", err)
	}
}

func TestServiceListPaging(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := svc.Create(ctx, testActor, CreateInput{Name: name, Subject: "S", HTMLBody: "<p>B</p>"}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	page, err := svc.List(ctx, testActor, store.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 || page.Total != 3 {
		t.Fatalf("unexpected page: items=%d total=%d", len(page.Items), page.Total)
	}
}
