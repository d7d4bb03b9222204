// Package sharing is the embedding facade: it assembles the template,
// policy, and share services from storage providers and configuration.
package sharing

import (
	"errors"

	"github.com/goliatone/go-sharelinks/internal/policies"
	"github.com/goliatone/go-sharelinks/internal/shares"
	"github.com/goliatone/go-sharelinks/internal/templates"
	"github.com/goliatone/go-sharelinks/pkg/config"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/resources"
	"github.com/goliatone/go-sharelinks/pkg/mailer"
	"github.com/goliatone/go-sharelinks/pkg/storage"
	"github.com/goliatone/go-sharelinks/pkg/token"
)

// ModuleOptions configure the sharing module facade.
type ModuleOptions struct {
	Config    config.Config
	Storage   storage.Providers
	Logger    logger.Logger
	Resources resources.Store
	Sender    mailer.Sender
}

// Module bundles the assembled services.
type Module struct {
	templates *templates.Service
	policies  *policies.Service
	shares    *shares.Service
}

// ErrMissingResources is returned when no resource store is supplied:
// without one the viewer path cannot serve content.
var ErrMissingResources = errors.New("sharing: resource store is required")

// NewModule assembles repositories and services.
func NewModule(opts ModuleOptions) (*Module, error) {
	if opts.Resources == nil {
		return nil, ErrMissingResources
	}
	if opts.Logger == nil {
		opts.Logger = &logger.Nop{}
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, err
	}

	tplSvc := templates.NewService(opts.Storage.Templates, opts.Storage.Transaction, renderer, opts.Logger)
	policySvc := policies.NewService(opts.Storage.Links, opts.Storage.Policies, opts.Logger)
	shareSvc := shares.NewService(
		shares.Config{
			PublicBaseURL:    opts.Config.Sharing.PublicBaseURL,
			MaxTokenAttempts: opts.Config.Sharing.MaxTokenAttempts,
			NotifyTimeout:    opts.Config.Sharing.NotifyTimeout,
		},
		opts.Storage.Links,
		opts.Storage.Policies,
		policySvc,
		tplSvc,
		token.NewIssuer(),
		opts.Resources,
		opts.Sender,
		opts.Storage.Transaction,
		opts.Logger,
	)

	return &Module{
		templates: tplSvc,
		policies:  policySvc,
		shares:    shareSvc,
	}, nil
}

// Shares returns the share link service.
func (m *Module) Shares() *shares.Service {
	if m == nil {
		return nil
	}
	return m.shares
}

// Templates returns the template service.
func (m *Module) Templates() *templates.Service {
	if m == nil {
		return nil
	}
	return m.templates
}

// Policies returns the policy service.
func (m *Module) Policies() *policies.Service {
	if m == nil {
		return nil
	}
	return m.policies
}

// Shutdown drains background work (pending notification sends).
func (m *Module) Shutdown() {
	if m == nil || m.shares == nil {
		return
	}
	m.shares.Flush()
}
