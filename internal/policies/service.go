// Package policies manages the access policy sets attached to share
// links. Policies are immutable once created: operators add or remove
// whole rules instead of editing them in place.
package policies

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/store"
	"github.com/goliatone/go-sharelinks/pkg/policy"
	"github.com/google/uuid"
)

// ErrLinkNotFound signals that the share link the policy targets does
// not exist for the tenant.
var ErrLinkNotFound = errors.New("policies: share link not found")

// ErrPolicyNotFound signals that the link exists but carries no policy
// with the given id.
var ErrPolicyNotFound = errors.New("policies: policy not found on link")

// Service validates and persists per-link access policies.
type Service struct {
	links    store.SharedLinkRepository
	policies store.SharePolicyRepository
	log      logger.Logger
}

// NewService wires the policy service. A nil logger falls back to no-op.
func NewService(links store.SharedLinkRepository, policies store.SharePolicyRepository, log logger.Logger) *Service {
	if log == nil {
		log = &logger.Nop{}
	}
	return &Service{
		links:    links,
		policies: policies,
		log:      log.With(logger.F("component", "policies")),
	}
}

// CreateInput carries the fields for a new policy.
type CreateInput struct {
	Type   domain.PolicyType
	Method domain.PolicyMethod
	Value  string
	Reason string
}

// Create validates the policy value for its method and attaches the
// policy to an existing link. Nothing is persisted when validation
// fails.
func (s *Service) Create(ctx context.Context, actor domain.Actor, linkID uuid.UUID, in CreateInput) (*domain.SharePolicy, error) {
	if _, err := s.getLink(ctx, actor, linkID); err != nil {
		return nil, err
	}

	record, err := s.Build(actor, linkID, in)
	if err != nil {
		return nil, err
	}
	if err := s.policies.Create(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("policy created",
		logger.F("policy_id", record.ID.String()),
		logger.F("link_id", linkID.String()),
		logger.F("type", string(record.Type)),
		logger.F("method", string(record.Method)),
	)
	return record, nil
}

// Build validates the input and produces an unpersisted policy record.
// Link creation uses this to validate the full policy set before any
// write happens.
func (s *Service) Build(actor domain.Actor, linkID uuid.UUID, in CreateInput) (*domain.SharePolicy, error) {
	if !in.Type.Valid() {
		return nil, policy.ValidationError{Method: in.Method, Value: string(in.Type), Detail: "unknown policy type"}
	}
	if !in.Method.Valid() {
		return nil, policy.ValidationError{Method: in.Method, Value: in.Value, Detail: "unknown policy method"}
	}
	value := strings.TrimSpace(in.Value)
	if err := policy.Validate(in.Method, value); err != nil {
		return nil, err
	}

	return &domain.SharePolicy{
		ShareLinkID: linkID,
		TenantID:    actor.TenantID,
		Type:        in.Type,
		Method:      in.Method,
		Value:       value,
		Reason:      strings.TrimSpace(in.Reason),
		CreatedBy:   actor.UserID,
	}, nil
}

// List returns the policies attached to a link, oldest first.
func (s *Service) List(ctx context.Context, actor domain.Actor, linkID uuid.UUID) ([]domain.SharePolicy, error) {
	if _, err := s.getLink(ctx, actor, linkID); err != nil {
		return nil, err
	}
	return s.policies.ListByLink(ctx, linkID)
}

// Delete removes a single policy from a link. The error distinguishes a
// missing link from a missing policy on an existing link.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, linkID, policyID uuid.UUID) error {
	if _, err := s.getLink(ctx, actor, linkID); err != nil {
		return err
	}

	record, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPolicyNotFound
		}
		return err
	}
	if record.ShareLinkID != linkID {
		return ErrPolicyNotFound
	}

	if err := s.policies.Delete(ctx, policyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPolicyNotFound
		}
		return err
	}

	s.log.Info("policy deleted",
		logger.F("policy_id", policyID.String()),
		logger.F("link_id", linkID.String()),
	)
	return nil
}

func (s *Service) getLink(ctx context.Context, actor domain.Actor, linkID uuid.UUID) (*domain.SharedLink, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	if link.TenantID != actor.TenantID {
		return nil, ErrLinkNotFound
	}
	return link, nil
}
