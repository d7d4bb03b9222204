// Package resources provides resource store implementations: an HTTP
// client for a remote content service and an in-memory store for tests
// and embedders.
package resources

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-sharelinks/pkg/domain"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/logger"
	"github.com/goliatone/go-sharelinks/pkg/interfaces/resources"
)

// Config configures the HTTP resource store.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Headers map[string]string
}

// HTTPStore fetches resources from a remote content service over HTTP.
type HTTPStore struct {
	cfg    Config
	client *http.Client
	log    logger.Logger
}

type Option func(*HTTPStore)

// WithClient allows injecting a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *HTTPStore) {
		if c != nil {
			s.client = c
		}
	}
}

// NewHTTPStore builds an HTTP-backed resource store.
func NewHTTPStore(cfg Config, l logger.Logger, opts ...Option) (*HTTPStore, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("resources: base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("resources: invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if l == nil {
		l = &logger.Nop{}
	}
	store := &HTTPStore{
		cfg: cfg,
		log: l.With(logger.F("component", "resources")),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.client == nil {
		store.client = &http.Client{Timeout: cfg.Timeout}
	}
	return store, nil
}

// resourcePayload is the wire shape returned by the content service.
type resourcePayload struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"` // base64
}

// Fetch implements resources.Store.
func (s *HTTPStore) Fetch(ctx context.Context, tenantID string, resourceType domain.ResourceType, resourceID string) (*resources.Resource, error) {
	endpoint := fmt.Sprintf("%s/v1/resources/%s/%s",
		strings.TrimRight(s.cfg.BaseURL, "/"),
		strings.ToLower(string(resourceType)),
		url.PathEscape(resourceID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("resources: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", resources.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, resources.ErrResourceNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", resources.ErrStoreUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("resources: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload resourcePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("resources: decode response: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(payload.Content)
	if err != nil {
		return nil, fmt.Errorf("resources: decode content: %w", err)
	}

	s.log.Debug("resource fetched",
		logger.F("resource_type", string(resourceType)),
		logger.F("resource_id", resourceID),
		logger.F("bytes", len(data)),
	)
	return &resources.Resource{
		Name:        payload.Name,
		ContentType: payload.ContentType,
		Data:        data,
	}, nil
}
