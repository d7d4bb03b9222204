package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordMeta captures identifiers and audit fields shared across entities.
type RecordMeta struct {
	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt time.Time `bun:",soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureID assigns a UUID when the struct is about to be persisted.
func (m *RecordMeta) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// ResourceType identifies the kind of resource behind a share link.
type ResourceType string

const (
	ResourceTypeSecret   ResourceType = "SECRET"
	ResourceTypeDocument ResourceType = "DOCUMENT"
)

// Valid reports whether the value is a known resource type.
func (r ResourceType) Valid() bool {
	return r == ResourceTypeSecret || r == ResourceTypeDocument
}

// PolicyType selects whitelist (opt-in) or blacklist (opt-out) semantics.
type PolicyType string

const (
	PolicyTypeWhitelist PolicyType = "WHITELIST"
	PolicyTypeBlacklist PolicyType = "BLACKLIST"
)

// Valid reports whether the value is a known policy type.
func (p PolicyType) Valid() bool {
	return p == PolicyTypeWhitelist || p == PolicyTypeBlacklist
}

// PolicyMethod names the request attribute a policy constrains.
type PolicyMethod string

const (
	PolicyMethodIP      PolicyMethod = "IP"
	PolicyMethodMAC     PolicyMethod = "MAC"
	PolicyMethodRegion  PolicyMethod = "REGION"
	PolicyMethodTime    PolicyMethod = "TIME"
	PolicyMethodDevice  PolicyMethod = "DEVICE"
	PolicyMethodNetwork PolicyMethod = "NETWORK"
)

// PolicyMethods lists every method in evaluation order. Keeping the order
// fixed makes deny reasons deterministic regardless of policy insertion
// order.
var PolicyMethods = []PolicyMethod{
	PolicyMethodIP,
	PolicyMethodMAC,
	PolicyMethodRegion,
	PolicyMethodTime,
	PolicyMethodDevice,
	PolicyMethodNetwork,
}

// Valid reports whether the value is a known policy method.
func (m PolicyMethod) Valid() bool {
	for _, known := range PolicyMethods {
		if m == known {
			return true
		}
	}
	return false
}

// SharedLink grants token-addressable, policy-gated access to one resource.
type SharedLink struct {
	bun.BaseModel `bun:"table:shared_links"`
	RecordMeta

	TenantID       string       `bun:",nullzero,notnull" json:"tenant_id"`
	ResourceType   ResourceType `bun:",nullzero,notnull" json:"resource_type"`
	ResourceID     string       `bun:",nullzero,notnull" json:"resource_id"`
	ResourceName   string       `bun:",nullzero" json:"resource_name"`
	Token          string       `bun:",unique,nullzero,notnull" json:"token"`
	RecipientEmail string       `bun:",nullzero,notnull" json:"recipient_email"`
	Message        string       `bun:",nullzero" json:"message,omitempty"`
	Viewed         bool         `bun:",nullzero" json:"viewed"`
	ViewedAt       time.Time    `bun:",nullzero" json:"viewed_at,omitempty"`
	Revoked        bool         `bun:",nullzero" json:"revoked"`
	ExpiresAt      time.Time    `bun:",nullzero" json:"expires_at,omitempty"`
	CreatedBy      string       `bun:",nullzero" json:"created_by,omitempty"`

	// Populated by the service on reads, never persisted directly.
	Policies []SharePolicy `bun:"-" json:"policies,omitempty"`
}

// SharePolicy is one whitelist or blacklist rule attached to a link.
// Policies are immutable once created; update is delete + recreate.
type SharePolicy struct {
	bun.BaseModel `bun:"table:share_policies"`
	RecordMeta

	ShareLinkID uuid.UUID    `bun:",type:uuid,nullzero,notnull" json:"share_link_id"`
	TenantID    string       `bun:",nullzero,notnull" json:"tenant_id"`
	Type        PolicyType   `bun:",nullzero,notnull" json:"type"`
	Method      PolicyMethod `bun:",nullzero,notnull" json:"method"`
	Value       string       `bun:",nullzero,notnull" json:"value"`
	Reason      string       `bun:",nullzero" json:"reason,omitempty"`
	CreatedBy   string       `bun:",nullzero" json:"created_by,omitempty"`
}

// EmailTemplate stores a tenant-scoped notification template. At most one
// template per tenant carries IsDefault; setting a new default clears the
// prior one.
type EmailTemplate struct {
	bun.BaseModel `bun:"table:email_templates"`
	RecordMeta

	TenantID  string `bun:",nullzero,notnull" json:"tenant_id"`
	Name      string `bun:",nullzero,notnull" json:"name"`
	Subject   string `bun:",nullzero,notnull" json:"subject"`
	HTMLBody  string `bun:",nullzero,notnull" json:"html_body"`
	IsDefault bool   `bun:",nullzero" json:"is_default"`
	CreatedBy string `bun:",nullzero" json:"created_by,omitempty"`
	UpdatedBy string `bun:",nullzero" json:"updated_by,omitempty"`
}

// Actor identifies the tenant and operator performing an admin operation.
// It is passed explicitly into every core operation, never carried as
// ambient state.
type Actor struct {
	TenantID string
	UserID   string
	Name     string
}

// RequestContext carries the attributes of a viewer access attempt.
// It is ephemeral: supplied by the transport layer, consumed only during
// policy evaluation.
type RequestContext struct {
	IP        string
	MAC       string
	Region    string
	Now       time.Time
	DeviceID  string
	NetworkID string
}

// Time returns the evaluation instant, defaulting to wall clock when the
// transport did not stamp one.
func (c RequestContext) Time() time.Time {
	if c.Now.IsZero() {
		return time.Now().UTC()
	}
	return c.Now
}
