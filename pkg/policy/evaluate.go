package policy

import "github.com/goliatone/go-sharelinks/pkg/domain"

// DenyReason classifies why an access attempt was refused. Reasons are for
// the audit log; the viewer-facing transport degrades them to a generic
// denial.
type DenyReason string

const (
	DenyRevoked        DenyReason = "REVOKED"
	DenyExpired        DenyReason = "EXPIRED"
	DenyBlacklisted    DenyReason = "BLACKLISTED"
	DenyNotWhitelisted DenyReason = "NOT_WHITELISTED"
)

// Decision is the outcome of evaluating one access attempt.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	// Method and Value identify the blacklist policy that matched, or the
	// whitelist family that had no match. Audit only.
	Method domain.PolicyMethod
	Value  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason, method domain.PolicyMethod, value string) Decision {
	return Decision{Reason: reason, Method: method, Value: value}
}

// Evaluate decides whether the request context may view the link. It is a
// pure function of its inputs: no caching, no hidden state.
//
// Precedence: a revoked link denies unconditionally, then an elapsed
// expiration. Any matching blacklist policy denies and cannot be overridden
// by a whitelist. After that, every method family that has at least one
// whitelist policy must have at least one match; families without policies
// impose no constraint. A link with no policies at all allows.
func Evaluate(link domain.SharedLink, policies []domain.SharePolicy, ctx domain.RequestContext) Decision {
	if link.Revoked {
		return deny(DenyRevoked, "", "")
	}
	if !link.ExpiresAt.IsZero() && ctx.Time().After(link.ExpiresAt) {
		return deny(DenyExpired, "", "")
	}
	if len(policies) == 0 {
		return allow()
	}

	byMethod := make(map[domain.PolicyMethod][]domain.SharePolicy, len(policies))
	for _, p := range policies {
		byMethod[p.Method] = append(byMethod[p.Method], p)
	}

	// Blacklist pass: absolute, across every family.
	for _, method := range domain.PolicyMethods {
		for _, p := range byMethod[method] {
			if p.Type != domain.PolicyTypeBlacklist {
				continue
			}
			if policyMatches(p, ctx) {
				return deny(DenyBlacklisted, p.Method, p.Value)
			}
		}
	}

	// Whitelist pass: each family with whitelist policies needs a match.
	for _, method := range domain.PolicyMethods {
		hasWhitelist := false
		matched := false
		for _, p := range byMethod[method] {
			if p.Type != domain.PolicyTypeWhitelist {
				continue
			}
			hasWhitelist = true
			if policyMatches(p, ctx) {
				matched = true
				break
			}
		}
		if hasWhitelist && !matched {
			return deny(DenyNotWhitelisted, method, "")
		}
	}

	return allow()
}

// policyMatches tests a stored policy against the context. Values are
// validated at construction; a value that no longer parses counts as a
// non-match.
func policyMatches(p domain.SharePolicy, ctx domain.RequestContext) bool {
	matcher, err := Parse(p.Method, p.Value)
	if err != nil {
		return false
	}
	return matcher.Matches(ctx)
}
