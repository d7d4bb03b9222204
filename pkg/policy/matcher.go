// Package policy models share-link access policies as typed matchers and
// implements the access decision over them. Values are validated when a
// policy is constructed, so evaluation never has to guess what a string
// means.
package policy

import (
	"fmt"
	"net"
	"net/netip"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-sharelinks/pkg/domain"
)

// ValidationError reports a policy value that does not parse for its method.
type ValidationError struct {
	Method domain.PolicyMethod
	Value  string
	Detail string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("policy: invalid %s value %q: %s", e.Method, e.Value, e.Detail)
}

// Matcher is one typed policy value, able to test a request context
// against itself.
type Matcher interface {
	Method() domain.PolicyMethod
	Matches(ctx domain.RequestContext) bool
}

const maxOpaqueLength = 128

var regionCode = regexp.MustCompile(`^[A-Za-z]{2}(-[A-Za-z0-9]{1,3})?$`)

// Parse validates value for the given method and returns the typed matcher.
func Parse(method domain.PolicyMethod, value string) (Matcher, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ValidationError{Method: method, Value: value, Detail: "value is required"}
	}

	switch method {
	case domain.PolicyMethodIP:
		return parseIP(value)
	case domain.PolicyMethodMAC:
		return parseMAC(value)
	case domain.PolicyMethodRegion:
		return parseRegion(value)
	case domain.PolicyMethodTime:
		return parseTimeWindow(value)
	case domain.PolicyMethodDevice, domain.PolicyMethodNetwork:
		return parseOpaque(method, value)
	default:
		return nil, ValidationError{Method: method, Value: value, Detail: "unknown policy method"}
	}
}

// Validate checks value for method without keeping the matcher.
func Validate(method domain.PolicyMethod, value string) error {
	_, err := Parse(method, value)
	return err
}

type ipMatcher struct {
	addr   netip.Addr
	prefix netip.Prefix
	isCIDR bool
}

func parseIP(value string) (Matcher, error) {
	if prefix, err := netip.ParsePrefix(value); err == nil {
		return ipMatcher{prefix: prefix.Masked(), isCIDR: true}, nil
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return nil, ValidationError{Method: domain.PolicyMethodIP, Value: value, Detail: "not an IP address or CIDR block"}
	}
	return ipMatcher{addr: addr.Unmap()}, nil
}

func (m ipMatcher) Method() domain.PolicyMethod { return domain.PolicyMethodIP }

func (m ipMatcher) Matches(ctx domain.RequestContext) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ctx.IP))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if m.isCIDR {
		return m.prefix.Contains(addr)
	}
	return m.addr == addr
}

type macMatcher struct {
	// normalized lowercase colon-separated byte groups; a prefix when
	// fewer than six groups were supplied
	canonical string
	isPrefix  bool
}

func parseMAC(value string) (Matcher, error) {
	if hw, err := net.ParseMAC(value); err == nil {
		return macMatcher{canonical: hw.String()}, nil
	}
	groups := strings.Split(strings.ToLower(strings.ReplaceAll(value, "-", ":")), ":")
	if len(groups) < 1 || len(groups) >= 6 {
		return nil, ValidationError{Method: domain.PolicyMethodMAC, Value: value, Detail: "not a MAC address or prefix"}
	}
	for _, g := range groups {
		if len(g) != 2 || !isHexPair(g) {
			return nil, ValidationError{Method: domain.PolicyMethodMAC, Value: value, Detail: "not a MAC address or prefix"}
		}
	}
	return macMatcher{canonical: strings.Join(groups, ":"), isPrefix: true}, nil
}

func isHexPair(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func (m macMatcher) Method() domain.PolicyMethod { return domain.PolicyMethodMAC }

func (m macMatcher) Matches(ctx domain.RequestContext) bool {
	hw, err := net.ParseMAC(strings.TrimSpace(ctx.MAC))
	if err != nil {
		return false
	}
	canonical := hw.String()
	if m.isPrefix {
		return strings.HasPrefix(canonical, m.canonical+":")
	}
	return canonical == m.canonical
}

type regionMatcher struct {
	code string
}

func parseRegion(value string) (Matcher, error) {
	if !regionCode.MatchString(value) {
		return nil, ValidationError{Method: domain.PolicyMethodRegion, Value: value, Detail: "not a recognized region code"}
	}
	return regionMatcher{code: strings.ToUpper(value)}, nil
}

func (m regionMatcher) Method() domain.PolicyMethod { return domain.PolicyMethodRegion }

func (m regionMatcher) Matches(ctx domain.RequestContext) bool {
	return strings.ToUpper(strings.TrimSpace(ctx.Region)) == m.code
}

// timeMatcher covers both window forms: a recurring daily window
// ("09:00-17:30", UTC time of day) and an absolute one
// ("2026-01-02T15:04:05Z/2026-01-03T15:04:05Z").
type timeMatcher struct {
	daily      bool
	startOfDay int // minutes since midnight UTC
	endOfDay   int
	start      time.Time
	end        time.Time
}

func parseTimeWindow(value string) (Matcher, error) {
	if strings.Contains(value, "/") {
		parts := strings.SplitN(value, "/", 2)
		start, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, ValidationError{Method: domain.PolicyMethodTime, Value: value, Detail: "window start is not RFC 3339"}
		}
		end, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, ValidationError{Method: domain.PolicyMethodTime, Value: value, Detail: "window end is not RFC 3339"}
		}
		if !end.After(start) {
			return nil, ValidationError{Method: domain.PolicyMethodTime, Value: value, Detail: "window end precedes start"}
		}
		return timeMatcher{start: start, end: end}, nil
	}

	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return nil, ValidationError{Method: domain.PolicyMethodTime, Value: value, Detail: "expected HH:MM-HH:MM or RFC 3339 interval"}
	}
	start, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, ValidationError{Method: domain.PolicyMethodTime, Value: value, Detail: "window start is not HH:MM"}
	}
	end, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, ValidationError{Method: domain.PolicyMethodTime, Value: value, Detail: "window end is not HH:MM"}
	}
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if endMin <= startMin {
		// Overnight windows are expressed as two policies; whitelist
		// policies of the same method OR together.
		return nil, ValidationError{Method: domain.PolicyMethodTime, Value: value, Detail: "window end precedes start"}
	}
	return timeMatcher{daily: true, startOfDay: startMin, endOfDay: endMin}, nil
}

func (m timeMatcher) Method() domain.PolicyMethod { return domain.PolicyMethodTime }

func (m timeMatcher) Matches(ctx domain.RequestContext) bool {
	now := ctx.Time()
	if m.daily {
		utc := now.UTC()
		minutes := utc.Hour()*60 + utc.Minute()
		return minutes >= m.startOfDay && minutes <= m.endOfDay
	}
	return !now.Before(m.start) && !now.After(m.end)
}

type opaqueMatcher struct {
	method domain.PolicyMethod
	value  string
}

func parseOpaque(method domain.PolicyMethod, value string) (Matcher, error) {
	if len(value) > maxOpaqueLength {
		return nil, ValidationError{Method: method, Value: value, Detail: fmt.Sprintf("identifier exceeds %d characters", maxOpaqueLength)}
	}
	return opaqueMatcher{method: method, value: value}, nil
}

func (m opaqueMatcher) Method() domain.PolicyMethod { return m.method }

func (m opaqueMatcher) Matches(ctx domain.RequestContext) bool {
	switch m.method {
	case domain.PolicyMethodDevice:
		return ctx.DeviceID != "" && ctx.DeviceID == m.value
	case domain.PolicyMethodNetwork:
		return ctx.NetworkID != "" && ctx.NetworkID == m.value
	default:
		return false
	}
}
