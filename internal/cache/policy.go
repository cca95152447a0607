package cache

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnidentifiable is returned when a fragment has no policy or is missing a key field.
var ErrUnidentifiable = errors.New("fragment is not identifiable")

// Policy describes how records of one __typename are keyed.
type Policy struct {
	KeyFields []string
}

// Discriminator resolves a concrete __typename from a payload field when the
// payload omits __typename, e.g. orderType=SHIP -> ShipMiningOrder.
type Discriminator struct {
	Field    string
	Variants map[string]string
}

// Policies is the set of type policies a cache normalizes with. Types without
// a policy stay embedded in their parent record.
type Policies struct {
	Types          map[string]Policy
	Discriminators []Discriminator
}

// Typename returns the concrete type of f, resolving discriminators when
// __typename is absent.
func (p *Policies) Typename(f Fragment) string {
	if name := f.Typename(); name != "" {
		return name
	}
	if p == nil {
		return ""
	}
	for _, d := range p.Discriminators {
		value := strings.ToUpper(strings.TrimSpace(f.String(d.Field)))
		if value == "" {
			continue
		}
		if name, ok := d.Variants[value]; ok {
			return name
		}
	}
	return ""
}

// Identifiable reports whether records of f's type are stored standalone.
func (p *Policies) Identifiable(f Fragment) bool {
	if p == nil {
		return false
	}
	_, ok := p.Types[p.Typename(f)]
	return ok
}

// Identify returns the canonical cache id "<typename>:<key1>:<key2>...".
func (p *Policies) Identify(f Fragment) (string, error) {
	if p == nil {
		return "", fmt.Errorf("identify: no policies: %w", ErrUnidentifiable)
	}
	typename := p.Typename(f)
	if typename == "" {
		return "", fmt.Errorf("identify: missing __typename: %w", ErrUnidentifiable)
	}
	policy, ok := p.Types[typename]
	if !ok {
		return "", fmt.Errorf("identify %s: no type policy: %w", typename, ErrUnidentifiable)
	}
	parts := make([]string, 0, len(policy.KeyFields)+1)
	parts = append(parts, typename)
	for _, field := range policy.KeyFields {
		value := f.String(field)
		if value == "" {
			return "", fmt.Errorf("identify %s: missing key field %q: %w", typename, field, ErrUnidentifiable)
		}
		parts = append(parts, value)
	}
	return strings.Join(parts, ":"), nil
}
