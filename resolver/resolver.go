// Package resolver turns human-readable handles into chain addresses.
package resolver

import (
	"context"
	"strings"
)

// Resolver maps an identifier to an address. An empty address with a nil
// error means the name has no record.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (string, error)
}

// Multi routes .eth names to ENS and .sol names to SNS. Any other identifier
// is returned trimmed with its case preserved.
type Multi struct {
	ENS Resolver
	SNS Resolver
}

func (m *Multi) Resolve(ctx context.Context, identifier string) (string, error) {
	id := strings.TrimSpace(identifier)
	lower := strings.ToLower(id)

	switch {
	case strings.HasSuffix(lower, ".eth"):
		if m.ENS == nil {
			return "", nil
		}
		return m.ENS.Resolve(ctx, lower)
	case strings.HasSuffix(lower, ".sol"):
		if m.SNS == nil {
			return "", nil
		}
		return m.SNS.Resolve(ctx, lower)
	default:
		return id, nil
	}
}

// IsHandle reports whether identifier carries a naming-service suffix.
func IsHandle(identifier string) bool {
	lower := strings.ToLower(strings.TrimSpace(identifier))
	return strings.HasSuffix(lower, ".eth") || strings.HasSuffix(lower, ".sol")
}

// Static resolves from a fixed table. Keys match case-insensitively.
type Static map[string]string

func (s Static) Resolve(_ context.Context, identifier string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(identifier))
	for name, addr := range s {
		if strings.ToLower(name) == key {
			return addr, nil
		}
	}
	return "", nil
}

// Passthrough returns every identifier unchanged apart from trimming.
type Passthrough struct{}

func (Passthrough) Resolve(_ context.Context, identifier string) (string, error) {
	return strings.TrimSpace(identifier), nil
}
