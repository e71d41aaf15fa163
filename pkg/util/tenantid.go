package util

import (
	"fmt"
	"regexp"
	"strings"
)

// TenantIDFormat is the contract a canonical tenant identifier must satisfy.
type TenantIDFormat struct {
	pattern *regexp.Regexp
}

// NewTenantIDFormat compiles the canonical id pattern. An empty pattern is rejected so
// every caller states the contract it enforces.
func NewTenantIDFormat(pattern string) (TenantIDFormat, error) {
	if strings.TrimSpace(pattern) == "" {
		return TenantIDFormat{}, fmt.Errorf("tenant id pattern is empty")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return TenantIDFormat{}, fmt.Errorf("compile tenant id pattern %q: %w", pattern, err)
	}
	return TenantIDFormat{pattern: re}, nil
}

// Check returns nil when id satisfies the contract. Slug-shaped values are rejected
// whatever the pattern allows.
func (f TenantIDFormat) Check(id string) error {
	if id == "" {
		return fmt.Errorf("tenant id is empty")
	}
	if LooksLikeSlug(id) {
		return fmt.Errorf("tenant id %q looks like a slug, not a canonical id", id)
	}
	if !f.pattern.MatchString(id) {
		return fmt.Errorf("tenant id %q does not match %s", id, f.pattern.String())
	}
	return nil
}

// Valid reports whether id satisfies the contract.
func (f TenantIDFormat) Valid(id string) bool {
	return f.Check(id) == nil
}

// LooksLikeSlug is the legacy heuristic: a short lowercase string with separators.
// Lowercase hex ids such as UUIDs are not slugs.
func LooksLikeSlug(id string) bool {
	if len(id) > 40 || !strings.ContainsAny(id, "-_") {
		return false
	}
	if id != strings.ToLower(id) {
		return false
	}
	return strings.IndexFunc(id, func(r rune) bool { return r >= 'g' && r <= 'z' }) >= 0
}
