package reconcile

import (
	"context"
	"fmt"
)

// TenantLookup fetches the tenant stored on a referenced document. found is false when
// the document does not exist.
type TenantLookup interface {
	LookupTenant(ctx context.Context, collection, id string) (tenantID string, found bool, err error)
}

// resolution is what a reference resolved to. An empty tenantID means unresolvable and
// reason says why.
type resolution struct {
	tenantID string
	reason   string
}

func (r resolution) resolved() bool {
	return r.tenantID != ""
}

// lookupCache memoizes one lookup per distinct reference for the lifetime of a run.
// Failures are cached too, so a broken reference is queried once.
type lookupCache struct {
	lookup  TenantLookup
	entries map[Reference]resolution
	hits    int
	misses  int
}

func newLookupCache(lookup TenantLookup) *lookupCache {
	return &lookupCache{lookup: lookup, entries: make(map[Reference]resolution)}
}

// resolve returns the cached resolution of ref. err is non-nil only on the first,
// uncached lookup that failed with a read error.
func (c *lookupCache) resolve(ctx context.Context, ref Reference) (resolution, error) {
	if res, ok := c.entries[ref]; ok {
		c.hits++
		return res, nil
	}
	c.misses++

	tenant, found, err := c.lookup.LookupTenant(ctx, ref.Collection, ref.ID)
	var res resolution
	switch {
	case err != nil:
		res = resolution{reason: fmt.Sprintf("lookup %s failed: %v", ref, err)}
	case !found:
		res = resolution{reason: fmt.Sprintf("%s does not exist", ref)}
	case tenant == "":
		res = resolution{reason: fmt.Sprintf("%s has no tenant", ref)}
	default:
		res = resolution{tenantID: tenant}
	}
	c.entries[ref] = res
	return res, err
}
