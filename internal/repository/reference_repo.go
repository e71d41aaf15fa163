package repository

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ReferenceRepository performs point lookups on documents that records point to.
type ReferenceRepository struct {
	client      *firestore.Client
	tenantField string
}

func NewReferenceRepository(client *firestore.Client, tenantField string) *ReferenceRepository {
	return &ReferenceRepository{client: client, tenantField: tenantField}
}

// LookupTenant returns the tenant id stored on collection/id. found is false when the
// document does not exist; an existing document without a tenant returns ("", true, nil).
func (r *ReferenceRepository) LookupTenant(ctx context.Context, collection, id string) (string, bool, error) {
	snap, found, err := r.get(ctx, collection, id)
	if err != nil || !found {
		return "", found, err
	}
	tenant, err := tenantAt(snap.Data(), r.tenantField)
	if err != nil {
		return "", true, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return tenant, true, nil
}

// Exists reports whether collection/id is a stored document.
func (r *ReferenceRepository) Exists(ctx context.Context, collection, id string) (bool, error) {
	_, found, err := r.get(ctx, collection, id)
	return found, err
}

func (r *ReferenceRepository) get(ctx context.Context, collection, id string) (*firestore.DocumentSnapshot, bool, error) {
	if id == "" || strings.Contains(id, "/") {
		return nil, false, fmt.Errorf("invalid document id %q in %s", id, collection)
	}
	snap, err := r.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return snap, true, nil
}
