package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
	"google.golang.org/api/iterator"
)

// maxBatchWrites is the Firestore limit on operations in one commit.
const maxBatchWrites = 500

// RecordRepository scans and patches one tenant-scoped collection.
type RecordRepository struct {
	client     *firestore.Client
	collection string
	fields     RecordFields
}

func NewRecordRepository(client *firestore.Client, collection string, fields RecordFields) *RecordRepository {
	return &RecordRepository{client: client, collection: collection, fields: fields}
}

// Page returns up to limit records ordered by document id, starting after the given id.
// Only the configured fields are fetched.
func (r *RecordRepository) Page(ctx context.Context, after string, limit int) ([]model.TargetRecord, error) {
	q := r.client.Collection(r.collection).
		Select(r.fields.paths()...).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(limit)
	if after != "" {
		q = q.StartAfter(after)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	page := make([]model.TargetRecord, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate %s after %q: %w", r.collection, after, err)
		}
		page = append(page, DecodeRecord(doc.Ref.ID, doc.Data(), doc.UpdateTime, r.fields))
	}
	return page, nil
}

// SetTenant fills the tenant field of every record in one atomic batch. Each update is
// guarded by the record's read time so a document changed since the scan is not
// overwritten; the whole batch fails instead.
func (r *RecordRepository) SetTenant(ctx context.Context, records []model.TargetRecord, tenantID string) error {
	if len(records) == 0 {
		return nil
	}
	if len(records) > maxBatchWrites {
		return fmt.Errorf("batch of %d exceeds firestore limit %d", len(records), maxBatchWrites)
	}

	batch := r.client.Batch()
	for _, rec := range records {
		if rec.DecodeErr != nil {
			return fmt.Errorf("record %s/%s was not decoded: %w", r.collection, rec.ID, rec.DecodeErr)
		}
		if rec.HasTenant() {
			return fmt.Errorf("record %s/%s already has tenant %q", r.collection, rec.ID, rec.TenantID)
		}
		var pre []firestore.Precondition
		if !rec.UpdateTime.IsZero() {
			pre = append(pre, firestore.LastUpdateTime(rec.UpdateTime))
		}
		ref := r.client.Collection(r.collection).Doc(rec.ID)
		batch.Update(ref, []firestore.Update{{Path: r.fields.Tenant, Value: tenantID}}, pre...)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit %d tenant updates to %s: %w", len(records), r.collection, err)
	}
	return nil
}
