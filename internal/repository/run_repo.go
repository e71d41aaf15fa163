package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrRunNotFound is returned by GetRun for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// RunRepository manages reconcile run summary records.
type RunRepository struct {
	client     *firestore.Client
	collection string
}

func NewRunRepository(client *firestore.Client, collection string) *RunRepository {
	return &RunRepository{client: client, collection: collection}
}

func (r *RunRepository) SaveRun(ctx context.Context, run model.ReconcileRun) error {
	if run.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	ref := r.client.Collection(r.collection).Doc(run.RunID)
	if _, err := ref.Set(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, runID string) (model.ReconcileRun, error) {
	snap, err := r.client.Collection(r.collection).Doc(runID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return model.ReconcileRun{}, ErrRunNotFound
	}
	if err != nil {
		return model.ReconcileRun{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	var run model.ReconcileRun
	if err := snap.DataTo(&run); err != nil {
		return model.ReconcileRun{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, optionally restricted to one target collection.
func (r *RunRepository) ListRuns(ctx context.Context, collection string, limit int) ([]model.ReconcileRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.client.Collection(r.collection).Query
	if collection != "" {
		q = q.Where("collection", "==", collection)
	}
	iter := q.OrderBy("startedAt", firestore.Desc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var runs []model.ReconcileRun
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate runs: %w", err)
		}
		var run model.ReconcileRun
		if err := doc.DataTo(&run); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", doc.Ref.ID, err)
		}
		if run.RunID == "" {
			run.RunID = doc.Ref.ID
		}
		runs = append(runs, run)
	}
	return runs, nil
}
