package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
)

const (
	targetTenant = "TgT0000000000000000A"
	otherTenant  = "OtH0000000000000000B"
)

// memStore is an in-memory collection ordered by id.
type memStore struct {
	records   map[string]model.TargetRecord
	pageCalls int
	maxPage   int
	commits   [][]string
	// failBatch makes the n-th SetTenant call (1-based) fail.
	failBatch int
	setCalls  int
	pageErr   error
}

func newMemStore(records ...model.TargetRecord) *memStore {
	s := &memStore{records: make(map[string]model.TargetRecord)}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *memStore) Page(ctx context.Context, after string, limit int) ([]model.TargetRecord, error) {
	s.pageCalls++
	if s.pageErr != nil {
		return nil, s.pageErr
	}
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	page := make([]model.TargetRecord, 0, len(ids))
	for _, id := range ids {
		page = append(page, s.records[id])
	}
	if len(page) > s.maxPage {
		s.maxPage = len(page)
	}
	return page, nil
}

func (s *memStore) SetTenant(ctx context.Context, records []model.TargetRecord, tenantID string) error {
	s.setCalls++
	if s.failBatch == s.setCalls {
		return errors.New("rpc error: code = Aborted desc = too much contention")
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		stored := s.records[r.ID]
		if stored.TenantID != "" {
			return fmt.Errorf("record %s already has tenant %s", r.ID, stored.TenantID)
		}
		stored.TenantID = tenantID
		s.records[r.ID] = stored
		ids = append(ids, r.ID)
	}
	s.commits = append(s.commits, ids)
	return nil
}

func (s *memStore) tenantOf(id string) string {
	return s.records[id].TenantID
}

type docTenant struct {
	tenant string
}

// memLookup serves referenced documents keyed by "collection/id".
type memLookup struct {
	docs   map[string]docTenant
	errs   map[string]error
	calls  int
	perRef map[string]int
}

func newMemLookup() *memLookup {
	return &memLookup{docs: make(map[string]docTenant), errs: make(map[string]error), perRef: make(map[string]int)}
}

func (l *memLookup) add(collection, id, tenant string) *memLookup {
	l.docs[collection+"/"+id] = docTenant{tenant: tenant}
	return l
}

func (l *memLookup) LookupTenant(ctx context.Context, collection, id string) (string, bool, error) {
	key := collection + "/" + id
	l.calls++
	l.perRef[key]++
	if err, ok := l.errs[key]; ok {
		return "", false, err
	}
	doc, ok := l.docs[key]
	if !ok {
		return "", false, nil
	}
	return doc.tenant, true, nil
}

func creatorOptions(dryRun bool) Options {
	creator := RefSpec{Field: "createdBy", Collection: "users"}
	ref, err := ReferenceFor(StrategyCreator, creator, RefSpec{})
	if err != nil {
		panic(err)
	}
	return Options{
		Collection:   "contacts",
		TenantField:  "tenantId",
		TargetTenant: targetTenant,
		Strategy:     StrategyCreator,
		Creator:      creator,
		DryRun:       dryRun,
		PageSize:     4,
		BatchSize:    3,
		Reference:    ref,
	}
}

func contact(id, tenant, creator string) model.TargetRecord {
	return model.TargetRecord{ID: id, TenantID: tenant, CreatorRef: creator}
}
