package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
	"go.uber.org/zap"
)

// RecordStore scans and patches the target collection.
type RecordStore interface {
	// Page returns up to limit records ordered by id, starting after the given id.
	Page(ctx context.Context, after string, limit int) ([]model.TargetRecord, error)
	// SetTenant fills the tenant of every record in one atomic commit.
	SetTenant(ctx context.Context, records []model.TargetRecord, tenantID string) error
}

// Result is what a run produced.
type Result struct {
	Stats       model.RunStats
	ErrorSample []model.ErrorSample
}

const maxErrorSamples = 20

type runner struct {
	store  RecordStore
	report *Report
	opts   Options
	logger *zap.Logger
	cache  *lookupCache
	result Result
}

// Run streams the target collection one page at a time, classifies every record and
// fills the tenant of eligible ones in batches of at most opts.BatchSize (or only
// records them when opts.DryRun is set). Lookup and batch failures are counted in the
// result and never abort the run; the returned error covers scan, report and
// cancellation failures, in which case the partial result is still returned.
func Run(
	ctx context.Context,
	store RecordStore,
	lookup TenantLookup,
	report *Report,
	opts Options,
	logger *zap.Logger,
	onPage func(model.RunStats),
) (Result, error) {
	if opts.Reference == nil {
		return Result{}, errors.New("reconcile: no reference strategy configured")
	}
	if opts.PageSize <= 0 || opts.BatchSize <= 0 {
		return Result{}, fmt.Errorf("reconcile: page size %d and batch size %d must be positive", opts.PageSize, opts.BatchSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if report == nil {
		report = NewReport(io.Discard)
	}

	r := &runner{
		store:  store,
		report: report,
		opts:   opts,
		logger: logger.With(zap.String("collection", opts.Collection), zap.Bool("dryRun", opts.DryRun)),
		cache:  newLookupCache(lookup),
		result: Result{Stats: model.RunStats{ByOutcome: make(map[string]int)}},
	}
	err := r.run(ctx, onPage)
	r.result.Stats.CacheHits = r.cache.hits
	r.result.Stats.CacheMisses = r.cache.misses
	return r.result, err
}

func (r *runner) run(ctx context.Context, onPage func(model.RunStats)) error {
	stats := &r.result.Stats
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reconcile %s interrupted after %d records: %w", r.opts.Collection, stats.Scanned, err)
		}

		page, err := r.store.Page(ctx, cursor, r.opts.PageSize)
		if err != nil {
			return fmt.Errorf("scan %s: %w", r.opts.Collection, err)
		}
		if len(page) == 0 {
			return nil
		}
		stats.Pages++

		if err := r.processPage(ctx, page); err != nil {
			return err
		}
		cursor = page[len(page)-1].ID

		r.logger.Info("page processed",
			zap.Int("page", stats.Pages),
			zap.Int("size", len(page)),
			zap.Int("scanned", stats.Scanned),
			zap.Int("updated", stats.Updated),
			zap.Int("wouldUpdate", stats.WouldUpdate),
			zap.Int("errors", stats.Errors))
		if onPage != nil {
			onPage(*stats)
		}

		if len(page) < r.opts.PageSize {
			return nil
		}
	}
}

func (r *runner) processPage(ctx context.Context, page []model.TargetRecord) error {
	stats := &r.result.Stats
	var eligible []model.TargetRecord
	var pending []Entry

	for _, rec := range page {
		stats.Scanned++
		entry, lookupErr := r.classify(ctx, rec)
		stats.ByOutcome[string(entry.Outcome)]++

		if lookupErr != nil {
			stats.LookupErrors++
			stats.Errors++
			r.sample(rec.ID, lookupErr.Error())
			r.logger.Warn("reference lookup failed",
				zap.String("record", rec.ID),
				zap.String("reference", entry.Reference),
				zap.Error(lookupErr))
		}
		if entry.Outcome == model.OutcomeInvalid {
			stats.Errors++
			r.sample(rec.ID, entry.Reason)
			r.logger.Warn("record could not be decoded", zap.String("record", rec.ID), zap.String("reason", entry.Reason))
		}

		if entry.Outcome == model.OutcomeEligible {
			eligible = append(eligible, rec)
			pending = append(pending, entry)
			continue
		}
		entry.Action = ActionSkipped
		if err := r.report.Record(entry); err != nil {
			return err
		}
	}
	return r.apply(ctx, eligible, pending)
}

// classify assigns exactly one outcome. The returned error is a lookup read failure,
// already folded into the entry as unresolvable.
func (r *runner) classify(ctx context.Context, rec model.TargetRecord) (Entry, error) {
	entry := Entry{RecordID: rec.ID}
	if rec.DecodeErr != nil {
		entry.Outcome = model.OutcomeInvalid
		entry.Reason = rec.DecodeErr.Error()
		return entry, nil
	}

	if rec.HasTenant() {
		entry.CurrentTenant = rec.TenantID
		if rec.TenantID == r.opts.TargetTenant {
			entry.Outcome = model.OutcomeMatchesTarget
		} else {
			entry.Outcome = model.OutcomeDifferentTenant
		}
		return entry, nil
	}

	ref, ok := r.opts.Reference(rec)
	if !ok {
		entry.Outcome = model.OutcomeNoReference
		return entry, nil
	}
	entry.Reference = ref.String()

	res, err := r.cache.resolve(ctx, ref)
	switch {
	case !res.resolved():
		entry.Outcome = model.OutcomeUnresolvable
		entry.Reason = res.reason
	case res.tenantID == r.opts.TargetTenant:
		entry.Outcome = model.OutcomeEligible
		entry.ResolvedTenant = res.tenantID
	default:
		entry.Outcome = model.OutcomeDifferentViaReference
		entry.ResolvedTenant = res.tenantID
	}
	return entry, err
}

// apply commits eligible records in sub-batches; each sub-batch succeeds or fails on
// its own.
func (r *runner) apply(ctx context.Context, eligible []model.TargetRecord, entries []Entry) error {
	stats := &r.result.Stats
	for start := 0; start < len(eligible); start += r.opts.BatchSize {
		end := min(start+r.opts.BatchSize, len(eligible))
		chunk := eligible[start:end]

		action := ActionWouldUpdate
		var errMsg string
		if r.opts.DryRun {
			stats.WouldUpdate += len(chunk)
		} else if err := r.store.SetTenant(ctx, chunk, r.opts.TargetTenant); err != nil {
			stats.BatchesFailed++
			stats.Errors += len(chunk)
			action = ActionFailed
			errMsg = err.Error()
			r.sample(fmt.Sprintf("%s..%s", chunk[0].ID, chunk[len(chunk)-1].ID), errMsg)
			r.logger.Error("batch commit failed",
				zap.Int("records", len(chunk)),
				zap.String("first", chunk[0].ID),
				zap.String("last", chunk[len(chunk)-1].ID),
				zap.Error(err))
		} else {
			stats.BatchesCommitted++
			stats.Updated += len(chunk)
			action = ActionUpdated
		}

		for _, e := range entries[start:end] {
			e.Action = action
			e.Error = errMsg
			if err := r.report.Record(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *runner) sample(recordID, reason string) {
	if len(r.result.ErrorSample) >= maxErrorSamples {
		return
	}
	r.result.ErrorSample = append(r.result.ErrorSample, model.ErrorSample{RecordID: recordID, Reason: reason})
}

// Status maps a finished run to its persisted status.
func Status(stats model.RunStats, runErr error) string {
	switch {
	case runErr != nil:
		return model.RunStatusFailed
	case stats.Errors > 0:
		return model.RunStatusPartial
	default:
		return model.RunStatusSuccess
	}
}
