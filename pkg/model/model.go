package model

import "time"

// TargetRecord is the slice of a tenant-scoped document the reconciler cares about.
// Field names differ per collection, so the repository decodes it from configured paths.
type TargetRecord struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId,omitempty"`
	CreatorRef string    `json:"creatorRef,omitempty"`
	ParentRef  string    `json:"parentRef,omitempty"`
	UpdateTime time.Time `json:"-"`

	// DecodeErr is set when a configured field exists but is not a string.
	DecodeErr error `json:"-"`
}

// HasTenant reports whether the tenant field carries a value.
func (r TargetRecord) HasTenant() bool {
	return r.TenantID != ""
}

// Outcome is the single classification a scanned record receives.
type Outcome string

const (
	OutcomeMatchesTarget         Outcome = "matches_target"
	OutcomeDifferentTenant       Outcome = "different_tenant"
	OutcomeNoReference           Outcome = "no_reference"
	OutcomeEligible              Outcome = "eligible"
	OutcomeDifferentViaReference Outcome = "different_tenant_via_reference"
	OutcomeUnresolvable          Outcome = "unresolvable"
	OutcomeInvalid               Outcome = "invalid"
)

// Outcomes lists every outcome in classification priority order.
var Outcomes = []Outcome{
	OutcomeMatchesTarget,
	OutcomeDifferentTenant,
	OutcomeNoReference,
	OutcomeEligible,
	OutcomeDifferentViaReference,
	OutcomeUnresolvable,
	OutcomeInvalid,
}

// RunStats stores aggregated counters for a reconcile run.
type RunStats struct {
	Scanned          int            `json:"scanned" firestore:"scanned"`
	Pages            int            `json:"pages" firestore:"pages"`
	ByOutcome        map[string]int `json:"byOutcome,omitempty" firestore:"byOutcome,omitempty"`
	Updated          int            `json:"updated" firestore:"updated"`
	WouldUpdate      int            `json:"wouldUpdate" firestore:"wouldUpdate"`
	Errors           int            `json:"errors" firestore:"errors"`
	LookupErrors     int            `json:"lookupErrors" firestore:"lookupErrors"`
	CacheHits        int            `json:"cacheHits" firestore:"cacheHits"`
	CacheMisses      int            `json:"cacheMisses" firestore:"cacheMisses"`
	BatchesCommitted int            `json:"batchesCommitted" firestore:"batchesCommitted"`
	BatchesFailed    int            `json:"batchesFailed" firestore:"batchesFailed"`
}

// ReconcileRun tracks one execution of the reconciler; persisted in `reconcile_runs`.
type ReconcileRun struct {
	RunID       string        `json:"runId,omitempty" firestore:"runId,omitempty"`
	Collection  string        `json:"collection,omitempty" firestore:"collection,omitempty"`
	TenantID    string        `json:"tenantId,omitempty" firestore:"tenantId,omitempty"`
	Strategy    string        `json:"strategy,omitempty" firestore:"strategy,omitempty"`
	DryRun      bool          `json:"dryRun" firestore:"dryRun"`
	Status      string        `json:"status,omitempty" firestore:"status,omitempty"`
	Stats       RunStats      `json:"stats" firestore:"stats"`
	ReportPath  string        `json:"reportPath,omitempty" firestore:"reportPath,omitempty"`
	StartedAt   time.Time     `json:"startedAt,omitempty" firestore:"startedAt,omitempty"`
	FinishedAt  time.Time     `json:"finishedAt,omitempty" firestore:"finishedAt,omitempty"`
	ErrorSample []ErrorSample `json:"errorsSample,omitempty" firestore:"errorsSample,omitempty"`
}

// ErrorSample captures a subset of errors for observability without heavy logging.
type ErrorSample struct {
	RecordID string `json:"recordId,omitempty" firestore:"recordId,omitempty"`
	Reason   string `json:"reason,omitempty" firestore:"reason,omitempty"`
}

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial_failure"
	RunStatusFailed  = "failed"
)
