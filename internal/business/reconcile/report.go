package reconcile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
)

// Report actions recorded per scanned record.
const (
	ActionSkipped     = "skipped"
	ActionWouldUpdate = "would_update"
	ActionUpdated     = "updated"
	ActionFailed      = "failed"
)

// Entry is one line of the audit log.
type Entry struct {
	Type           string        `json:"type"`
	RecordID       string        `json:"recordId,omitempty"`
	Outcome        model.Outcome `json:"outcome,omitempty"`
	Action         string        `json:"action,omitempty"`
	Reference      string        `json:"reference,omitempty"`
	ResolvedTenant string        `json:"resolvedTenant,omitempty"`
	CurrentTenant  string        `json:"currentTenant,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// RunHeader opens the audit log.
type RunHeader struct {
	Type       string    `json:"type"`
	RunID      string    `json:"runId"`
	Collection string    `json:"collection"`
	TenantID   string    `json:"tenantId"`
	Strategy   Strategy  `json:"strategy"`
	DryRun     bool      `json:"dryRun"`
	PageSize   int       `json:"pageSize"`
	BatchSize  int       `json:"batchSize"`
	StartedAt  time.Time `json:"startedAt"`
}

// RunFooter closes the audit log.
type RunFooter struct {
	Type       string         `json:"type"`
	RunID      string         `json:"runId"`
	Status     string         `json:"status"`
	Stats      model.RunStats `json:"stats"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// Report writes the line-oriented audit log. Every line is a single write, so a run
// that dies midway leaves a truncated but parseable file.
type Report struct {
	w    io.Writer
	path string
}

// NewReport writes the audit log to w.
func NewReport(w io.Writer) *Report {
	return &Report{w: w}
}

// CreateReportFile creates path (and its directory) and returns a Report writing to it.
func CreateReportFile(path string) (*Report, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("create report %s: %w", path, err)
	}
	return &Report{w: f, path: path}, f, nil
}

// Path is the file the report is written to, empty for in-memory reports.
func (r *Report) Path() string {
	return r.path
}

func (r *Report) Header(h RunHeader) error {
	h.Type = "run"
	return r.write(h)
}

func (r *Report) Record(e Entry) error {
	e.Type = "record"
	return r.write(e)
}

func (r *Report) Footer(f RunFooter) error {
	f.Type = "summary"
	return r.write(f)
}

func (r *Report) write(v interface{}) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode report line: %w", err)
	}
	line = append(line, '\n')
	if _, err := r.w.Write(line); err != nil {
		return fmt.Errorf("write report line: %w", err)
	}
	return nil
}

// DefaultReportPath names the audit log of a run inside dir.
func DefaultReportPath(dir, collection, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("reconcile-%s-%s.jsonl", collection, runID))
}
