package audit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/util"
	"go.uber.org/zap"
)

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
)

// Pager scans a collection in id order.
type Pager interface {
	Page(ctx context.Context, after string, limit int) ([]model.TargetRecord, error)
}

// DocumentChecker reports whether a document exists.
type DocumentChecker interface {
	Exists(ctx context.Context, collection, id string) (bool, error)
}

// Options configures an audit.
type Options struct {
	Collection string
	// TenantsCollection enables the orphan check when set.
	TenantsCollection string
	PageSize          int
	Format            util.TenantIDFormat
}

// TenantCount is one row of the distribution.
type TenantCount struct {
	TenantID  string
	Records   int
	Malformed bool
	Orphan    bool
}

// Report is the tenant distribution of a collection.
type Report struct {
	Collection  string
	Scanned     int
	Pages       int
	Missing     int
	Malformed   int
	Invalid     int
	Orphans     int
	CheckErrors int
	Tenants     []TenantCount
}

// Run scans the collection and tallies tenant values. It never writes.
func Run(ctx context.Context, pager Pager, checker DocumentChecker, opts Options, logger *zap.Logger) (Report, error) {
	if opts.PageSize <= 0 {
		return Report{}, fmt.Errorf("audit: page size must be positive, got %d", opts.PageSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rep := Report{Collection: opts.Collection}
	counts := make(map[string]int)
	cursor := ""
	for {
		page, err := pager.Page(ctx, cursor, opts.PageSize)
		if err != nil {
			return rep, fmt.Errorf("scan %s: %w", opts.Collection, err)
		}
		if len(page) == 0 {
			break
		}
		rep.Pages++
		for _, rec := range page {
			rep.Scanned++
			switch {
			case rec.DecodeErr != nil:
				rep.Invalid++
			case !rec.HasTenant():
				rep.Missing++
			default:
				counts[rec.TenantID]++
			}
		}
		cursor = page[len(page)-1].ID
		logger.Debug("audit page", zap.Int("page", rep.Pages), zap.Int("scanned", rep.Scanned))
		if len(page) < opts.PageSize {
			break
		}
	}

	for id, n := range counts {
		tc := TenantCount{TenantID: id, Records: n, Malformed: !opts.Format.Valid(id)}
		if tc.Malformed {
			rep.Malformed += n
		}
		if opts.TenantsCollection != "" && checker != nil {
			exists, err := checker.Exists(ctx, opts.TenantsCollection, id)
			if err != nil {
				rep.CheckErrors++
				logger.Warn("tenant existence check failed", zap.String("tenant", id), zap.Error(err))
			} else if !exists {
				tc.Orphan = true
				rep.Orphans += n
			}
		}
		rep.Tenants = append(rep.Tenants, tc)
	}
	sort.Slice(rep.Tenants, func(i, j int) bool {
		if rep.Tenants[i].Records != rep.Tenants[j].Records {
			return rep.Tenants[i].Records > rep.Tenants[j].Records
		}
		return rep.Tenants[i].TenantID < rep.Tenants[j].TenantID
	})
	return rep, nil
}

// Render formats the report for the terminal.
func (r Report) Render() string {
	dist := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("TENANT", "RECORDS", "FLAGS")
	for _, tc := range r.Tenants {
		var flags []string
		if tc.Malformed {
			flags = append(flags, "malformed")
		}
		if tc.Orphan {
			flags = append(flags, "orphan")
		}
		dist.Row(tc.TenantID, strconv.Itoa(tc.Records), strings.Join(flags, ","))
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("=== Tenant Audit: %s ===", r.Collection)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Scanned:            %d (%d pages)\n", r.Scanned, r.Pages))
	b.WriteString(fmt.Sprintf("Missing tenant:     %d\n", r.Missing))
	b.WriteString(fmt.Sprintf("Malformed tenant:   %d\n", r.Malformed))
	b.WriteString(fmt.Sprintf("Orphaned tenant:    %d\n", r.Orphans))
	b.WriteString(fmt.Sprintf("Invalid value:      %d\n", r.Invalid))
	if r.CheckErrors > 0 {
		b.WriteString(fmt.Sprintf("Check errors:       %d\n", r.CheckErrors))
	}
	if len(r.Tenants) > 0 {
		b.WriteString(dist.Render())
		b.WriteString("\n")
	}
	if r.Consistent() {
		b.WriteString(okStyle.Render("Collection is consistent"))
	} else {
		b.WriteString(failStyle.Render("Collection needs attention"))
	}
	b.WriteString("\n")
	return b.String()
}

// Consistent reports whether nothing in the collection needs attention.
func (r Report) Consistent() bool {
	return r.Missing == 0 && r.Malformed == 0 && r.Orphans == 0 && r.Invalid == 0 && r.CheckErrors == 0
}
