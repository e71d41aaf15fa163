package reconcile

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/weiwei-tsao/tenant-reconciler/internal/platform/config"
	"github.com/weiwei-tsao/tenant-reconciler/internal/repository"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/util"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// Strategy names how a missing tenant is derived.
type Strategy string

const (
	StrategyCreator Strategy = "creator"
	StrategyParent  Strategy = "parent"
	StrategyChain   Strategy = "chain"
)

// RefSpec is a foreign key: the field on the record and the collection it points into.
type RefSpec struct {
	Field      string `yaml:"field"`
	Collection string `yaml:"collection"`
}

func (r RefSpec) set() bool {
	return r.Field != "" && r.Collection != ""
}

// Preset is the stored parameterisation for one known collection.
type Preset struct {
	Collection  string   `yaml:"collection"`
	TenantField string   `yaml:"tenantField"`
	Strategy    Strategy `yaml:"strategy"`
	Creator     RefSpec  `yaml:"creator"`
	Parent      RefSpec  `yaml:"parent"`
}

// LoadPresets parses the embedded preset table.
func LoadPresets() (map[string]Preset, error) {
	presets := make(map[string]Preset)
	if err := yaml.Unmarshal(presetsYAML, &presets); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return presets, nil
}

// PresetNames returns the preset keys in stable order.
func PresetNames(presets map[string]Preset) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reference points at the document a record's tenant is derived from.
type Reference struct {
	Collection string
	ID         string
}

func (r Reference) String() string {
	return r.Collection + "/" + r.ID
}

// ReferenceFunc picks the foreign key a record is resolved through; false means the
// record carries no usable reference.
type ReferenceFunc func(rec model.TargetRecord) (Reference, bool)

// Options is the validated job input.
type Options struct {
	Collection   string
	TenantField  string
	TargetTenant string
	Strategy     Strategy
	Creator      RefSpec
	Parent       RefSpec
	DryRun       bool
	PageSize     int
	BatchSize    int
	Reference    ReferenceFunc
}

// Fields is the record projection the repository has to read.
func (o Options) Fields() repository.RecordFields {
	return repository.RecordFields{
		Tenant:  o.TenantField,
		Creator: o.Creator.Field,
		Parent:  o.Parent.Field,
	}
}

// BuildOptions merges the env input over the selected preset and validates the result.
// It performs no I/O; every error wraps config.ErrInvalid.
func BuildOptions(rc config.ReconcileConfig, format util.TenantIDFormat, presets map[string]Preset) (Options, error) {
	if err := rc.Validate(); err != nil {
		return Options{}, err
	}
	if err := format.Check(rc.TenantID); err != nil {
		return Options{}, fmt.Errorf("%w: RECONCILE_TENANT_ID: %v", config.ErrInvalid, err)
	}

	var base Preset
	if rc.Preset != "" {
		p, ok := presets[rc.Preset]
		if !ok {
			return Options{}, fmt.Errorf("%w: unknown RECONCILE_PRESET %q (known: %v)", config.ErrInvalid, rc.Preset, PresetNames(presets))
		}
		base = p
	}

	opts := Options{
		Collection:   firstNonEmpty(rc.Collection, base.Collection),
		TenantField:  firstNonEmpty(rc.TenantField, base.TenantField, "tenantId"),
		TargetTenant: rc.TenantID,
		Strategy:     Strategy(firstNonEmpty(rc.Strategy, string(base.Strategy))),
		Creator: RefSpec{
			Field:      firstNonEmpty(rc.CreatorField, base.Creator.Field),
			Collection: firstNonEmpty(rc.CreatorCollection, base.Creator.Collection),
		},
		Parent: RefSpec{
			Field:      firstNonEmpty(rc.ParentField, base.Parent.Field),
			Collection: firstNonEmpty(rc.ParentCollection, base.Parent.Collection),
		},
		DryRun:    rc.DryRun,
		PageSize:  rc.PageSize,
		BatchSize: rc.BatchSize,
	}

	if opts.Collection == "" {
		return Options{}, fmt.Errorf("%w: RECONCILE_COLLECTION is required without a preset", config.ErrInvalid)
	}
	ref, err := ReferenceFor(opts.Strategy, opts.Creator, opts.Parent)
	if err != nil {
		return Options{}, err
	}
	opts.Reference = ref
	return opts, nil
}

// ReferenceFor returns the resolution function of a strategy.
func ReferenceFor(strategy Strategy, creator, parent RefSpec) (ReferenceFunc, error) {
	byCreator := func(rec model.TargetRecord) (Reference, bool) {
		return Reference{Collection: creator.Collection, ID: rec.CreatorRef}, rec.CreatorRef != ""
	}
	byParent := func(rec model.TargetRecord) (Reference, bool) {
		return Reference{Collection: parent.Collection, ID: rec.ParentRef}, rec.ParentRef != ""
	}

	switch strategy {
	case StrategyCreator:
		if !creator.set() {
			return nil, fmt.Errorf("%w: strategy %q needs RECONCILE_CREATOR_FIELD and RECONCILE_CREATOR_COLLECTION", config.ErrInvalid, strategy)
		}
		return byCreator, nil
	case StrategyParent:
		if !parent.set() {
			return nil, fmt.Errorf("%w: strategy %q needs RECONCILE_PARENT_FIELD and RECONCILE_PARENT_COLLECTION", config.ErrInvalid, strategy)
		}
		return byParent, nil
	case StrategyChain:
		if !creator.set() || !parent.set() {
			return nil, fmt.Errorf("%w: strategy %q needs both parent and creator references", config.ErrInvalid, strategy)
		}
		return func(rec model.TargetRecord) (Reference, bool) {
			if ref, ok := byParent(rec); ok {
				return ref, true
			}
			return byCreator(rec)
		}, nil
	case "":
		return nil, fmt.Errorf("%w: RECONCILE_STRATEGY is required without a preset", config.ErrInvalid)
	default:
		return nil, fmt.Errorf("%w: unknown RECONCILE_STRATEGY %q", config.ErrInvalid, strategy)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
