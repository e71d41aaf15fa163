package repository

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/weiwei-tsao/tenant-reconciler/pkg/model"
)

// RecordFields names the document fields a TargetRecord is decoded from.
// Creator and Parent may be empty when the collection has no such reference.
type RecordFields struct {
	Tenant  string
	Creator string
	Parent  string
}

func (f RecordFields) paths() []string {
	out := []string{f.Tenant}
	if f.Creator != "" {
		out = append(out, f.Creator)
	}
	if f.Parent != "" {
		out = append(out, f.Parent)
	}
	return out
}

// DecodeRecord validates the loosely typed document at the boundary. Absent or null
// fields decode to "", wrong types set DecodeErr. The tenant value is taken verbatim:
// a blank or padded tenant is a stored value, not a missing one, and sets DecodeErr.
func DecodeRecord(id string, data map[string]interface{}, updated time.Time, fields RecordFields) model.TargetRecord {
	rec := model.TargetRecord{ID: id, UpdateTime: updated}

	var err error
	if rec.TenantID, err = tenantAt(data, fields.Tenant); err != nil {
		rec.DecodeErr = err
		return rec
	}
	if rec.CreatorRef, err = stringAt(data, fields.Creator); err != nil {
		rec.DecodeErr = err
		return rec
	}
	if rec.ParentRef, err = stringAt(data, fields.Parent); err != nil {
		rec.DecodeErr = err
	}
	return rec
}

// tenantAt reads a tenant id without normalising it. Only an absent, null or empty
// field counts as missing.
func tenantAt(data map[string]interface{}, path string) (string, error) {
	v, err := valueAt(data, path)
	if err != nil {
		return "", err
	}
	if v != strings.TrimSpace(v) {
		return "", fmt.Errorf("field %q has non-canonical value %q", path, v)
	}
	return v, nil
}

// stringAt reads a reference id; surrounding whitespace is dropped.
func stringAt(data map[string]interface{}, path string) (string, error) {
	v, err := valueAt(data, path)
	return strings.TrimSpace(v), err
}

// valueAt reads a dotted field path. Reference-typed values resolve to the document id.
func valueAt(data map[string]interface{}, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	var cur interface{} = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return "", nil
		}
		if cur, ok = m[part]; !ok {
			return "", nil
		}
	}
	switch v := cur.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case *firestore.DocumentRef:
		if v == nil {
			return "", nil
		}
		return v.ID, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", path, cur)
	}
}
