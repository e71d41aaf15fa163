package repository

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDecodeRecord(t *testing.T) {
	fields := RecordFields{Tenant: "tenantId", Creator: "createdBy", Parent: "project.id"}
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := DecodeRecord("c1", map[string]interface{}{
		"tenantId":  "T1",
		"createdBy": " u1 ",
		"project":   map[string]interface{}{"id": "p1"},
		"name":      "Jane",
	}, updated, fields)

	if rec.DecodeErr != nil {
		t.Fatalf("unexpected decode error: %v", rec.DecodeErr)
	}
	if rec.ID != "c1" || rec.TenantID != "T1" {
		t.Errorf("got id=%q tenant=%q, want c1/T1", rec.ID, rec.TenantID)
	}
	if rec.CreatorRef != "u1" {
		t.Errorf("creator ref should be trimmed, got %q", rec.CreatorRef)
	}
	if rec.ParentRef != "p1" {
		t.Errorf("parent ref = %q, want p1", rec.ParentRef)
	}
	if !rec.UpdateTime.Equal(updated) {
		t.Errorf("update time = %v, want %v", rec.UpdateTime, updated)
	}
}

func TestDecodeRecordAbsentAndNullFields(t *testing.T) {
	fields := RecordFields{Tenant: "tenantId", Creator: "createdBy", Parent: "projectId"}

	for name, data := range map[string]map[string]interface{}{
		"null":   {"tenantId": nil},
		"absent": {},
		"empty":  {"tenantId": ""},
	} {
		rec := DecodeRecord("c2", data, time.Time{}, fields)
		if rec.DecodeErr != nil {
			t.Fatalf("%s: unexpected decode error: %v", name, rec.DecodeErr)
		}
		if rec.HasTenant() {
			t.Errorf("%s: tenant should be missing, got %q", name, rec.TenantID)
		}
		if rec.CreatorRef != "" || rec.ParentRef != "" {
			t.Errorf("%s: refs should be empty, got %q/%q", name, rec.CreatorRef, rec.ParentRef)
		}
	}
}

func TestDecodeRecordNonCanonicalTenant(t *testing.T) {
	fields := RecordFields{Tenant: "tenantId", Creator: "createdBy"}

	for _, value := range []string{"   ", " TgT0000000000000000A ", "TgT0000000000000000A\n"} {
		rec := DecodeRecord("c1", map[string]interface{}{
			"tenantId":  value,
			"createdBy": "u1",
		}, time.Time{}, fields)
		if rec.DecodeErr == nil {
			t.Fatalf("tenant %q: expected decode error, got tenant %q", value, rec.TenantID)
		}
		if !strings.Contains(rec.DecodeErr.Error(), "non-canonical") {
			t.Errorf("tenant %q: unexpected error %v", value, rec.DecodeErr)
		}
	}
}

func TestTenantAtKeepsValueVerbatim(t *testing.T) {
	got, err := tenantAt(map[string]interface{}{"org": map[string]interface{}{"id": "TgT0000000000000000A"}}, "org.id")
	if err != nil {
		t.Fatalf("tenantAt: %v", err)
	}
	if got != "TgT0000000000000000A" {
		t.Errorf("tenantAt = %q", got)
	}
	if _, err := tenantAt(map[string]interface{}{"tenantId": "  "}, "tenantId"); err == nil {
		t.Errorf("blank tenant should be rejected")
	}
}

func TestDecodeRecordWrongType(t *testing.T) {
	fields := RecordFields{Tenant: "tenantId", Creator: "createdBy"}

	rec := DecodeRecord("c3", map[string]interface{}{
		"createdBy": int64(42),
	}, time.Time{}, fields)

	if rec.DecodeErr == nil {
		t.Fatalf("expected decode error for int creator")
	}
	if !strings.Contains(rec.DecodeErr.Error(), "createdBy") {
		t.Errorf("error should name the field: %v", rec.DecodeErr)
	}
}

func TestRecordFieldsPaths(t *testing.T) {
	if got := (RecordFields{Tenant: "tenantId"}).paths(); !reflect.DeepEqual(got, []string{"tenantId"}) {
		t.Errorf("paths = %v", got)
	}
	got := RecordFields{Tenant: "tenantId", Creator: "createdBy", Parent: "projectId"}.paths()
	if want := []string{"tenantId", "createdBy", "projectId"}; !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
}
