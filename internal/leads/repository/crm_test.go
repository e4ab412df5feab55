package repository

import (
	"testing"
	"time"
)

func TestDecodeFields(t *testing.T) {
	fields, err := decodeFields([]byte(`{"tattoo_size":"palm","deposit_paid":true,"session_count":2,"gone":null}`))
	if err != nil {
		t.Fatalf("decodeFields: %v", err)
	}
	want := map[string]string{"tattoo_size": "palm", "deposit_paid": "true", "session_count": "2"}
	if len(fields) != len(want) {
		t.Fatalf("got %v", fields)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("%s = %q, want %q", k, fields[k], v)
		}
	}
}

func TestDecodeFieldsEmpty(t *testing.T) {
	fields, err := decodeFields(nil)
	if err != nil || fields == nil || len(fields) != 0 {
		t.Fatalf("got %v %v", fields, err)
	}
	if _, err := decodeFields([]byte(`[1,2]`)); err == nil {
		t.Fatal("expected an error for a non-object")
	}
}

func TestStoredAtDefaultsToNow(t *testing.T) {
	before := time.Now().UTC()
	if got := storedAt(time.Time{}); got.Before(before) {
		t.Fatalf("storedAt(zero) = %s", got)
	}
	fixed := time.Date(2024, 12, 16, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))
	if got := storedAt(fixed); !got.Equal(fixed) || got.Location() != time.UTC {
		t.Fatalf("storedAt = %s", got)
	}
}
