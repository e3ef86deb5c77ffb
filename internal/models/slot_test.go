package models

import (
	"errors"
	"testing"
)

func TestParseSlotRefRoundTrip(t *testing.T) {
	ref := "fac-123|2024-05-01|7|18:00"
	slot, err := ParseSlotRef(ref)
	if err != nil {
		t.Fatalf("failed to parse valid ref: %v", err)
	}
	if slot.FacilityID != "fac-123" {
		t.Errorf("facility id = %q", slot.FacilityID)
	}
	if slot.Date != "2024-05-01" {
		t.Errorf("date = %q", slot.Date)
	}
	if slot.ResourceType != "7" {
		t.Errorf("resource type = %q", slot.ResourceType)
	}
	if slot.Time != "18:00" {
		t.Errorf("time = %q", slot.Time)
	}
	if slot.Ref() != ref {
		t.Errorf("round trip mismatch: %q != %q", slot.Ref(), ref)
	}
}

func TestParseSlotRefRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"fac-123|2024-05-01|7",
		"fac-123|2024-05-01|7|18:00|extra",
		"|2024-05-01|7|18:00",
		"fac-123|not-a-date|7|18:00",
		"fac-123|2024-05-01||18:00",
	}
	for _, ref := range cases {
		if _, err := ParseSlotRef(ref); !errors.Is(err, ErrBadSlotRef) {
			t.Errorf("ref %q: expected ErrBadSlotRef, got %v", ref, err)
		}
	}
}

func TestNormalizeResourceType(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{"7", "7"},
		{" 7 ", "7"},
		{7, "7"},
		{int32(7), "7"},
		{int64(7), "7"},
		{float64(7), "7"},
		{"padel", "padel"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := NormalizeResourceType(tc.in); got != tc.want {
			t.Errorf("NormalizeResourceType(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResourceTypeVariantsCoverNumericShapes(t *testing.T) {
	variants := ResourceTypeVariants("5")
	if len(variants) != 4 {
		t.Fatalf("expected 4 variants for numeric type, got %d: %v", len(variants), variants)
	}
	if variants[0] != "5" {
		t.Errorf("canonical string should come first, got %v", variants[0])
	}

	// Non-numeric types only have the string shape.
	variants = ResourceTypeVariants("tennis")
	if len(variants) != 1 || variants[0] != "tennis" {
		t.Errorf("unexpected variants for textual type: %v", variants)
	}
}

func TestFacilityCapacityForDefaults(t *testing.T) {
	f := &Facility{
		ID:         "fac-1",
		Capacities: map[string]int{"7": 3},
	}
	if got := f.CapacityFor("7"); got != 3 {
		t.Errorf("configured capacity = %d, want 3", got)
	}
	if got := f.CapacityFor("unknown"); got != 1 {
		t.Errorf("missing key should default to 1, got %d", got)
	}

	var nilFacility *Facility
	if got := nilFacility.CapacityFor("7"); got != 1 {
		t.Errorf("nil facility should default to 1, got %d", got)
	}
}
