package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SlotRefDelimiter separates the segments of a slot reference string. The same
// string is handed to the payment processor as its opaque external reference,
// so changing it breaks in-flight checkouts.
const SlotRefDelimiter = "|"

// SlotKey identifies one bookable unit of capacity. It is a grouping key over
// bookings, not a stored entity.
type SlotKey struct {
	FacilityID   string `json:"facility_id"`
	Date         string `json:"date"` // YYYY-MM-DD
	ResourceType string `json:"resource_type"`
	Time         string `json:"time"` // HH:MM (24h)
}

// NormalizeResourceType collapses the two historical representations of the
// resource-type field (int32 written by older clients, string written by newer
// ones) into one canonical string form. Applied at every model boundary so the
// rest of the engine only ever sees the canonical value.
func NormalizeResourceType(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.Itoa(int(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		// BSON numbers decoded through interface{} arrive as float64.
		return strconv.FormatInt(int64(t), 10)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// ResourceTypeVariants returns every stored shape of a resource type that must
// be matched when querying legacy booking documents. Canonical string first,
// then the numeric form when the value is numeric-looking.
func ResourceTypeVariants(resourceType string) []interface{} {
	rt := NormalizeResourceType(resourceType)
	variants := []interface{}{rt}
	if n, err := strconv.Atoi(rt); err == nil {
		variants = append(variants, int32(n), int64(n), float64(n))
	}
	return variants
}

// Ref encodes the slot as the delimited composite reference string:
// facilityID|date|resourceType|time.
func (s SlotKey) Ref() string {
	return strings.Join([]string{s.FacilityID, s.Date, NormalizeResourceType(s.ResourceType), s.Time}, SlotRefDelimiter)
}

// ParseSlotRef decodes a slot reference string. The resource-type segment is
// normalized, so numeric-looking text and its string form resolve to the same
// slot. A malformed ref is a permanent rejection, never retried.
func ParseSlotRef(ref string) (SlotKey, error) {
	parts := strings.Split(strings.TrimSpace(ref), SlotRefDelimiter)
	if len(parts) != 4 {
		return SlotKey{}, fmt.Errorf("%w: expected 4 segments, got %d", ErrBadSlotRef, len(parts))
	}
	key := SlotKey{
		FacilityID:   strings.TrimSpace(parts[0]),
		Date:         strings.TrimSpace(parts[1]),
		ResourceType: NormalizeResourceType(parts[2]),
		Time:         strings.TrimSpace(parts[3]),
	}
	if key.FacilityID == "" || key.ResourceType == "" || key.Time == "" {
		return SlotKey{}, fmt.Errorf("%w: empty segment in %q", ErrBadSlotRef, ref)
	}
	if _, err := time.Parse("2006-01-02", key.Date); err != nil {
		return SlotKey{}, fmt.Errorf("%w: bad date %q", ErrBadSlotRef, key.Date)
	}
	return key, nil
}
