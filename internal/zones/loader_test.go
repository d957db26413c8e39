package zones

import (
	"os"
	"path/filepath"
	"testing"
)

// writeZoneFile writes a zone file with the given content and returns its path.
func writeZoneFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write zone file: %v", err)
	}
	return path
}

// TestLoad_FiltersAndDeduplicates verifies that zones without observation
// stations are dropped, duplicate keys are collapsed to the first occurrence,
// and file order is preserved.
func TestLoad_FiltersAndDeduplicates(t *testing.T) {
	// Arrange: index with one station-less zone and one duplicate key
	path := writeZoneFile(t, `{
		"features": [
			{"properties": {"id": "WAZ558", "name": "East Puget Sound Lowlands", "state": "WA", "observationStations": ["a", "b"]}},
			{"properties": {"id": "CAZ006", "name": "San Francisco", "state": "CA", "observationStations": []}},
			{"properties": {"id": "ORZ006", "name": "Greater Portland", "state": "OR", "observationStations": ["c"]}},
			{"properties": {"id": "WAZ558", "name": "Duplicate", "state": "WA", "observationStations": ["d"]}}
		]
	}`)

	// Act
	zones, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Assert: two zones survive, in file order, with first-occurrence data
	if len(zones) != 2 {
		t.Fatalf("Load() returned %d zones, want 2", len(zones))
	}
	if zones[0].Key != "WAZ558" || zones[1].Key != "ORZ006" {
		t.Errorf("Load() order = [%s, %s], want [WAZ558, ORZ006]", zones[0].Key, zones[1].Key)
	}
	if zones[0].Name != "East Puget Sound Lowlands" {
		t.Errorf("duplicate replaced first occurrence: Name = %q", zones[0].Name)
	}
	if len(zones[0].ObservationStations) != 2 {
		t.Errorf("zones[0].ObservationStations = %d entries, want 2", len(zones[0].ObservationStations))
	}
}

// TestLoad_Deterministic verifies repeated loads produce identical output.
func TestLoad_Deterministic(t *testing.T) {
	path := writeZoneFile(t, `{
		"features": [
			{"properties": {"id": "AKZ101", "name": "Anchorage", "state": "AK", "observationStations": ["x"]}},
			{"properties": {"id": "AZZ537", "name": "Tucson", "state": "AZ", "observationStations": ["y"]}}
		]
	}`)

	first, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	second, err := Load(path)
	if err != nil {
		t.Fatalf("Load() second error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Errorf("order differs at %d: %s vs %s", i, first[i].Key, second[i].Key)
		}
	}
}

// TestLoad_SkipsEmptyID verifies zones without an id are dropped.
func TestLoad_SkipsEmptyID(t *testing.T) {
	path := writeZoneFile(t, `{
		"features": [
			{"properties": {"id": "", "name": "Nameless", "state": "XX", "observationStations": ["s"]}},
			{"properties": {"id": "ORZ006", "name": "Portland", "state": "OR", "observationStations": ["s"]}}
		]
	}`)

	zones, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(zones) != 1 || zones[0].Key != "ORZ006" {
		t.Errorf("Load() = %+v, want only ORZ006", zones)
	}
}

// TestLoad_MissingFile verifies a missing zone file returns an error.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("Load() error = nil, want read error")
	}
}

// TestLoad_MalformedJSON verifies a malformed file returns a parse error.
func TestLoad_MalformedJSON(t *testing.T) {
	path := writeZoneFile(t, `{"features": [`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}
