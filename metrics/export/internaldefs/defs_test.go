package internaldefs

import (
	"strings"
	"testing"
)

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDefinitionsAreUniqueAndPrefixed(t *testing.T) {
	seen := map[string]struct{}{AuditDroppedName: {}}
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "gorelay_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %q", def.Name)
		}
		if _, dup := seen[def.Name]; dup {
			t.Fatalf("duplicate name %q", def.Name)
		}
		seen[def.Name] = struct{}{}
	}
	if len(HistogramUpperBounds)+1 != len(NormalizeBuckets(nil)) {
		t.Fatalf("%d finite bounds do not fit the bucket array", len(HistogramUpperBounds))
	}
}

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]uint64{"tag_dispatch": 1, "app_probe": 0, "other": 2})
	if strings.Join(got, ",") != "app_probe,other,tag_dispatch" {
		t.Fatalf("unexpected order: %v", got)
	}
	if len(SortedKeys(nil)) != 0 {
		t.Fatal("nil map must yield no keys")
	}
}
