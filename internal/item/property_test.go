package item

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

var areaGen = rapid.SampledFrom([]Area{AreaSD, AreaFE, AreaBE, AreaFUT})

func TestDisplayIDRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		area := areaGen.Draw(t, "area")
		section := rapid.IntRange(1, 9999).Draw(t, "section")

		id := TopLevelDisplayID(area, section)
		if got := SectionNumber(id); got != section {
			t.Fatalf("SectionNumber(%q) = %d, want %d", id, got, section)
		}
		if !strings.HasPrefix(id, string(area)+".") {
			t.Fatalf("display id %q not under area %s", id, area)
		}
	})
}

func TestChildDisplayIDDepth(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		area := areaGen.Draw(t, "area")
		section := rapid.IntRange(1, 99).Draw(t, "section")
		indices := rapid.SliceOfN(rapid.IntRange(0, 50), 1, 5).Draw(t, "indices")

		id := TopLevelDisplayID(area, section)
		for _, i := range indices {
			id = ChildDisplayID(id, i)
		}
		parts := strings.Split(id, ".")
		if len(parts) != len(indices)+2 {
			t.Fatalf("display id %q has depth %d, want %d", id, len(parts), len(indices)+2)
		}
		last := indices[len(indices)-1]
		if got := SectionNumber(id); got != last+1 {
			t.Fatalf("SectionNumber(%q) = %d, want %d", id, got, last+1)
		}
	})
}

func TestNormalizeQueryProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := rapid.String().Draw(t, "q")

		norm := NormalizeQuery(q)
		// Idempotent, and always uppercase alphanumeric.
		if again := NormalizeQuery(norm); again != norm {
			t.Fatalf("NormalizeQuery not idempotent: %q -> %q -> %q", q, norm, again)
		}
		for _, r := range norm {
			if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
				t.Fatalf("NormalizeQuery(%q) kept %q", q, r)
			}
		}
	})
}

func TestNormalizeQueryMatchesDisplayIDSpellings(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		area := areaGen.Draw(t, "area")
		section := rapid.IntRange(1, 999).Draw(t, "section")

		canonical := TopLevelDisplayID(area, section)
		spellings := []string{
			canonical,
			strings.ToLower(canonical),
			strings.ReplaceAll(canonical, ".", ""),
			strings.ToLower(strings.ReplaceAll(canonical, ".", "")),
		}
		want := NormalizeQuery(canonical)
		for _, s := range spellings {
			if got := NormalizeQuery(s); got != want {
				t.Fatalf("NormalizeQuery(%q) = %q, want %q", s, got, want)
			}
		}
	})
}
